package conversion

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf-converter/internal/converter"
	"github.com/feichai0017/pdf-converter/internal/models"
	"github.com/feichai0017/pdf-converter/pkg/logger"
	"github.com/feichai0017/pdf-converter/pkg/queue"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func encoded() string { return base64.StdEncoding.EncodeToString(samplePDF) }

func testConfig(t *testing.T) *ServiceConfig {
	return &ServiceConfig{
		TempDir:         t.TempDir(),
		MaxFileSize:     1 << 20,
		MaxConcurrent:   2,
		Timeout:         time.Second,
		DefaultLanguage: "por+eng",
		QueuePriority:   2,
		RetentionPeriod: time.Hour,
	}
}

func wordOK() *fakeConverter {
	return &fakeConverter{kind: models.KindWord, fn: func(_ context.Context, ws *converter.Workspace, job *models.Job) (*models.Output, error) {
		data, err := os.ReadFile(ws.InputPath())
		if err != nil {
			return nil, err
		}
		return &models.Output{
			Kind:     models.KindWord,
			Filename: models.OutputFilename(job.Filename, models.KindWord),
			Data:     append([]byte("docx:"), data[:4]...),
		}, nil
	}}
}

func newService(t *testing.T, convs ...converter.Converter) *Service {
	return NewService(converter.NewRegistry(logger.NewNop(), convs...), testConfig(t), logger.NewTestLogger())
}

func TestDecodeDefaults(t *testing.T) {
	s := newService(t)

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	assert.Equal(t, "document", job.Filename)
	assert.Equal(t, samplePDF, job.PDF)
	assert.NotEmpty(t, job.ID)
	sum := sha256.Sum256(samplePDF)
	assert.Equal(t, hex.EncodeToString(sum[:]), job.Checksum)

	job, err = s.Decode(models.KindText, &models.ConvertRequest{PDFBase64: encoded(), Filename: " scan "})
	require.NoError(t, err)
	assert.Equal(t, "scan", job.Filename)
	assert.Equal(t, []string{"por", "eng"}, job.Options.Languages)
	assert.Equal(t, models.TextModeOCR, job.Options.TextMode)

	job, err = s.Decode(models.KindCompress, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	assert.Equal(t, models.QualityEbook, job.Options.Quality)

	job, err = s.Decode(models.KindImage, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	assert.Equal(t, models.ImageFormatPNG, job.Options.ImageFormat)
	assert.Equal(t, 92, job.Options.ImageQuality)
	assert.Equal(t, 2.0, job.Options.Scale)
}

func TestDecodeScriptLanguage(t *testing.T) {
	s := newService(t)

	job, err := s.Decode(models.KindText, &models.ConvertRequest{PDFBase64: encoded(), Language: "script/Latin+eng"})
	require.NoError(t, err)
	assert.Equal(t, []string{"script/Latin", "eng"}, job.Options.Languages)
}

func TestDecodeDataURLAndWhitespace(t *testing.T) {
	s := newService(t)
	b64 := encoded()
	wrapped := "data:application/pdf;base64," + b64[:10] + "\n" + b64[10:]

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: wrapped})
	require.NoError(t, err)
	assert.Equal(t, samplePDF, job.PDF)
}

func TestDecodeBase64WithoutPadding(t *testing.T) {
	data, err := DecodeBase64(strings.TrimRight(base64.StdEncoding.EncodeToString([]byte("%PDF-1")), "="))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1"), data)
}

func TestDecodeRejects(t *testing.T) {
	s := newService(t)
	big := make([]byte, 2<<20)
	copy(big, samplePDF)

	tests := []struct {
		name    string
		kind    models.Kind
		req     models.ConvertRequest
		kindErr error
		message string
	}{
		{"missing payload", models.KindWord, models.ConvertRequest{}, ErrBadRequest, "pdfBase64 field is required"},
		{"bad base64", models.KindWord, models.ConvertRequest{PDFBase64: "%%%not base64%%%"}, ErrBadRequest, "failed to decode PDF base64"},
		{"not a pdf", models.KindWord, models.ConvertRequest{PDFBase64: base64.StdEncoding.EncodeToString([]byte("hello world"))}, ErrBadRequest, "Invalid MIME type"},
		{"too large", models.KindWord, models.ConvertRequest{PDFBase64: base64.StdEncoding.EncodeToString(big)}, ErrTooLarge, "exceeds maximum"},
		{"quality before payload", models.KindCompress, models.ConvertRequest{Quality: "ultra"}, ErrBadRequest, "Quality must be one of: screen, ebook, printer, prepress"},
		{"quality is case sensitive", models.KindCompress, models.ConvertRequest{PDFBase64: encoded(), Quality: "EBOOK"}, ErrBadRequest, "Quality must be one of"},
		{"numeric quality on compress", models.KindCompress, models.ConvertRequest{PDFBase64: encoded(), Quality: "92"}, ErrBadRequest, "Quality must be one of"},
		{"language path", models.KindText, models.ConvertRequest{PDFBase64: encoded(), Language: "../eng"}, ErrBadRequest, "invalid language"},
		{"bad language", models.KindText, models.ConvertRequest{PDFBase64: encoded(), Language: "eng;rm -rf"}, ErrBadRequest, "invalid language"},
		{"bad mode", models.KindText, models.ConvertRequest{PDFBase64: encoded(), Mode: "vision"}, ErrBadRequest, "Mode must be one of"},
		{"bad format", models.KindImage, models.ConvertRequest{PDFBase64: encoded(), Format: "gif"}, ErrBadRequest, "Format must be one of"},
		{"bad image quality", models.KindImage, models.ConvertRequest{PDFBase64: encoded(), ImageQuality: 101}, ErrBadRequest, "imageQuality"},
		{"bad scale", models.KindImage, models.ConvertRequest{PDFBase64: encoded(), Scale: 5}, ErrBadRequest, "scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Decode(tt.kind, &tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kindErr)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestConvertCleansWorkspace(t *testing.T) {
	s := newService(t, wordOK())

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded(), Filename: "cv"})
	require.NoError(t, err)

	out, err := s.Convert(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "cv.docx", out.Filename)
	assert.Equal(t, []byte("docx:%PDF"), out.Data)

	entries, err := os.ReadDir(s.config.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be removed")
}

func TestConvertCleansWorkspaceOnFailure(t *testing.T) {
	s := newService(t, &fakeConverter{kind: models.KindWord, fn: func(context.Context, *converter.Workspace, *models.Job) (*models.Output, error) {
		return nil, errors.New("pdf2docx crashed")
	}})

	_, err := s.Convert(context.Background(), &models.Job{Kind: models.KindWord, Filename: "x", PDF: samplePDF})
	assert.ErrorContains(t, err, "pdf2docx crashed")

	entries, err := os.ReadDir(s.config.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvertTimeout(t *testing.T) {
	s := newService(t, &fakeConverter{kind: models.KindText, fn: func(ctx context.Context, _ *converter.Workspace, _ *models.Job) (*models.Output, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	s.config.Timeout = 20 * time.Millisecond

	_, err := s.Convert(context.Background(), &models.Job{Kind: models.KindText, PDF: samplePDF})
	assert.ErrorIs(t, err, converter.ErrTimeout)
	assert.True(t, Permanent(err))
}

func TestConvertInvalidInput(t *testing.T) {
	s := newService(t, &fakeConverter{kind: models.KindPPTX, fn: func(context.Context, *converter.Workspace, *models.Job) (*models.Output, error) {
		return nil, errors.Join(converter.ErrInvalidInput, errors.New("PDF has 400 pages"))
	}})

	_, err := s.Convert(context.Background(), &models.Job{Kind: models.KindPPTX, PDF: samplePDF})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "400 pages")
}

func TestConvertUnknownKind(t *testing.T) {
	s := newService(t)
	_, err := s.Convert(context.Background(), &models.Job{Kind: models.KindImage, PDF: samplePDF})
	assert.Error(t, err)
}

func TestConvertLimitsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})

	s := newService(t, &fakeConverter{kind: models.KindWord, fn: func(context.Context, *converter.Workspace, *models.Job) (*models.Output, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return &models.Output{Kind: models.KindWord}, nil
	}})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Convert(context.Background(), &models.Job{Kind: models.KindWord, PDF: samplePDF})
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(2), peak.Load())
}

func newJobService(t *testing.T) (*Service, *fakeQueue, *fakeStorage) {
	q := newFakeQueue()
	store := newFakeStorage()
	s := NewService(converter.NewRegistry(logger.NewNop(), wordOK()), testConfig(t), logger.NewTestLogger(), WithJobs(q, store))
	return s, q, store
}

func TestJobsDisabled(t *testing.T) {
	s := newService(t, wordOK())
	assert.False(t, s.JobsEnabled())

	_, err := s.Submit(context.Background(), &models.Job{ID: "a"})
	assert.ErrorIs(t, err, ErrQueueDisabled)
	_, err = s.Status(context.Background(), "a")
	assert.ErrorIs(t, err, ErrQueueDisabled)
}

func TestJobLifecycle(t *testing.T) {
	s, q, store := newJobService(t)
	ctx := context.Background()

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded(), Filename: "cv"})
	require.NoError(t, err)

	info, err := s.Submit(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, info.Status)
	assert.Equal(t, models.KindWord, info.Kind)
	assert.Equal(t, "cv", info.Filename)
	require.Len(t, q.tasks, 1)
	assert.Equal(t, queue.TaskTypeConvert, q.tasks[0].Type)
	assert.True(t, store.has(inputKey(job.ID)))

	_, err = s.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.HandleJob(ctx, q.tasks[0], 1))
	assert.Equal(t, queue.StatusCompleted, q.status(job.ID))
	assert.False(t, store.has(inputKey(job.ID)), "input is removed once converted")

	body, err := s.Result(ctx, job.ID)
	require.NoError(t, err)
	var resp models.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cv.docx", resp.Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("docx:%PDF")), resp.Data)

	_, err = s.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobFinished)
}

func TestJobCancel(t *testing.T) {
	s, q, store := newJobService(t)
	ctx := context.Background()

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	_, err = s.Submit(ctx, job)
	require.NoError(t, err)

	info, err := s.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, info.Status)
	assert.Equal(t, []string{job.ID}, q.cancelled)
	assert.Empty(t, store.keys("jobs/"))

	// A worker that picks the task up anyway leaves it alone.
	require.NoError(t, s.HandleJob(ctx, q.tasks[0], 1))
	assert.Equal(t, queue.StatusCancelled, q.status(job.ID))

	s.FailJob(ctx, q.tasks[0], 1, errors.New("late failure"))
	assert.Equal(t, queue.StatusCancelled, q.status(job.ID))
}

func TestJobCancelledDuringConversion(t *testing.T) {
	q := newFakeQueue()
	store := newFakeStorage()
	ctx := context.Background()

	var s *Service
	var cancelErr error
	conv := &fakeConverter{kind: models.KindWord, fn: func(_ context.Context, _ *converter.Workspace, job *models.Job) (*models.Output, error) {
		_, cancelErr = s.Cancel(ctx, job.ID)
		return &models.Output{Kind: models.KindWord, Filename: "late.docx", Data: []byte("docx")}, nil
	}}
	s = NewService(converter.NewRegistry(logger.NewNop(), conv), testConfig(t), logger.NewTestLogger(), WithJobs(q, store))

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	_, err = s.Submit(ctx, job)
	require.NoError(t, err)

	require.NoError(t, s.HandleJob(ctx, q.tasks[0], 1))
	require.NoError(t, cancelErr)

	assert.Equal(t, queue.StatusCancelled, q.status(job.ID))
	assert.False(t, store.has(resultKey(job.ID)), "the late result is discarded")
	_, err = s.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobFinished)
}

func TestJobFailure(t *testing.T) {
	s, q, _ := newJobService(t)
	ctx := context.Background()

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)
	_, err = s.Submit(ctx, job)
	require.NoError(t, err)

	s.FailJob(ctx, q.tasks[0], 3, errors.New("soffice exited 1"))

	info, err := s.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, info.Status)
	assert.Equal(t, 3, info.Attempts)

	_, err = s.Result(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "soffice exited 1")
}

func TestSubmitEnqueueFailure(t *testing.T) {
	s, q, store := newJobService(t)
	q.enqueueErr = errors.New("redis down")

	job, err := s.Decode(models.KindWord, &models.ConvertRequest{PDFBase64: encoded()})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), job)
	assert.ErrorContains(t, err, "redis down")
	assert.False(t, store.has(inputKey(job.ID)))
}

func TestStatusNotFound(t *testing.T) {
	s, _, _ := newJobService(t)
	_, err := s.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	s, _, store := newJobService(t)

	require.NoError(t, s.CleanupExpired(context.Background()))
	assert.WithinDuration(t, time.Now().Add(-time.Hour), store.cleaned, time.Minute)
}

func TestPermanent(t *testing.T) {
	assert.True(t, Permanent(badRequest("nope")))
	assert.True(t, Permanent(context.Canceled))
	assert.False(t, Permanent(errors.New("connection reset")))
}
