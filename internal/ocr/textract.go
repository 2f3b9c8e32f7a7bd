package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/disintegration/imaging"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

// Textract's synchronous API rejects documents above 10 MB.
const textractMaxBytes = 10 << 20

type textractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractEngine sends pages to AWS Textract. Languages are detected by the
// service and the requested ones are ignored.
type TextractEngine struct {
	client        textractAPI
	minConfidence float32
	logger        logger.Logger
}

func NewTextractEngine(ctx context.Context, cfg config.TextractConfig, log logger.Logger) (*TextractEngine, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newTextractEngine(client, cfg.MinConfidence, log), nil
}

func newTextractEngine(client textractAPI, minConfidence float32, log logger.Logger) *TextractEngine {
	return &TextractEngine{
		client:        client,
		minConfidence: minConfidence,
		logger:        log.Named("textract"),
	}
}

func (e *TextractEngine) Name() string { return "textract" }

func (e *TextractEngine) Recognize(ctx context.Context, img image.Image, _ []string) (string, error) {
	data, err := encodeForTextract(img)
	if err != nil {
		return "", err
	}

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := e.lines(result.Blocks)
	e.logger.Debug("Page recognized",
		logger.Int("blocks", len(result.Blocks)),
		logger.Int("lines", len(lines)),
	)
	return strings.Join(lines, "\n"), nil
}

func (e *TextractEngine) lines(blocks []types.Block) []string {
	var texts []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < e.minConfidence {
			continue
		}
		texts = append(texts, *block.Text)
	}
	return texts
}

// encodeForTextract produces a JPEG under the size limit, halving the
// resolution until it fits.
func encodeForTextract(img image.Image) ([]byte, error) {
	for {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return nil, fmt.Errorf("failed to encode page: %w", err)
		}
		if buf.Len() <= textractMaxBytes {
			return buf.Bytes(), nil
		}
		b := img.Bounds()
		if b.Dx() < 100 {
			return nil, fmt.Errorf("page image exceeds %d bytes", textractMaxBytes)
		}
		img = imaging.Resize(img, b.Dx()/2, 0, imaging.Lanczos)
	}
}
