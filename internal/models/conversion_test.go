package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRequestQuality(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		quality      string
		imageQuality int
	}{
		{"preset name", `{"quality":"screen"}`, "screen", 0},
		{"absent", `{"pdfBase64":"x"}`, "", 0},
		{"null", `{"quality":null}`, "", 0},
		{"number", `{"quality":92}`, "92", 92},
		{"explicit imageQuality wins", `{"quality":50,"imageQuality":80}`, "50", 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ConvertRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.quality, req.Quality)
			assert.Equal(t, tt.imageQuality, req.ImageQuality)
		})
	}
}

func TestConvertRequestKeepsOtherFields(t *testing.T) {
	var req ConvertRequest
	require.NoError(t, json.Unmarshal([]byte(`{"pdfBase64":"AAA","filename":"deck","format":"jpg","scale":1.5,"quality":70}`), &req))

	assert.Equal(t, "AAA", req.PDFBase64)
	assert.Equal(t, "deck", req.Filename)
	assert.Equal(t, "jpg", req.Format)
	assert.Equal(t, 1.5, req.Scale)
	assert.Equal(t, 70, req.ImageQuality)
}

func TestConvertRequestRejectsBadQuality(t *testing.T) {
	for _, body := range []string{`{"quality":92.5}`, `{"quality":true}`, `{"quality":[1]}`} {
		var req ConvertRequest
		err := json.Unmarshal([]byte(body), &req)

		var typeErr *json.UnmarshalTypeError
		require.ErrorAs(t, err, &typeErr, body)
		assert.Equal(t, "quality", typeErr.Field)
	}
}
