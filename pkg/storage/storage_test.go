package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/pdf-converter/config"
	"github.com/feichai0017/pdf-converter/pkg/logger"
)

func TestNewStorageUnsupportedType(t *testing.T) {
	s, err := NewStorage(context.Background(), config.StorageConfig{Type: "gcs"}, logger.NewNop())
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "unsupported storage type: gcs")
}
