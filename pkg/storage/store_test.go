package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "unknown", "ignored")
	assert.ErrorIs(t, err, errdefs.ErrUnsupportedBackend)
	assert.Contains(t, err.Error(), "unknown")
}

func TestOpenSQLiteInMemory(t *testing.T) {
	repo, err := Open(context.Background(), "sqlite", "sqlite::memory:")
	assert.NoError(t, err)
	if repo != nil {
		defer repo.Close()
		assert.NoError(t, repo.Init(context.Background()))
	}
}

func TestOpenNormalizesBackendCase(t *testing.T) {
	repo, err := Open(context.Background(), "  SQLite ", ":memory:")
	assert.NoError(t, err)
	if repo != nil {
		repo.Close()
	}
}
