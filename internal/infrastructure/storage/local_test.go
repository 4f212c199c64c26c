package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalObjectStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalObjectStorage(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "logos/company.png", []byte("png"), "image/png"))

	obj, err := s.Get(ctx, "logos/company.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)

	exists, err := s.Exists(ctx, "logos/company.png")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, "logos/company.png"))
	require.NoError(t, s.Delete(ctx, "logos/company.png"))

	_, err = s.Get(ctx, "logos/company.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalObjectStorage_StaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalObjectStorage(filepath.Join(root, "objects"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "../../escape.txt", []byte("x"), "text/plain"))
	_, err = os.Stat(filepath.Join(root, "objects", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Put(ctx, "a.content-type", []byte("x"), "text/plain"))
}

func TestLocalObjectStorage_DownloadURL(t *testing.T) {
	s, err := NewLocalObjectStorage(t.TempDir(), WithBaseURL("/files/"), WithLocalPresignExpiration(time.Minute))
	require.NoError(t, err)

	u, expiresAt, err := s.DownloadURL(context.Background(), "documents/q.pdf", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "/files/documents/q.pdf?expires=")
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, &config.StorageConfig{Provider: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(ctx, &config.StorageConfig{Provider: "local", LocalPath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalObjectStorage{}, s)

	_, err = New(ctx, &config.StorageConfig{Provider: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
