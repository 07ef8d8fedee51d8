package minio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"go.uber.org/zap"
)

func TestStorageRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	endpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := NewStorage(StorageConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "videos",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))
	require.NoError(t, store.EnsureBucket(ctx))

	dir := t.TempDir()
	src := filepath.Join(dir, "frames_ts.zip")
	require.NoError(t, os.WriteFile(src, []byte("archive-bytes"), 0o644))

	require.NoError(t, store.Upload(ctx, src, "outputs/frames_ts.zip"))
	assert.Equal(t, "s3://videos/outputs/frames_ts.zip", store.URI("outputs/frames_ts.zip"))

	dest := filepath.Join(dir, "uploads", "ts_frames.zip")
	require.NoError(t, store.Download(ctx, "outputs/frames_ts.zip", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(got))

	assert.Error(t, store.Download(ctx, "raw/missing.mp4", filepath.Join(dir, "missing.mp4")))
}
