package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
)

func setupStore(t *testing.T) (*Store, func(ctx context.Context, userID int64, path string) int64) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("videos"),
		tcpostgres.WithUsername("video_user"),
		tcpostgres.WithPassword("video_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(connStr))
	require.NoError(t, RunMigrations(connStr))

	pool, err := NewPool(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	insert := func(ctx context.Context, userID int64, path string) int64 {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO video (user_id, title, file_path, status) VALUES ($1, 'clip', $2, 0) RETURNING id`,
			userID, path,
		).Scan(&id)
		require.NoError(t, err)
		return id
	}
	return NewStore(pool), insert
}

func TestVideoRepositoryUpdateStatus(t *testing.T) {
	store, insert := setupStore(t)
	ctx := context.Background()
	id := insert(ctx, 5, "uploads/clip.mp4")

	repo, err := store.Open(ctx)
	require.NoError(t, err)
	defer repo.Close()

	video, err := repo.UpdateStatus(ctx, id, entity.VideoStatusProcessed, "s3://media/outputs/frames_ts.zip")
	require.NoError(t, err)
	assert.Equal(t, entity.VideoStatusProcessed, video.Status)
	assert.Equal(t, "s3://media/outputs/frames_ts.zip", video.FilePath)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(5), stored.UserID)
	assert.Equal(t, entity.VideoStatusProcessed, stored.Status)
	assert.Equal(t, "s3://media/outputs/frames_ts.zip", stored.FilePath)
}

func TestVideoRepositoryFailedKeepsFilePath(t *testing.T) {
	store, insert := setupStore(t)
	ctx := context.Background()
	id := insert(ctx, 6, "uploads/original.mp4")

	repo, err := store.Open(ctx)
	require.NoError(t, err)
	defer repo.Close()

	video, err := repo.UpdateStatus(ctx, id, entity.VideoStatusFailed, "")
	require.NoError(t, err)
	assert.Equal(t, entity.VideoStatusFailed, video.Status)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "uploads/original.mp4", stored.FilePath)
	assert.Equal(t, entity.VideoStatusFailed, stored.Status)
}

func TestVideoRepositoryNotFound(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	repo, err := store.Open(ctx)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.UpdateStatus(ctx, 999999, entity.VideoStatusProcessed, "outputs/x.zip")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	missing, err := repo.GetByID(ctx, 999999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
