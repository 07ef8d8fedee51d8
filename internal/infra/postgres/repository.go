package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
)

// Store opens one pooled session per work item.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *Store) Open(ctx context.Context) (port.StatusRepository, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", entity.ErrPersistence, err)
	}
	return &VideoRepository{conn: conn}, nil
}

// VideoRepository is bound to a single connection until Close.
type VideoRepository struct {
	conn *pgxpool.Conn
}

const selectForUpdate = `
	SELECT id, user_id, title, file_path, status
	FROM video WHERE id=$1 FOR UPDATE`

const updateStatus = `
	UPDATE video SET
		status=$2,
		file_path=COALESCE(NULLIF($3, ''), file_path)
	WHERE id=$1`

func (r *VideoRepository) UpdateStatus(ctx context.Context, videoID int64, status entity.VideoStatus, archiveLocation string) (*entity.Video, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %d", entity.ErrValidation, status)
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", entity.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	video, err := scanVideo(tx.QueryRow(ctx, selectForUpdate, videoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", entity.ErrNotFound, videoID)
	}
	if err != nil {
		return nil, persistenceError("lock video", err)
	}

	if _, err := tx.Exec(ctx, updateStatus, videoID, int(status), archiveLocation); err != nil {
		return nil, persistenceError("update video", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, persistenceError("commit", err)
	}

	video.Status = status
	if archiveLocation != "" {
		video.FilePath = archiveLocation
	}
	return video, nil
}

// GetByID returns nil, nil when the record does not exist.
func (r *VideoRepository) GetByID(ctx context.Context, videoID int64) (*entity.Video, error) {
	video, err := scanVideo(r.conn.QueryRow(ctx,
		`SELECT id, user_id, title, file_path, status FROM video WHERE id=$1`, videoID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("find video by id", err)
	}
	return video, nil
}

func (r *VideoRepository) Close() {
	if r.conn != nil {
		r.conn.Release()
		r.conn = nil
	}
}

func scanVideo(row pgx.Row) (*entity.Video, error) {
	v := &entity.Video{}
	var status int
	if err := row.Scan(&v.ID, &v.UserID, &v.Title, &v.FilePath, &status); err != nil {
		return nil, err
	}
	v.Status = entity.VideoStatus(status)
	return v, nil
}

func persistenceError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s: integrity violation %s: %s", entity.ErrPersistence, op, pgErr.Code, pgErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", entity.ErrPersistence, op, err)
}
