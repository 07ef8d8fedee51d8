package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"go.uber.org/zap"
)

type memoryStore struct {
	videos  map[int64]*entity.Video
	openErr error
	getErr  error
}

func (s *memoryStore) Open(context.Context) (port.StatusRepository, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s, nil
}

func (s *memoryStore) UpdateStatus(context.Context, int64, entity.VideoStatus, string) (*entity.Video, error) {
	return nil, errors.New("read only")
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*entity.Video, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.videos[id], nil
}

func (s *memoryStore) Close() {}

func serve(t *testing.T, store port.StatusStore, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(store, zap.NewNop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetStatus(t *testing.T) {
	store := &memoryStore{videos: map[int64]*entity.Video{
		7: {ID: 7, UserID: 1, FilePath: "s3://media/outputs/frames_ts.zip", Status: entity.VideoStatusProcessed},
	}}

	rec := serve(t, store, "/videos/7/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, "PROCESSED", body["status"])
	assert.Equal(t, float64(1), body["status_code"])
	assert.Equal(t, "s3://media/outputs/frames_ts.zip", body["file_path"])
}

func TestGetStatusErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *memoryStore
		path  string
		code  int
	}{
		{name: "unknown id", store: &memoryStore{}, path: "/videos/99/status", code: http.StatusNotFound},
		{name: "bad id", store: &memoryStore{}, path: "/videos/abc/status", code: http.StatusBadRequest},
		{name: "negative id", store: &memoryStore{}, path: "/videos/-1/status", code: http.StatusBadRequest},
		{name: "store down", store: &memoryStore{openErr: errors.New("pool closed")}, path: "/videos/1/status", code: http.StatusServiceUnavailable},
		{name: "lookup failure", store: &memoryStore{getErr: entity.ErrPersistence}, path: "/videos/1/status", code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt.store, tt.path)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	rec := serve(t, &memoryStore{}, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(t, &memoryStore{}, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
