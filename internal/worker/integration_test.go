package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/ffmpeg"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/postgres"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/rabbitmq"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/storage"
	"github.com/the-code-crafters-hackathon/worker-service/internal/usecase"
	"github.com/the-code-crafters-hackathon/worker-service/pkg/logger"
)

func TestWorkerEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("videos"),
		tcpostgres.WithUsername("video_user"),
		tcpostgres.WithPassword("video_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(pgConnStr))

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	var videoID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO video (user_id, title, file_path, status) VALUES (5, 'clip', 'uploads/clip.mp4', 0) RETURNING id`,
	).Scan(&videoID))

	layout := storage.NewLayout(t.TempDir())
	require.NoError(t, layout.Ensure())
	videoPath := filepath.Join(layout.Uploads, "clip.mp4")
	gen := exec.CommandContext(ctx, "ffmpeg", "-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=1",
		"-pix_fmt", "yuv420p", "-y", videoPath)
	out, err := gen.CombinedOutput()
	require.NoError(t, err, string(out))

	log, err := logger.New("debug")
	require.NoError(t, err)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.processing",
		Exchange:    "video",
		DLQ:         "video.processing.dlq",
		StatusQueue: "video.status",
	}, log)
	require.NoError(t, err)
	defer consumer.Close()

	pub, err := rabbitmq.NewPublisher(consumer.Connection(), "video")
	require.NoError(t, err)
	defer pub.Close()

	extractor := ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
		TempDir:   layout.Temp,
		OutputDir: layout.Outputs,
	}, storage.LocalSink{}, log)

	uc := usecase.NewProcessVideoUseCase(
		postgres.NewStore(pool), storage.NewLocalStore(log), extractor,
		nil, rabbitmq.NewStatusPublisher(pub, ""),
		log,
		usecase.ProcessVideoConfig{UploadsDir: layout.Uploads},
	)
	w := New(consumer, uc, rabbitmq.NewDLQPublisher(pub, "video.processing.dlq"), Config{WaitTime: time.Second}, log)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(workerCtx) }()

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	for _, body := range []string{
		`{invalid json`,
		fmt.Sprintf(`{"video_id":%d,"video_path":%q,"timestamp":"20260218_101010"}`, videoID, videoPath),
	} {
		require.NoError(t, pubCh.PublishWithContext(ctx, "video", "video.processing", false, false,
			amqp.Publishing{ContentType: "application/json", Body: []byte(body)}))
	}
	pubCh.Close()

	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()
	statusMsgs, err := statusCh.Consume("video.status", "", true, false, false, false, nil)
	require.NoError(t, err)

	var event entity.StatusEvent
	select {
	case d := <-statusMsgs:
		require.NoError(t, json.Unmarshal(d.Body, &event))
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status event")
	}

	archive := filepath.Join(layout.Outputs, "frames_20260218_101010.zip")
	assert.Equal(t, videoID, event.VideoID)
	assert.Equal(t, int(entity.VideoStatusProcessed), event.StatusCode)
	assert.Equal(t, archive, event.FilePath)
	assert.FileExists(t, archive)

	var status int
	var filePath string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status, file_path FROM video WHERE id=$1`, videoID).Scan(&status, &filePath))
	assert.Equal(t, 1, status)
	assert.Equal(t, archive, filePath)

	entries, err := os.ReadDir(layout.Temp)
	require.NoError(t, err)
	assert.Empty(t, entries)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()
	dlqMsg, ok, err := dlqCh.Get("video.processing.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))

	workerCancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type flakyProcessor struct {
	unresolved int
	calls      int
	processed  chan int64
}

func (p *flakyProcessor) Execute(_ context.Context, item *entity.WorkItem) (usecase.Outcome, error) {
	p.calls++
	if p.calls <= p.unresolved {
		return usecase.OutcomeUnresolved, fmt.Errorf("%w: connection refused", entity.ErrPersistence)
	}
	p.processed <- item.VideoID
	return usecase.OutcomeProcessed, nil
}

func TestWorkerRedeliversUnresolvedItem(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	log, err := logger.New("debug")
	require.NoError(t, err)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      rmqURL,
		Queue:    "video.processing",
		Exchange: "video",
	}, log)
	require.NoError(t, err)

	proc := &flakyProcessor{unresolved: 1, processed: make(chan int64, 1)}
	w := New(consumer, proc, nil, Config{
		WaitTime: time.Second,
		Backoff:  Backoff{Base: 50 * time.Millisecond, Max: 200 * time.Millisecond, Multiplier: 2},
	}, log)

	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(workerCtx) }()

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	require.NoError(t, pubCh.PublishWithContext(ctx, "video", "video.processing", false, false,
		amqp.Publishing{ContentType: "application/json", Body: []byte(`{"video_id":42,"video_path":"uploads/v.mp4","timestamp":"ts"}`)}))
	pubCh.Close()

	select {
	case id := <-proc.processed:
		assert.Equal(t, int64(42), id)
	case <-time.After(time.Minute):
		t.Fatal("item was not redelivered after being left unresolved")
	}

	workerCancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 2, proc.calls)

	// Closing the consumer would requeue an unacked delivery.
	require.NoError(t, consumer.Close())
	checkCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer checkCh.Close()
	_, ok, err := checkCh.Get("video.processing", true)
	require.NoError(t, err)
	assert.False(t, ok, "processed item should have been acknowledged")
}
