package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Outcome is the terminal classification of one work item.
type Outcome int

const (
	OutcomeProcessed Outcome = iota + 1
	OutcomeFailed
	OutcomeInvalid
	OutcomeNotFound
	// OutcomeUnresolved means no terminal status could be recorded.
	OutcomeUnresolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeFailed:
		return "failed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Acknowledge reports whether the delivery should be removed from the queue.
// Only unresolved items are left for redelivery.
func (o Outcome) Acknowledge() bool {
	return o != OutcomeUnresolved
}

type ProcessVideoUseCase struct {
	store      port.StatusStore
	objects    port.ObjectStore
	extractor  port.FrameExtractor
	notifier   port.FailureNotifier
	publisher  port.StatusPublisher
	uploadsDir string
	logger     *zap.Logger
}

type ProcessVideoConfig struct {
	UploadsDir string
}

// NewProcessVideoUseCase wires the pipeline. publisher may be nil.
func NewProcessVideoUseCase(
	store port.StatusStore,
	objects port.ObjectStore,
	extractor port.FrameExtractor,
	notifier port.FailureNotifier,
	publisher port.StatusPublisher,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		store:      store,
		objects:    objects,
		extractor:  extractor,
		notifier:   notifier,
		publisher:  publisher,
		uploadsDir: cfg.UploadsDir,
		logger:     logger,
	}
}

// Execute runs one work item to a terminal status. The returned error is the
// cause of a non-processed outcome and is meant for logging only.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, item *entity.WorkItem) (Outcome, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()
	metrics.InFlightItems.Inc()
	defer metrics.InFlightItems.Dec()

	outcome, err := uc.execute(ctx, item)

	metrics.WorkItemsTotal.WithLabelValues(outcome.String()).Inc()
	metrics.ProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	span.SetAttributes(attribute.String("work_item.outcome", outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func (uc *ProcessVideoUseCase) execute(ctx context.Context, item *entity.WorkItem) (Outcome, error) {
	if err := item.Validate(); err != nil {
		uc.logger.Error("invalid work item", zap.Error(err))
		return OutcomeInvalid, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("video.id", item.VideoID),
		attribute.String("video.path", item.VideoPath),
	)

	_, span := otel.Tracer("usecase").Start(ctx, "open_session")
	repo, err := uc.store.Open(ctx)
	span.End()
	log := uc.logger.With(zap.Int64("video_id", item.VideoID), zap.String("timestamp", item.Timestamp))
	if err != nil {
		log.Error("failed to open status session", zap.Error(err))
		return OutcomeUnresolved, err
	}
	defer repo.Close()

	localPath, err := uc.stage(ctx, item, log)
	if localPath != "" && localPath != item.VideoPath {
		defer uc.removeStaged(localPath, log)
	}
	if err != nil {
		return uc.fail(ctx, repo, item, err, log)
	}

	exStart := time.Now()
	exCtx, exSpan := otel.Tracer("usecase").Start(ctx, "extract_frames")
	result, err := uc.extractor.Extract(exCtx, localPath, item.Timestamp)
	exSpan.End()
	if err != nil {
		log.Error("frame extraction failed", zap.Error(err))
		return uc.fail(ctx, repo, item, err, log)
	}
	metrics.ProcessingDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(result.FrameCount))

	video, err := repo.UpdateStatus(ctx, item.VideoID, entity.VideoStatusProcessed, result.ArchiveLocation)
	if err != nil {
		log.Error("failed to record processed status", zap.Error(err))
		return uc.fail(ctx, repo, item, err, log)
	}

	uc.publishStatus(ctx, entity.StatusEvent{
		VideoID:    item.VideoID,
		Status:     video.Status.String(),
		StatusCode: int(video.Status),
		FilePath:   video.FilePath,
	}, log)

	log.Info("video processed",
		zap.Int("frame_count", result.FrameCount),
		zap.Float64("duration_secs", result.VideoDuration),
		zap.String("archive", result.ArchiveLocation),
	)
	return OutcomeProcessed, nil
}

// stage returns the local path extraction should read. Remote references are
// downloaded under uploads/ with the timestamp as a prefix.
func (uc *ProcessVideoUseCase) stage(ctx context.Context, item *entity.WorkItem, log *zap.Logger) (string, error) {
	key, remote := entity.ExtractObjectKey(item.VideoPath, item.ObjectKey)
	if !remote {
		return item.VideoPath, nil
	}

	localPath := filepath.Join(uc.uploadsDir, item.Timestamp+"_"+stagedName(key, item.Timestamp))

	start := time.Now()
	ctx, span := otel.Tracer("usecase").Start(ctx, "stage_video")
	defer span.End()

	if err := uc.objects.Download(ctx, key, localPath); err != nil {
		log.Error("failed to stage video", zap.String("object_key", key), zap.Error(err))
		return localPath, fmt.Errorf("%w: %s: %v", entity.ErrStaging, key, err)
	}
	metrics.ProcessingDuration.WithLabelValues("stage").Observe(time.Since(start).Seconds())
	log.Info("video staged", zap.String("object_key", key), zap.String("local_path", localPath))
	return localPath, nil
}

func stagedName(key, timestamp string) string {
	name := path.Base(key)
	if !entity.SafePathComponent(name) {
		return "video_" + timestamp + ".mp4"
	}
	return name
}

func (uc *ProcessVideoUseCase) removeStaged(localPath string, log *zap.Logger) {
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove staged video", zap.String("path", localPath), zap.Error(err))
	}
}

// fail records the Failed status and notifies. Neither step may replace cause.
func (uc *ProcessVideoUseCase) fail(ctx context.Context, repo port.StatusRepository, item *entity.WorkItem, cause error, log *zap.Logger) (Outcome, error) {
	outcome := OutcomeFailed
	if _, err := repo.UpdateStatus(ctx, item.VideoID, entity.VideoStatusFailed, ""); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			outcome = OutcomeNotFound
		} else {
			outcome = OutcomeUnresolved
		}
		log.Error("failed to record failed status", zap.Error(err), zap.NamedError("cause", cause))
	} else {
		uc.publishStatus(ctx, entity.StatusEvent{
			VideoID:    item.VideoID,
			Status:     entity.VideoStatusFailed.String(),
			StatusCode: int(entity.VideoStatusFailed),
			Error:      cause.Error(),
		}, log)
	}

	uc.notify(ctx, repo, item, cause, log)
	return outcome, cause
}

func (uc *ProcessVideoUseCase) notify(ctx context.Context, repo port.StatusRepository, item *entity.WorkItem, cause error, log *zap.Logger) {
	if uc.notifier == nil {
		return
	}

	userID := item.UserID
	if userID == nil {
		video, err := repo.GetByID(ctx, item.VideoID)
		if err != nil {
			log.Warn("could not resolve user for notification", zap.Error(err))
		} else if video != nil {
			userID = &video.UserID
		}
	}

	sent, err := uc.notifier.NotifyFailure(ctx, entity.FailureNotice{
		VideoID: item.VideoID,
		UserID:  userID,
		Error:   cause.Error(),
	})
	switch {
	case err != nil:
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		log.Warn("failure notification not delivered", zap.Error(err))
	case sent:
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues("disabled").Inc()
	}
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, event entity.StatusEvent, log *zap.Logger) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishStatus(ctx, event); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
