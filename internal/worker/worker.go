package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/metrics"
	"github.com/the-code-crafters-hackathon/worker-service/internal/usecase"
	"go.uber.org/zap"
)

type Processor interface {
	Execute(ctx context.Context, item *entity.WorkItem) (usecase.Outcome, error)
}

type Config struct {
	WaitTime time.Duration
	Backoff  Backoff
}

// Worker polls one queue and handles each delivery to completion before
// receiving the next.
type Worker struct {
	id        string
	queue     port.Queue
	processor Processor
	dlq       port.DLQPublisher
	cfg       Config
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration)
}

// New builds a worker. dlq may be nil when the transport has no dead letter queue.
func New(queue port.Queue, processor Processor, dlq port.DLQPublisher, cfg Config, logger *zap.Logger) *Worker {
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 20 * time.Second
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	id := uuid.NewString()
	return &Worker{
		id:        id,
		queue:     queue,
		processor: processor,
		dlq:       dlq,
		cfg:       cfg,
		logger:    logger.With(zap.String("worker_id", id)),
		sleep:     sleepContext,
	}
}

// errRedelivery marks an item handed back to the queue without a terminal status.
var errRedelivery = errors.New("item left for redelivery")

// Run polls until ctx is cancelled. Cancellation is only observed between
// items: a delivery already received is processed to completion.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", zap.Duration("wait_time", w.cfg.WaitTime))

	failures := 0
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker shutting down")
			return nil
		}

		env, err := w.queue.Receive(ctx, w.cfg.WaitTime)
		if err != nil && ctx.Err() != nil {
			w.logger.Info("worker shutting down")
			return nil
		}
		if err == nil && env != nil {
			err = w.HandleEnvelope(context.WithoutCancel(ctx), env)
		}
		if err != nil {
			failures++
			delay := w.cfg.Backoff.Delay(failures)
			metrics.ConsecutiveFailures.Set(float64(failures))
			metrics.BackoffDelay.Observe(delay.Seconds())
			fields := []zap.Field{
				zap.Error(err),
				zap.Int("consecutive_failures", failures),
				zap.Duration("delay", delay),
			}
			if errors.Is(err, errRedelivery) {
				w.logger.Warn("item not resolved, backing off", fields...)
			} else {
				metrics.QueueErrorsTotal.WithLabelValues("poll").Inc()
				w.logger.Error("poll loop error, backing off", fields...)
			}
			w.sleep(ctx, delay)
			continue
		}
		failures = 0
		metrics.ConsecutiveFailures.Set(0)

		if env == nil {
			w.logger.Debug("no message available")
		}
	}
}

// HandleEnvelope processes one delivery and acknowledges it unless the
// outcome asks for redelivery, in which case the delivery is released and
// an error wrapping errRedelivery is returned. A panic while handling is
// returned as an error.
func (w *Worker) HandleEnvelope(ctx context.Context, env *entity.Envelope) (err error) {
	log := w.logger.With(zap.String("message_id", env.ID))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling message %s: %v", env.ID, r)
		}
	}()

	log.Info("message received")

	item, perr := w.queue.Parse(env)
	if perr != nil {
		log.Error("malformed message, dropping", zap.Error(perr), zap.ByteString("body", env.Body))
		metrics.WorkItemsTotal.WithLabelValues("malformed").Inc()
		w.deadLetter(ctx, env, perr, log)
		w.acknowledge(ctx, env, log)
		return nil
	}

	outcome, cause := w.processor.Execute(ctx, item)
	log = log.With(zap.Int64("video_id", item.VideoID), zap.Stringer("outcome", outcome))

	if outcome == usecase.OutcomeInvalid {
		w.deadLetter(ctx, env, cause, log)
	}
	if !outcome.Acknowledge() {
		log.Warn("no terminal status recorded, releasing message for redelivery", zap.Error(cause))
		w.release(ctx, env, log)
		return fmt.Errorf("%w: message %s: %v", errRedelivery, env.ID, cause)
	}
	if cause != nil {
		log.Warn("message finished with failure", zap.Error(cause))
	}
	w.acknowledge(ctx, env, log)
	return nil
}

func (w *Worker) acknowledge(ctx context.Context, env *entity.Envelope, log *zap.Logger) {
	if err := w.queue.Acknowledge(ctx, env); err != nil {
		metrics.QueueErrorsTotal.WithLabelValues("acknowledge").Inc()
		log.Error("failed to acknowledge message", zap.Error(err))
		return
	}
	log.Debug("message acknowledged")
}

func (w *Worker) release(ctx context.Context, env *entity.Envelope, log *zap.Logger) {
	if err := w.queue.Release(ctx, env); err != nil {
		metrics.QueueErrorsTotal.WithLabelValues("release").Inc()
		log.Error("failed to release message", zap.Error(err))
		return
	}
	log.Debug("message released")
}

func (w *Worker) deadLetter(ctx context.Context, env *entity.Envelope, cause error, log *zap.Logger) {
	if w.dlq == nil {
		return
	}
	reason := "invalid work item"
	if cause != nil {
		reason = cause.Error()
	}
	if err := w.dlq.PublishToDLQ(ctx, env.Body, reason); err != nil {
		log.Error("failed to publish to dead letter queue", zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
