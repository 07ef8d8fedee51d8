package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/awsx"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/config"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/email"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/ffmpeg"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/gcs"
	miniostorage "github.com/the-code-crafters-hackathon/worker-service/internal/infra/minio"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/postgres"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/rabbitmq"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/s3"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/sns"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/sqs"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/storage"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/tracing"
	"github.com/the-code-crafters-hackathon/worker-service/internal/usecase"
	"go.uber.org/zap"
)

type app struct {
	store   *postgres.Store
	usecase *usecase.ProcessVideoUseCase
	queue   port.Queue
	dlq     port.DLQPublisher
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires adapters according to cfg. The queue is only connected when
// withQueue is set.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger, withQueue bool) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		a.closers = append(a.closers, func() { _ = shutdownTracer(context.Background()) })
	}

	layout := storage.NewLayout(cfg.BaseDir)
	if err := layout.Ensure(); err != nil {
		return nil, err
	}

	clients, err := awsx.Load(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
	if err != nil {
		return nil, err
	}

	dsn, err := databaseURL(ctx, cfg, clients)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := postgres.RunMigrations(dsn); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.store = postgres.NewStore(pool)

	objects, err := newObjectStore(ctx, cfg, clients, log, a)
	if err != nil {
		return nil, err
	}

	extractor := ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		FPS:         cfg.FFmpegFPS,
		Format:      cfg.FFmpegFormat,
		TempDir:     layout.Temp,
		OutputDir:   layout.Outputs,
	}, storage.NewSink(cfg.Remote(), objects, log), log)

	var publisher port.StatusPublisher
	if withQueue {
		publisher, err = connectQueue(cfg, clients, log, a)
		if err != nil {
			return nil, err
		}
	}

	a.usecase = usecase.NewProcessVideoUseCase(
		a.store, objects, extractor,
		newNotifier(cfg, clients, log),
		publisher,
		log,
		usecase.ProcessVideoConfig{UploadsDir: layout.Uploads},
	)
	return a, nil
}

// databaseURL falls back to the SSM parameter when DATABASE_URL is unset.
func databaseURL(ctx context.Context, cfg *config.Config, clients *awsx.Clients) (string, error) {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL, nil
	}
	return awsx.DatabaseURLFromSSM(ctx, clients.SSM(), cfg.DBSSMParameter)
}

func resolveDatabaseURL(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL, nil
	}
	clients, err := awsx.Load(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
	if err != nil {
		return "", err
	}
	return databaseURL(ctx, cfg, clients)
}

func newObjectStore(ctx context.Context, cfg *config.Config, clients *awsx.Clients, log *zap.Logger, a *app) (port.ObjectStore, error) {
	if !cfg.Remote() {
		return storage.NewLocalStore(log), nil
	}

	switch cfg.ObjectStoreDriver {
	case config.ObjectStoreS3:
		return s3.NewStore(clients.S3(), cfg.S3Bucket, log), nil
	case config.ObjectStoreMinIO:
		st, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	case config.ObjectStoreGCS:
		st, err := gcs.NewStore(ctx, cfg.GCSBucket, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		return st, nil
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.ObjectStoreDriver)
	}
}

// connectQueue sets a.queue and a.dlq. Status events are only published on
// the rabbitmq exchange.
func connectQueue(cfg *config.Config, clients *awsx.Clients, log *zap.Logger, a *app) (port.StatusPublisher, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverSQS:
		a.queue = sqs.NewConsumer(clients.SQS(), cfg.SQSQueueURL, log)
		return nil, nil
	case config.QueueDriverRabbitMQ:
		consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:              cfg.RabbitMQURL,
			Queue:            cfg.RabbitMQQueue,
			Exchange:         cfg.RabbitMQExchange,
			DLQ:              cfg.RabbitMQDLQ,
			StatusQueue:      cfg.RabbitMQStatusQueue,
			StatusRoutingKey: cfg.RabbitMQStatusRoutingKey,
		}, log)
		if err != nil {
			return nil, err
		}
		a.queue = consumer
		a.closers = append(a.closers, func() { _ = consumer.Close() })

		pub, err := rabbitmq.NewPublisher(consumer.Connection(), cfg.RabbitMQExchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		a.dlq = rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)
		return rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusRoutingKey), nil
	default:
		return nil, errors.New("unknown queue driver " + cfg.QueueDriver)
	}
}

// newNotifier prefers SNS, then SMTP. With neither configured the SNS notifier
// has no topic and reports every notice as not sent.
func newNotifier(cfg *config.Config, clients *awsx.Clients, log *zap.Logger) port.FailureNotifier {
	switch {
	case cfg.NotificationsTopicARN != "":
		return sns.NewNotifier(clients.SNS(), cfg.NotificationsTopicARN, log)
	case cfg.SMTPHost != "" && len(cfg.NotificationTo) > 0:
		return email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)
	default:
		log.Info("failure notifications disabled")
		return sns.NewNotifier(nil, "", log)
	}
}
