package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/config"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/httpapi"
	"github.com/the-code-crafters-hackathon/worker-service/internal/infra/postgres"
	"github.com/the-code-crafters-hackathon/worker-service/internal/usecase"
	"github.com/the-code-crafters-hackathon/worker-service/internal/worker"
	"github.com/the-code-crafters-hackathon/worker-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "worker",
		Short:        "Extracts frames from uploaded videos delivered through a work queue",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Poll the queue and process videos until interrupted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWorker(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context())
			},
		},
		newProcessCmd(),
	)
	return root
}

func newProcessCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process a single work item read from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd.Context(), payload, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "-", "path to the work item JSON")
	return cmd
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runWorker(parent context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting frames-worker",
		zap.String("deploy_mode", cfg.DeployMode),
		zap.String("queue_driver", cfg.QueueDriver),
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := buildApp(ctx, cfg, log, true)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	httpSrv := httpapi.Start(cfg.HTTPPort, httpapi.NewRouter(a.store, log), log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	w := worker.New(a.queue, a.usecase, a.dlq, worker.Config{
		WaitTime: cfg.QueueWait(),
		Backoff: worker.Backoff{
			Base:       cfg.BackoffBase(),
			Max:        cfg.BackoffMax(),
			Multiplier: cfg.BackoffMultiplier,
		},
	}, log)

	runErr := w.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpapi.Shutdown(shutdownCtx, httpSrv, log)

	log.Info("frames-worker stopped")
	return runErr
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	dsn, err := resolveDatabaseURL(ctx, cfg)
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(dsn); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runProcess(ctx context.Context, payload string, stdin io.Reader, out io.Writer) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var body []byte
	if payload == "-" {
		body, err = io.ReadAll(stdin)
	} else {
		body, err = os.ReadFile(payload)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	item, err := entity.ParseWorkItem(body)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, cause := a.usecase.Execute(ctx, item)
	fmt.Fprintf(out, "video %d: %s\n", item.VideoID, outcome)
	if outcome != usecase.OutcomeProcessed {
		return fmt.Errorf("video %d not processed: %w", item.VideoID, cause)
	}
	return nil
}
