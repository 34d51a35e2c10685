package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/service"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql"
)

// Launch serves the tracking and model registry API on cfg.Address until
// ctx is cancelled.
func Launch(ctx context.Context, log *logrus.Logger, cfg *config.Config) error {
	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}

	return Serve(ctx, log, cfg, listener)
}

// Serve is Launch on an existing listener, which it closes on return.
func Serve(ctx context.Context, log *logrus.Logger, cfg *config.Config, listener net.Listener) error {
	defer listener.Close()

	artifactsRoot, err := filepath.Abs(cfg.ArtifactsDestination)
	if err != nil {
		return fmt.Errorf("failed to resolve artifacts destination: %w", err)
	}

	if err := os.MkdirAll(artifactsRoot, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts destination: %w", err)
	}

	store, err := sql.NewSQLStore(log, cfg)
	if err != nil {
		return fmt.Errorf("could not create new sql store: %w", err)
	}
	defer store.Close()

	app, err := NewApp(log, cfg, &Services{
		Tracking:      service.NewTrackingService(cfg, store),
		ModelRegistry: service.NewModelRegistryService(store),
		Artifacts:     service.NewArtifactsService(artifactsRoot),
	})
	if err != nil {
		return err
	}

	listening := make(chan struct{})
	served := make(chan struct{})

	defer close(served)

	app.Hooks().OnListen(func(fiber.ListenData) error {
		close(listening)

		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-served:
			return
		}

		select {
		case <-listening:
		case <-served:
			return
		}

		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout.Duration); err != nil {
			log.Errorf("Failed to gracefully shutdown MLflow server: %v", err)
		}

		_ = listener.Close()
	}()

	log.Infof("MLflow server listening on %s", listener.Addr())

	if err := app.Listener(listener); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to start MLflow server: %w", err)
	}

	return nil
}
