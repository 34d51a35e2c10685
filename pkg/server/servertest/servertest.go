// Package servertest runs a throwaway tracking server for tests.
package servertest

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/server"
)

// Start serves a fresh sqlite backed server on a loopback port and returns
// its base URL. The server stops when the test ends.
func Start(t testing.TB) string {
	t.Helper()

	dir := t.TempDir()

	cfg := &config.Config{
		StoreURL:             "sqlite:///" + filepath.Join(dir, "mlflow.db"),
		ArtifactsDestination: filepath.Join(dir, "mlartifacts"),
		DefaultArtifactRoot:  "mlflow-artifacts:/",
		ShutdownTimeout:      config.Duration{Duration: 5 * time.Second},
		Version:              "test",
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Serve(ctx, logger, cfg, listener)
	}()

	t.Cleanup(func() {
		cancel()

		if err := <-done; err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	})

	return "http://" + listener.Addr().String()
}
