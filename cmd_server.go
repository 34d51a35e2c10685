package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/server"
)

func runServer(ctx context.Context, cfg *config.Config, logLevel string, logger *logrus.Logger) error {
	cfg.LogLevel = logLevel
	cfg.Version = version

	return server.Launch(ctx, logger, cfg)
}
