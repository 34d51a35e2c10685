package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/deploy"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/sagemaker"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/tracking"
)

type (
	PromotionArgs = deploy.Args
	AWSArgs       = sagemaker.Args
)

type deployArgs struct {
	PromotionArgs
	AWSArgs
}

type reconcileArgs struct {
	deploy.ReconcileArgs
}

func runDeploy(ctx context.Context, args *deployArgs, logger *logrus.Logger) error {
	client, err := tracking.NewClient(args.TrackingURI, tracking.WithLogger(logger))
	if err != nil {
		return err
	}

	session, err := sagemaker.NewSession(args.AWSArgs, logger)
	if err != nil {
		return err
	}

	return deploy.Run(ctx, args.PromotionArgs, client, session, logger)
}

func runReconcile(ctx context.Context, args *reconcileArgs, logger *logrus.Logger) error {
	client, err := tracking.NewClient(args.TrackingURI, tracking.WithLogger(logger))
	if err != nil {
		return err
	}

	report, err := deploy.Reconcile(ctx, args.ReconcileArgs, client, logger)
	if err != nil {
		return err
	}

	for stage, version := range report.Kept {
		logger.Infof("%s/%s holds %s", report.ModelName, version, stage)
	}

	return nil
}
