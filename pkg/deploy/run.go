package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// Args of the promotion entry point.
type Args struct {
	ModelExecutionRole   string `arg:"--model-execution-role,required"        help:"execution role ARN of the SageMaker model"`
	ProjectID            string `arg:"--sagemaker-project-id,required"        help:"SageMaker project id"`
	ProjectName          string `arg:"--sagemaker-project-name,required"      help:"SageMaker project name"`
	ImportStagingConfig  string `arg:"--import-staging-config"                default:"staging-config.json"`
	ImportProdConfig     string `arg:"--import-prod-config"                   default:"prod-config.json"`
	ExportStagingConfig  string `arg:"--export-staging-config"                default:"staging-config-export.json"`
	ExportProdConfig     string `arg:"--export-prod-config"                   default:"prod-config-export.json"`
	TrackingURI          string `arg:"--tracking-uri,required,env:MLFLOW_TRACKING_URI" help:"MLflow tracking server URI"`
	ModelName            string `arg:"--model-name,required"                  help:"registered model name"`
	ModelVersion         string `arg:"--model-version,required"               help:"registered model version"`
	ContainerImageURI    string `arg:"--container-image-uri,required"         help:"inference image"`
	InitialInstanceCount string `arg:"--initial-instance-count,required"      help:"endpoint instance count"`
	InstanceType         string `arg:"--instance-type,required"               help:"endpoint instance type"`
	Stage                string `arg:"--stage"                                default:"Staging" help:"stage the version is promoted to"`
	ScratchDir           string `arg:"--scratch-dir"                          help:"directory for temporary files"`
}

func (a Args) deploymentParams(modelDataLocation string) DeploymentParams {
	return DeploymentParams{
		ProjectID:             a.ProjectID,
		ProjectName:           a.ProjectName,
		ModelDataLocation:     modelDataLocation,
		ContainerImageURI:     a.ContainerImageURI,
		ModelExecutionRoleArn: a.ModelExecutionRole,
		EndpointInstanceCount: a.InitialInstanceCount,
		EndpointInstanceType:  a.InstanceType,
		ModelName:             a.ModelName,
		ModelVersion:          a.ModelVersion,
		TrackingURI:           a.TrackingURI,
	}
}

func extendFile(params DeploymentParams, importPath, exportPath string, logger *logrus.Logger) error {
	doc, err := ReadDocument(importPath)
	if err != nil {
		return err
	}

	extended, err := Extend(params, doc)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = importPath + ": " + cfgErr.Path
		}

		return err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if raw, err := extended.Marshal(); err == nil {
			logger.Debugf("Config %s: %s", exportPath, raw)
		}
	}

	return WriteDocument(exportPath, extended)
}

// Run packages the model version, writes both stage configurations and
// promotes the version. Nothing is written when packaging fails.
func Run(ctx context.Context, args Args, registry Registry, storage Storage, logger *logrus.Logger) error {
	if _, ok := contract.CanonicalStage(args.Stage); !ok {
		return fmt.Errorf("invalid stage %q", args.Stage)
	}

	handler := NewHandler(registry, storage, args.ModelName, args.ModelVersion, args.ScratchDir, logger)

	location, err := handler.PrepareSageMakerModel(ctx).Get()
	if err != nil {
		return err
	}

	params := args.deploymentParams(location)

	if err := extendFile(params, args.ImportStagingConfig, args.ExportStagingConfig, logger); err != nil {
		return err
	}

	if err := extendFile(params, args.ImportProdConfig, args.ExportProdConfig, logger); err != nil {
		return err
	}

	_, err = handler.TransitionModelVersionStage(ctx, args.Stage)

	return err
}

type ReconcileArgs struct {
	TrackingURI string `arg:"--tracking-uri,required,env:MLFLOW_TRACKING_URI" help:"MLflow tracking server URI"`
	ModelName   string `arg:"--model-name,required"                           help:"registered model name"`
}

// Reconcile archives the extra occupants of the active stages of a model.
func Reconcile(ctx context.Context, args ReconcileArgs, registry Registry, logger *logrus.Logger) (*TransitionReport, error) {
	return NewHandler(registry, nil, args.ModelName, "", "", logger).Reconcile(ctx)
}
