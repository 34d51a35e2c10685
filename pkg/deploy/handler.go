// Package deploy packages a registered model version for SageMaker, promotes
// it through the registry stages and renders the stage configuration files
// consumed by the deployment stack.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/archive"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

const archiveName = "model.tar.gz"

// Registry is the part of the tracking client the handler needs.
type Registry interface {
	GetModelVersion(ctx context.Context, name, version string) (*contract.ModelVersion, error)
	SearchModelVersions(ctx context.Context, filter string) ([]*contract.ModelVersion, error)
	TransitionModelVersionStage(
		ctx context.Context, name, version, stage string, archiveExistingVersions bool,
	) (*contract.ModelVersion, error)
	DownloadArtifacts(ctx context.Context, uri, dstDir string) (string, error)
}

// Storage receives the packaged model.
type Storage interface {
	DefaultBucket(ctx context.Context) (string, error)
	UploadData(ctx context.Context, localPath, bucket, key string) (string, error)
}

// Handler acts on one registered model version.
type Handler struct {
	registry     Registry
	storage      Storage
	modelName    string
	modelVersion string
	scratchDir   string
	logger       *logrus.Logger
}

// NewHandler returns a handler for name/version. An empty scratchDir uses the
// system temporary directory.
func NewHandler(
	registry Registry, storage Storage, name, version, scratchDir string, logger *logrus.Logger,
) *Handler {
	logger.Info("MLFLOW HANDLER LOADED")

	return &Handler{
		registry:     registry,
		storage:      storage,
		modelName:    name,
		modelVersion: version,
		scratchDir:   scratchDir,
		logger:       logger,
	}
}

// ArchiveKey is where the packaged model of name/version is stored.
func ArchiveKey(name, version string) string {
	return fmt.Sprintf("mlflow_model/%s-%s/%s", name, version, archiveName)
}

func (h *Handler) fail(reason Reason, err error) mo.Result[string] {
	packagingErr := &PackagingError{Reason: reason, Model: h.modelName, Version: h.modelVersion, Err: err}
	h.logger.Error(packagingErr)

	return mo.Err[string](packagingErr)
}

// PrepareSageMakerModel downloads the model version artifacts, archives them
// into a flat model.tar.gz and uploads it to the default bucket. The result
// holds the s3:// location or a *PackagingError.
func (h *Handler) PrepareSageMakerModel(ctx context.Context) mo.Result[string] {
	version, err := h.registry.GetModelVersion(ctx, h.modelName, h.modelVersion)
	if err != nil {
		return h.fail(ReasonResolveSource, err)
	}

	if version.Source == "" {
		return h.fail(ReasonResolveSource, fmt.Errorf("model version has no source"))
	}

	scratch, err := os.MkdirTemp(h.scratchDir, "mlflow-model-")
	if err != nil {
		return h.fail(ReasonDownload, err)
	}
	defer os.RemoveAll(scratch)

	h.logger.Debugf("Downloading %s", version.Source)

	localPath, err := h.registry.DownloadArtifacts(ctx, version.Source, filepath.Join(scratch, "files"))
	if err != nil {
		return h.fail(ReasonDownload, err)
	}

	tarball := filepath.Join(scratch, archiveName)
	if err := archive.MakeTarGz(tarball, localPath); err != nil {
		return h.fail(ReasonArchive, err)
	}

	bucket, err := h.storage.DefaultBucket(ctx)
	if err != nil {
		return h.fail(ReasonBucket, err)
	}

	location, err := h.storage.UploadData(ctx, tarball, bucket, ArchiveKey(h.modelName, h.modelVersion))
	if err != nil {
		return h.fail(ReasonUpload, err)
	}

	h.logger.Infof("model.tar.gz upload to %s", location)

	return mo.Ok(location)
}
