package store

import (
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

type TrackingStore interface {
	// Get an experiment by the experiment ID.
	// The experiment should contain the linked tags.
	GetExperiment(id string) (*contract.Experiment, *contract.Error)
	GetExperimentByName(name string) (*contract.Experiment, *contract.Error)
	CreateExperiment(input *contract.CreateExperiment) (string, *contract.Error)

	CreateRun(input *contract.CreateRun) (*contract.Run, *contract.Error)
	UpdateRun(input *contract.UpdateRun) (*contract.RunInfo, *contract.Error)
	// Get a run with its params, tags and the latest value of every metric.
	GetRun(runID string) (*contract.Run, *contract.Error)

	LogBatch(
		runID string,
		metrics []contract.Metric,
		params []contract.Param,
		tags []contract.RunTag,
	) *contract.Error
}

type ModelRegistryStore interface {
	CreateRegisteredModel(input *contract.CreateRegisteredModel) (*contract.RegisteredModel, *contract.Error)
	GetRegisteredModel(name string) (*contract.RegisteredModel, *contract.Error)

	// Versions are numbered per registered model starting at 1.
	CreateModelVersion(input *contract.CreateModelVersion) (*contract.ModelVersion, *contract.Error)
	GetModelVersion(name, version string) (*contract.ModelVersion, *contract.Error)
	GetModelVersionDownloadURI(name, version string) (string, *contract.Error)
	SearchModelVersions(
		filter string,
		maxResults int,
		orderBy []string,
		pageToken string,
	) (*PagedList[*contract.ModelVersion], *contract.Error)

	// Moves a version to stage. With archiveExisting, every other version of
	// the model in that stage is moved to Archived in the same transaction.
	TransitionModelVersionStage(
		name, version, stage string,
		archiveExisting bool,
	) (*contract.ModelVersion, *contract.Error)
}

type MlflowStore interface {
	TrackingStore
	ModelRegistryStore
	Close() error
}

type PagedList[T any] struct {
	Items         []T
	NextPageToken *string
}
