package contract

type ExperimentTag struct {
	Key   string `json:"key"   validate:"required,max=250"`
	Value string `json:"value" validate:"max=5000"`
}

type Experiment struct {
	ExperimentID     string          `json:"experiment_id"`
	Name             string          `json:"name"`
	ArtifactLocation string          `json:"artifact_location,omitempty"`
	LifecycleStage   string          `json:"lifecycle_stage,omitempty"`
	CreationTime     int64           `json:"creation_time,omitempty"`
	LastUpdateTime   int64           `json:"last_update_time,omitempty"`
	Tags             []ExperimentTag `json:"tags,omitempty"`
}

type CreateExperiment struct {
	Name             string          `json:"name"                        validate:"required,max=500"`
	ArtifactLocation string          `json:"artifact_location,omitempty" validate:"uriWithoutFragmentsOrParamsOrDotDotInQuery"`
	Tags             []ExperimentTag `json:"tags,omitempty"              validate:"dive"`
}

type CreateExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

type GetExperiment struct {
	ExperimentID string `query:"experiment_id" validate:"required,stringAsPositiveInteger"`
}

type GetExperimentByName struct {
	ExperimentName string `query:"experiment_name" validate:"required"`
}

type GetExperimentResponse struct {
	Experiment *Experiment `json:"experiment"`
}
