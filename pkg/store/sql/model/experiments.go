package model

import (
	"strconv"
	"time"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

const LifecycleStageActive = "active"

// Experiment mapped from table <experiments>.
type Experiment struct {
	ID               *int32  `gorm:"column:experiment_id;primaryKey;autoIncrement:true"`
	Name             *string `gorm:"column:name;not null;uniqueIndex"`
	ArtifactLocation *string `gorm:"column:artifact_location"`
	LifecycleStage   *string `gorm:"column:lifecycle_stage"`
	CreationTime     *int64  `gorm:"column:creation_time"`
	LastUpdateTime   *int64  `gorm:"column:last_update_time"`
	Tags             []ExperimentTag
	Runs             []Run
}

func (e Experiment) ToContract() *contract.Experiment {
	tags := make([]contract.ExperimentTag, len(e.Tags))
	for i, tag := range e.Tags {
		tags[i] = contract.ExperimentTag{
			Key:   utils.Deref(tag.Key),
			Value: utils.Deref(tag.Value),
		}
	}

	return &contract.Experiment{
		ExperimentID:     strconv.FormatInt(int64(utils.Deref(e.ID)), 10),
		Name:             utils.Deref(e.Name),
		ArtifactLocation: utils.Deref(e.ArtifactLocation),
		LifecycleStage:   utils.Deref(e.LifecycleStage),
		CreationTime:     utils.Deref(e.CreationTime),
		LastUpdateTime:   utils.Deref(e.LastUpdateTime),
		Tags:             tags,
	}
}

func NewExperimentFromContract(input *contract.CreateExperiment) Experiment {
	tags := make([]ExperimentTag, len(input.Tags))
	for i, tag := range input.Tags {
		tags[i] = ExperimentTag{
			Key:   utils.PtrTo(tag.Key),
			Value: utils.PtrTo(tag.Value),
		}
	}

	now := time.Now().UnixMilli()

	return Experiment{
		Name:             utils.PtrTo(input.Name),
		ArtifactLocation: utils.PtrTo(input.ArtifactLocation),
		LifecycleStage:   utils.PtrTo(LifecycleStageActive),
		CreationTime:     utils.PtrTo(now),
		LastUpdateTime:   utils.PtrTo(now),
		Tags:             tags,
	}
}
