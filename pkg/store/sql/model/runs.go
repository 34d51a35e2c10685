package model

import (
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

// Run mapped from table <runs>.
type Run struct {
	ID             *string `db:"run_uuid"         gorm:"column:run_uuid;primaryKey"`
	Name           *string `db:"name"             gorm:"column:name"`
	SourceType     *string `db:"source_type"      gorm:"column:source_type"`
	SourceName     *string `db:"source_name"      gorm:"column:source_name"`
	EntryPointName *string `db:"entry_point_name" gorm:"column:entry_point_name"`
	UserID         *string `db:"user_id"          gorm:"column:user_id"`
	Status         *string `db:"status"           gorm:"column:status"`
	StartTime      *int64  `db:"start_time"       gorm:"column:start_time"`
	EndTime        *int64  `db:"end_time"         gorm:"column:end_time"`
	SourceVersion  *string `db:"source_version"   gorm:"column:source_version"`
	LifecycleStage *string `db:"lifecycle_stage"  gorm:"column:lifecycle_stage"`
	ArtifactURI    *string `db:"artifact_uri"     gorm:"column:artifact_uri"`
	ExperimentID   *int32  `db:"experiment_id"    gorm:"column:experiment_id"`
	DeletedTime    *int64  `db:"deleted_time"     gorm:"column:deleted_time"`
	Params         []Param
	Tags           []Tag
	Metrics        []Metric
	LatestMetrics  []LatestMetric
}

func RunStatusToContract(status *string) contract.RunStatus {
	switch contract.RunStatus(utils.Deref(status)) {
	case contract.RunStatusRunning:
		return contract.RunStatusRunning
	case contract.RunStatusScheduled:
		return contract.RunStatusScheduled
	case contract.RunStatusFinished:
		return contract.RunStatusFinished
	case contract.RunStatusKilled:
		return contract.RunStatusKilled
	default:
		return contract.RunStatusFailed
	}
}

func (r Run) ToRunInfo() *contract.RunInfo {
	return &contract.RunInfo{
		RunID:          utils.Deref(r.ID),
		RunUUID:        utils.Deref(r.ID),
		RunName:        utils.Deref(r.Name),
		ExperimentID:   utils.Deref(utils.ConvertInt32PointerToStringPointer(r.ExperimentID)),
		UserID:         utils.Deref(r.UserID),
		Status:         RunStatusToContract(r.Status),
		StartTime:      utils.Deref(r.StartTime),
		EndTime:        utils.Deref(r.EndTime),
		ArtifactURI:    utils.Deref(r.ArtifactURI),
		LifecycleStage: utils.Deref(r.LifecycleStage),
	}
}

// ToContract reports the latest value of each metric, matching what the
// tracking API returns for a run.
func (r Run) ToContract() *contract.Run {
	metrics := make([]contract.Metric, 0, len(r.LatestMetrics))
	for _, metric := range r.LatestMetrics {
		metrics = append(metrics, metric.ToContract())
	}

	params := make([]contract.Param, 0, len(r.Params))
	for _, param := range r.Params {
		params = append(params, param.ToContract())
	}

	tags := make([]contract.RunTag, 0, len(r.Tags))
	for _, tag := range r.Tags {
		tags = append(tags, tag.ToContract())
	}

	return &contract.Run{
		Info: *r.ToRunInfo(),
		Data: contract.RunData{
			Metrics: metrics,
			Params:  params,
			Tags:    tags,
		},
	}
}
