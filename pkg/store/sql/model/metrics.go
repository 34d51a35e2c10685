package model

import (
	"math"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

// Metric mapped from table <metrics>.
type Metric struct {
	Key       *string  `db:"key"       gorm:"column:key;primaryKey"`
	Value     *float64 `db:"value"     gorm:"column:value;primaryKey"`
	Timestamp *int64   `db:"timestamp" gorm:"column:timestamp;primaryKey"`
	RunID     *string  `db:"run_uuid"  gorm:"column:run_uuid;primaryKey"`
	Step      *int64   `db:"step"      gorm:"column:step;primaryKey"`
	IsNan     *bool    `db:"is_nan"    gorm:"column:is_nan;primaryKey"`
}

func (m Metric) ToContract() contract.Metric {
	value := utils.Deref(m.Value)
	if utils.Deref(m.IsNan) {
		value = math.NaN()
	}

	return contract.Metric{
		Key:       utils.Deref(m.Key),
		Value:     value,
		Timestamp: utils.Deref(m.Timestamp),
		Step:      utils.Deref(m.Step),
	}
}

// NewMetricFromContract stores NaN as a zero value flagged by is_nan since
// not every database accepts NaN in a float column.
func NewMetricFromContract(runID string, metric contract.Metric) Metric {
	isNaN := math.IsNaN(metric.Value)

	value := metric.Value
	if isNaN {
		value = 0
	}

	return Metric{
		Key:       utils.PtrTo(metric.Key),
		Value:     utils.PtrTo(value),
		Timestamp: utils.PtrTo(metric.Timestamp),
		RunID:     utils.PtrTo(runID),
		Step:      utils.PtrTo(metric.Step),
		IsNan:     utils.PtrTo(isNaN),
	}
}
