package model

import (
	"math"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

// LatestMetric mapped from table <latest_metrics>.
type LatestMetric struct {
	Key       *string  `db:"key"       gorm:"column:key;primaryKey"`
	Value     *float64 `db:"value"     gorm:"column:value;not null"`
	Timestamp *int64   `db:"timestamp" gorm:"column:timestamp"`
	Step      *int64   `db:"step"      gorm:"column:step;not null"`
	IsNan     *bool    `db:"is_nan"    gorm:"column:is_nan;not null"`
	RunID     *string  `db:"run_uuid"  gorm:"column:run_uuid;primaryKey"`
}

func (lm LatestMetric) ToContract() contract.Metric {
	value := utils.Deref(lm.Value)
	if utils.Deref(lm.IsNan) {
		value = math.NaN()
	}

	return contract.Metric{
		Key:       utils.Deref(lm.Key),
		Value:     value,
		Timestamp: utils.Deref(lm.Timestamp),
		Step:      utils.Deref(lm.Step),
	}
}

// Supersedes reports whether lm should replace other as the latest value,
// ordering by step, then timestamp, then value.
func (lm LatestMetric) Supersedes(other LatestMetric) bool {
	switch {
	case utils.Deref(lm.Step) != utils.Deref(other.Step):
		return utils.Deref(lm.Step) > utils.Deref(other.Step)
	case utils.Deref(lm.Timestamp) != utils.Deref(other.Timestamp):
		return utils.Deref(lm.Timestamp) > utils.Deref(other.Timestamp)
	default:
		return utils.Deref(lm.Value) >= utils.Deref(other.Value)
	}
}

func (m Metric) AsLatestMetric() LatestMetric {
	return LatestMetric{
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Timestamp,
		Step:      m.Step,
		IsNan:     m.IsNan,
		RunID:     m.RunID,
	}
}
