package model

import (
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

// Tag mapped from table <tags>.
type Tag struct {
	Key   *string `db:"key"      gorm:"column:key;primaryKey"`
	Value *string `db:"value"    gorm:"column:value"`
	RunID *string `db:"run_uuid" gorm:"column:run_uuid;primaryKey"`
}

func (t Tag) ToContract() contract.RunTag {
	return contract.RunTag{
		Key:   utils.Deref(t.Key),
		Value: utils.Deref(t.Value),
	}
}

func NewTagFromContract(runID string, tag contract.RunTag) Tag {
	return Tag{
		Key:   utils.PtrTo(tag.Key),
		Value: utils.PtrTo(tag.Value),
		RunID: utils.PtrTo(runID),
	}
}
