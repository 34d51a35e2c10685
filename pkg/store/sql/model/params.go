package model

import (
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

// Param mapped from table <params>.
type Param struct {
	Key   *string `db:"key"      gorm:"column:key;primaryKey"`
	Value *string `db:"value"    gorm:"column:value;not null"`
	RunID *string `db:"run_uuid" gorm:"column:run_uuid;primaryKey"`
}

func (p Param) ToContract() contract.Param {
	return contract.Param{
		Key:   utils.Deref(p.Key),
		Value: utils.Deref(p.Value),
	}
}

func NewParamFromContract(runID string, p contract.Param) Param {
	return Param{
		Key:   utils.PtrTo(p.Key),
		Value: utils.PtrTo(p.Value),
		RunID: &runID,
	}
}
