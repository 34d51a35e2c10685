package model

import (
	"time"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// RegisteredModel mapped from table <registered_models>.
type RegisteredModel struct {
	Name            string               `db:"name"              gorm:"column:name;primaryKey"`
	CreationTime    int64                `db:"creation_time"     gorm:"column:creation_time"`
	LastUpdatedTime int64                `db:"last_updated_time" gorm:"column:last_updated_time"`
	Description     string               `db:"description"       gorm:"column:description"`
	Tags            []RegisteredModelTag `gorm:"foreignKey:Name;references:Name"`
	Versions        []ModelVersion       `gorm:"foreignKey:Name;references:Name"`
}

// RegisteredModelTag mapped from table <registered_model_tags>.
type RegisteredModelTag struct {
	Key   string `db:"key"   gorm:"column:key;primaryKey"`
	Value string `db:"value" gorm:"column:value"`
	Name  string `db:"name"  gorm:"column:name;primaryKey"`
}

func (m RegisteredModel) ToContract() *contract.RegisteredModel {
	tags := make([]contract.RegisteredModelTag, len(m.Tags))
	for i, tag := range m.Tags {
		tags[i] = contract.RegisteredModelTag{Key: tag.Key, Value: tag.Value}
	}

	return &contract.RegisteredModel{
		Name:                 m.Name,
		CreationTimestamp:    m.CreationTime,
		LastUpdatedTimestamp: m.LastUpdatedTime,
		Description:          m.Description,
		Tags:                 tags,
	}
}

func NewRegisteredModelFromContract(input *contract.CreateRegisteredModel) RegisteredModel {
	tags := make([]RegisteredModelTag, len(input.Tags))
	for i, tag := range input.Tags {
		tags[i] = RegisteredModelTag{Key: tag.Key, Value: tag.Value, Name: input.Name}
	}

	now := time.Now().UnixMilli()

	return RegisteredModel{
		Name:            input.Name,
		CreationTime:    now,
		LastUpdatedTime: now,
		Description:     input.Description,
		Tags:            tags,
	}
}
