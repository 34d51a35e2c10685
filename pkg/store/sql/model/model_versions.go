package model

import (
	"strconv"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// ModelVersion mapped from table <model_versions>.
type ModelVersion struct {
	Name            string            `db:"name"              gorm:"column:name;primaryKey"`
	Version         int32             `db:"version"           gorm:"column:version;primaryKey;autoIncrement:false"`
	CreationTime    int64             `db:"creation_time"     gorm:"column:creation_time"`
	LastUpdatedTime int64             `db:"last_updated_time" gorm:"column:last_updated_time"`
	Description     string            `db:"description"       gorm:"column:description"`
	UserID          string            `db:"user_id"           gorm:"column:user_id"`
	CurrentStage    string            `db:"current_stage"     gorm:"column:current_stage"`
	Source          string            `db:"source"            gorm:"column:source"`
	RunID           string            `db:"run_id"            gorm:"column:run_id"`
	Status          string            `db:"status"            gorm:"column:status"`
	StatusMessage   string            `db:"status_message"    gorm:"column:status_message"`
	RunLink         string            `db:"run_link"          gorm:"column:run_link"`
	StorageLocation string            `db:"storage_location"  gorm:"column:storage_location"`
	Tags            []ModelVersionTag `gorm:"foreignKey:Name,Version;references:Name,Version"`
}

// ModelVersionTag mapped from table <model_version_tags>.
type ModelVersionTag struct {
	Key     string `db:"key"     gorm:"column:key;primaryKey"`
	Value   string `db:"value"   gorm:"column:value"`
	Name    string `db:"name"    gorm:"column:name;primaryKey"`
	Version int32  `db:"version" gorm:"column:version;primaryKey;autoIncrement:false"`
}

func (mv ModelVersion) ToContract() *contract.ModelVersion {
	tags := make([]contract.ModelVersionTag, len(mv.Tags))
	for i, tag := range mv.Tags {
		tags[i] = contract.ModelVersionTag{Key: tag.Key, Value: tag.Value}
	}

	return &contract.ModelVersion{
		Name:                 mv.Name,
		Version:              strconv.FormatInt(int64(mv.Version), 10),
		CreationTimestamp:    mv.CreationTime,
		LastUpdatedTimestamp: mv.LastUpdatedTime,
		UserID:               mv.UserID,
		CurrentStage:         mv.CurrentStage,
		Description:          mv.Description,
		Source:               mv.Source,
		RunID:                mv.RunID,
		Status:               mv.Status,
		StatusMessage:        mv.StatusMessage,
		RunLink:              mv.RunLink,
		Tags:                 tags,
	}
}
