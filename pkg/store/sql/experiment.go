package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql/model"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

func (s *Store) GetExperiment(id string) (*contract.Experiment, *contract.Error) {
	idInt, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("failed to convert experiment id %q to int", id),
			err,
		)
	}

	experiment := model.Experiment{ID: utils.PtrTo(int32(idInt))}
	if err := s.db.Preload("Tags").First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("No Experiment with id=%d exists", idInt),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to get experiment",
			err,
		)
	}

	return experiment.ToContract(), nil
}

func (s *Store) GetExperimentByName(name string) (*contract.Experiment, *contract.Error) {
	var experiment model.Experiment
	if err := s.db.Preload("Tags").Where("name = ?", name).First(&experiment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Could not find experiment with name '%s'", name),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get experiment %q", name),
			err,
		)
	}

	return experiment.ToContract(), nil
}

var errExperimentExists = errors.New("experiment already exists")

func (s *Store) CreateExperiment(input *contract.CreateExperiment) (string, *contract.Error) {
	experiment := model.NewExperimentFromContract(input)

	if err := s.db.Transaction(func(transaction *gorm.DB) error {
		var count int64
		if err := transaction.Model(&model.Experiment{}).Where("name = ?", input.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up experiment by name: %w", err)
		}

		if count > 0 {
			return errExperimentExists
		}

		if err := transaction.Create(&experiment).Error; err != nil {
			return fmt.Errorf("failed to insert experiment: %w", err)
		}

		if utils.IsNilOrEmptyString(experiment.ArtifactLocation) {
			artifactLocation := strings.TrimRight(s.config.DefaultArtifactRoot, "/") + "/" + strconv.Itoa(int(*experiment.ID))
			experiment.ArtifactLocation = &artifactLocation

			if err := transaction.Model(&experiment).UpdateColumn("artifact_location", artifactLocation).Error; err != nil {
				return fmt.Errorf("failed to update experiment artifact location: %w", err)
			}
		}

		return nil
	}); err != nil {
		if errors.Is(err, errExperimentExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Experiment(name=%s) already exists.", input.Name),
			)
		}

		return "", contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to create experiment", err)
	}

	return strconv.Itoa(int(*experiment.ID)), nil
}
