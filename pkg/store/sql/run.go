package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql/model"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

const (
	runNameTagKey = "mlflow.runName"
	userTagKey    = "mlflow.user"
)

func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Store) CreateRun(input *contract.CreateRun) (*contract.Run, *contract.Error) {
	experiment, contractError := s.GetExperiment(input.ExperimentID)
	if contractError != nil {
		return nil, contractError
	}

	if experiment.LifecycleStage != model.LifecycleStageActive {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("The experiment %s must be in the 'active' state.", experiment.ExperimentID),
		)
	}

	runID := newRunID()

	runName := input.RunName
	tags := make([]model.Tag, 0, len(input.Tags)+1)

	for _, tag := range input.Tags {
		if tag.Key == runNameTagKey && runName == "" {
			runName = tag.Value
		}

		if tag.Key != runNameTagKey {
			tags = append(tags, model.NewTagFromContract(runID, tag))
		}
	}

	if runName != "" {
		tags = append(tags, model.NewTagFromContract(runID, contract.RunTag{Key: runNameTagKey, Value: runName}))
	}

	startTime := input.StartTime
	if startTime == 0 {
		startTime = time.Now().UnixMilli()
	}

	experimentID, _ := strconv.ParseInt(experiment.ExperimentID, 10, 32)

	run := model.Run{
		ID:             utils.PtrTo(runID),
		Name:           utils.PtrTo(runName),
		SourceType:     utils.PtrTo("UNKNOWN"),
		SourceName:     utils.PtrTo(""),
		EntryPointName: utils.PtrTo(""),
		UserID:         utils.PtrTo(input.UserID),
		Status:         utils.PtrTo(string(contract.RunStatusRunning)),
		StartTime:      utils.PtrTo(startTime),
		SourceVersion:  utils.PtrTo(""),
		LifecycleStage: utils.PtrTo(model.LifecycleStageActive),
		ArtifactURI:    utils.PtrTo(strings.TrimRight(experiment.ArtifactLocation, "/") + "/" + runID + "/artifacts"),
		ExperimentID:   utils.PtrTo(int32(experimentID)),
		Tags:           tags,
	}

	if err := s.db.Create(&run).Error; err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to create run for experiment %s", experiment.ExperimentID),
			err,
		)
	}

	return run.ToContract(), nil
}

func (s *Store) getRun(transaction *gorm.DB, runID string) (*model.Run, *contract.Error) {
	run := model.Run{ID: utils.PtrTo(runID)}
	if err := transaction.Preload("LatestMetrics").Preload("Params").Preload("Tags").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Run with id=%s not found", runID),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get run %q", runID),
			err,
		)
	}

	return &run, nil
}

func (s *Store) GetRun(runID string) (*contract.Run, *contract.Error) {
	run, contractError := s.getRun(s.db, runID)
	if contractError != nil {
		return nil, contractError
	}

	return run.ToContract(), nil
}

func (s *Store) UpdateRun(input *contract.UpdateRun) (*contract.RunInfo, *contract.Error) {
	var info *contract.RunInfo

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		if contractError := checkRunIsActive(transaction, input.RunID); contractError != nil {
			return contractError
		}

		columns := make(map[string]any)
		if input.Status != "" {
			columns["status"] = string(input.Status)
		}

		if input.EndTime != 0 {
			columns["end_time"] = input.EndTime
		}

		if input.RunName != "" {
			columns["name"] = input.RunName

			if err := s.setTagsWithTransaction(transaction, input.RunID, []contract.RunTag{
				{Key: runNameTagKey, Value: input.RunName},
			}); err != nil {
				return err
			}
		}

		if len(columns) != 0 {
			if err := transaction.Model(&model.Run{}).
				Where("run_uuid = ?", input.RunID).
				UpdateColumns(columns).Error; err != nil {
				return fmt.Errorf("failed to update run %q: %w", input.RunID, err)
			}
		}

		run, contractError := s.getRun(transaction, input.RunID)
		if contractError != nil {
			return contractError
		}

		info = run.ToRunInfo()

		return nil
	})
	if err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return nil, contractError
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("update run transaction failed for %q", input.RunID),
			err,
		)
	}

	return info, nil
}
