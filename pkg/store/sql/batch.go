package sql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql/model"
)

const batchSize = 100

func checkRunIsActive(transaction *gorm.DB, runID string) *contract.Error {
	var runs []model.Run

	err := transaction.
		Model(&model.Run{}).
		Where("run_uuid = ?", runID).
		Select("lifecycle_stage").
		Limit(1).
		Find(&runs).
		Error
	if err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get lifecycle stage for run %q", runID),
			err,
		)
	}

	if len(runs) == 0 {
		return contract.NewError(
			contract.ErrorCodeResourceDoesNotExist,
			fmt.Sprintf("Run with id=%s not found", runID),
		)
	}

	if stage := runs[0].LifecycleStage; stage == nil || *stage != model.LifecycleStageActive {
		return contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("The run %s must be in the 'active' state.", runID),
		)
	}

	return nil
}

func (s *Store) setTagsWithTransaction(transaction *gorm.DB, runID string, tags []contract.RunTag) error {
	if len(tags) == 0 {
		return nil
	}

	runColumns := make(map[string]any)

	for _, tag := range tags {
		switch tag.Key {
		case userTagKey:
			runColumns["user_id"] = tag.Value
		case runNameTagKey:
			runColumns["name"] = tag.Value
		}
	}

	if len(runColumns) != 0 {
		err := transaction.
			Model(&model.Run{}).
			Where("run_uuid = ?", runID).
			UpdateColumns(runColumns).Error
		if err != nil {
			return fmt.Errorf("failed to update run columns: %w", err)
		}
	}

	runTags := make([]model.Tag, 0, len(tags))
	for _, tag := range tags {
		runTags = append(runTags, model.NewTagFromContract(runID, tag))
	}

	if err := transaction.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "run_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).CreateInBatches(runTags, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create tags for run %q: %w", runID, err)
	}

	return nil
}

func paramChangedError(runID, key, oldValue, newValue string) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeInvalidParameterValue,
		fmt.Sprintf(
			"Changing param values is not allowed. "+
				"Param with key=%q was already logged "+
				"with value=%q for run ID=%q. "+
				"Attempted logging new value %q",
			key, oldValue, runID, newValue,
		),
	)
}

func (s *Store) logParamsWithTransaction(transaction *gorm.DB, runID string, params []contract.Param) *contract.Error {
	if len(params) == 0 {
		return nil
	}

	deduplicatedParamsMap := make(map[string]string, len(params))
	deduplicatedParams := make([]model.Param, 0, len(params))

	for _, param := range params {
		oldValue, paramIsPresent := deduplicatedParamsMap[param.Key]
		if paramIsPresent && param.Value != oldValue {
			return paramChangedError(runID, param.Key, oldValue, param.Value)
		}

		if !paramIsPresent {
			deduplicatedParamsMap[param.Key] = param.Value
			deduplicatedParams = append(deduplicatedParams, model.NewParamFromContract(runID, param))
		}
	}

	keys := make([]string, 0, len(deduplicatedParamsMap))
	for key := range deduplicatedParamsMap {
		keys = append(keys, key)
	}

	var existingParams []model.Param
	if err := transaction.
		Where(map[string]any{"run_uuid": runID, "key": keys}).
		Find(&existingParams).Error; err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get existing params for run_id %q", runID),
			err,
		)
	}

	// Re-logging an identical value is a no-op.
	for _, existing := range existingParams {
		if value := deduplicatedParamsMap[*existing.Key]; value != *existing.Value {
			return paramChangedError(runID, *existing.Key, *existing.Value, value)
		}
	}

	err := transaction.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_uuid"}, {Name: "key"}},
			DoNothing: true,
		}).
		CreateInBatches(deduplicatedParams, batchSize).Error
	if err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error creating params in batch for run_uuid %q", runID),
			err,
		)
	}

	return nil
}

func (s *Store) updateLatestMetricsIfNecessary(transaction *gorm.DB, runID string, metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	candidates := make(map[string]model.LatestMetric, len(metrics))

	for _, metric := range metrics {
		latest := metric.AsLatestMetric()
		if current, ok := candidates[*metric.Key]; !ok || latest.Supersedes(current) {
			candidates[*metric.Key] = latest
		}
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}

	var stored []model.LatestMetric
	if err := s.forUpdate(transaction).
		Where(map[string]any{"run_uuid": runID, "key": keys}).
		Find(&stored).Error; err != nil {
		return fmt.Errorf("failed to get latest metrics for run_uuid %q: %w", runID, err)
	}

	for _, current := range stored {
		if candidate, ok := candidates[*current.Key]; ok && !candidate.Supersedes(current) {
			delete(candidates, *current.Key)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	nextLatestMetrics := make([]model.LatestMetric, 0, len(candidates))
	for _, candidate := range candidates {
		nextLatestMetrics = append(nextLatestMetrics, candidate)
	}

	if err := transaction.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "run_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp", "step", "is_nan"}),
	}).Create(&nextLatestMetrics).Error; err != nil {
		return fmt.Errorf("failed to upsert latest metrics for run_uuid %q: %w", runID, err)
	}

	return nil
}

type metricKey struct {
	key       string
	value     float64
	timestamp int64
	step      int64
	isNaN     bool
}

func (s *Store) logMetricsWithTransaction(transaction *gorm.DB, runID string, metrics []contract.Metric) *contract.Error {
	if len(metrics) == 0 {
		return nil
	}

	// Duplicate metric values are eliminated
	seenMetrics := make(map[metricKey]struct{}, len(metrics))
	modelMetrics := make([]model.Metric, 0, len(metrics))

	for _, metric := range metrics {
		current := model.NewMetricFromContract(runID, metric)

		key := metricKey{*current.Key, *current.Value, *current.Timestamp, *current.Step, *current.IsNan}
		if _, ok := seenMetrics[key]; ok {
			continue
		}

		seenMetrics[key] = struct{}{}
		modelMetrics = append(modelMetrics, current)
	}

	if err := transaction.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(modelMetrics, batchSize).Error; err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error creating metrics in batch for run_uuid %q", runID),
			err,
		)
	}

	if err := s.updateLatestMetricsIfNecessary(transaction, runID, modelMetrics); err != nil {
		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("error updating latest metrics for run_uuid %q", runID),
			err,
		)
	}

	return nil
}

func (s *Store) LogBatch(
	runID string, metrics []contract.Metric, params []contract.Param, tags []contract.RunTag,
) *contract.Error {
	err := s.db.Transaction(func(transaction *gorm.DB) error {
		contractError := checkRunIsActive(transaction, runID)
		if contractError != nil {
			return contractError
		}

		err := s.setTagsWithTransaction(transaction, runID, tags)
		if err != nil {
			return fmt.Errorf("error setting tags for run_id %q: %w", runID, err)
		}

		contractError = s.logParamsWithTransaction(transaction, runID, params)
		if contractError != nil {
			return contractError
		}

		contractError = s.logMetricsWithTransaction(transaction, runID, metrics)
		if contractError != nil {
			return contractError
		}

		return nil
	})
	if err != nil {
		var contractError *contract.Error
		if errors.As(err, &contractError) {
			return contractError
		}

		return contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("log batch transaction failed for %q", runID),
			err,
		)
	}

	return nil
}
