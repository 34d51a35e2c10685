package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql/model"
)

const searchModelVersionsDefaultMaxResults = 10000

var errRegisteredModelExists = errors.New("registered model already exists")

func (s *Store) CreateRegisteredModel(
	input *contract.CreateRegisteredModel,
) (*contract.RegisteredModel, *contract.Error) {
	registeredModel := model.NewRegisteredModelFromContract(input)

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		var count int64
		if err := transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", input.Name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up registered model: %w", err)
		}

		if count > 0 {
			return errRegisteredModelExists
		}

		if err := transaction.Create(&registeredModel).Error; err != nil {
			return fmt.Errorf("failed to insert registered model: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, errRegisteredModelExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceAlreadyExists,
				fmt.Sprintf("Registered Model (name=%s) already exists.", input.Name),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to create registered model %q", input.Name),
			err,
		)
	}

	return registeredModel.ToContract(), nil
}

func registeredModelNotFound(name string) *contract.Error {
	return contract.NewError(
		contract.ErrorCodeResourceDoesNotExist,
		fmt.Sprintf("Registered Model with name=%s not found", name),
	)
}

func (s *Store) GetRegisteredModel(name string) (*contract.RegisteredModel, *contract.Error) {
	var registeredModel model.RegisteredModel
	if err := s.db.Preload("Tags").Where("name = ?", name).First(&registeredModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registeredModelNotFound(name)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get registered model %q", name),
			err,
		)
	}

	return registeredModel.ToContract(), nil
}

// resolveStorageLocation turns a runs:/<run_id>/<path> source into the
// artifact location of the run.
func resolveStorageLocation(transaction *gorm.DB, source string) (string, *contract.Error) {
	rest, ok := strings.CutPrefix(source, "runs:/")
	if !ok {
		return source, nil
	}

	runID, artifactPath, _ := strings.Cut(strings.TrimPrefix(rest, "/"), "/")

	var runs []model.Run
	if err := transaction.Select("artifact_uri").Where("run_uuid = ?", runID).Limit(1).Find(&runs).Error; err != nil {
		return "", contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to resolve model source", err)
	}

	if len(runs) == 0 || runs[0].ArtifactURI == nil {
		return "", contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("Unable to resolve source %q: run %s not found", source, runID),
		)
	}

	location := strings.TrimRight(*runs[0].ArtifactURI, "/")
	if artifactPath != "" {
		location += "/" + artifactPath
	}

	return location, nil
}

func (s *Store) CreateModelVersion(input *contract.CreateModelVersion) (*contract.ModelVersion, *contract.Error) {
	var modelVersion model.ModelVersion

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		var registeredModel model.RegisteredModel
		if err := s.forUpdate(transaction).Where("name = ?", input.Name).First(&registeredModel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return registeredModelNotFound(input.Name)
			}

			return fmt.Errorf("failed to get registered model %q: %w", input.Name, err)
		}

		storageLocation, contractError := resolveStorageLocation(transaction, input.Source)
		if contractError != nil {
			return contractError
		}

		var latest int32
		if err := transaction.Model(&model.ModelVersion{}).
			Where("name = ?", input.Name).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return fmt.Errorf("failed to get latest version of %q: %w", input.Name, err)
		}

		now := time.Now().UnixMilli()
		version := latest + 1

		tags := make([]model.ModelVersionTag, len(input.Tags))
		for i, tag := range input.Tags {
			tags[i] = model.ModelVersionTag{Key: tag.Key, Value: tag.Value, Name: input.Name, Version: version}
		}

		modelVersion = model.ModelVersion{
			Name:            input.Name,
			Version:         version,
			CreationTime:    now,
			LastUpdatedTime: now,
			Description:     input.Description,
			CurrentStage:    contract.StageNone,
			Source:          input.Source,
			RunID:           input.RunID,
			Status:          contract.ModelVersionStatusReady,
			RunLink:         input.RunLink,
			StorageLocation: storageLocation,
			Tags:            tags,
		}

		if err := transaction.Create(&modelVersion).Error; err != nil {
			return fmt.Errorf("failed to insert model version: %w", err)
		}

		if err := transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", input.Name).
			UpdateColumn("last_updated_time", now).Error; err != nil {
			return fmt.Errorf("failed to update registered model %q: %w", input.Name, err)
		}

		return nil
	})
	if err != nil {
		return nil, asContractError(err, fmt.Sprintf("failed to create a version of %q", input.Name))
	}

	return modelVersion.ToContract(), nil
}

func parseVersion(version string) (int32, *contract.Error) {
	parsed, err := strconv.ParseInt(version, 10, 32)
	if err != nil || parsed < 1 {
		return 0, contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("Model version must be a positive integer, got %q", version),
		)
	}

	return int32(parsed), nil
}

func (s *Store) getModelVersion(transaction *gorm.DB, name, version string) (*model.ModelVersion, *contract.Error) {
	versionInt, contractError := parseVersion(version)
	if contractError != nil {
		return nil, contractError
	}

	var modelVersion model.ModelVersion
	if err := transaction.Preload("Tags").
		Where("name = ? AND version = ?", name, versionInt).
		First(&modelVersion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.NewError(
				contract.ErrorCodeResourceDoesNotExist,
				fmt.Sprintf("Model Version (name=%s, version=%s) not found", name, version),
			)
		}

		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			fmt.Sprintf("failed to get model version %s/%s", name, version),
			err,
		)
	}

	return &modelVersion, nil
}

func (s *Store) GetModelVersion(name, version string) (*contract.ModelVersion, *contract.Error) {
	modelVersion, contractError := s.getModelVersion(s.db, name, version)
	if contractError != nil {
		return nil, contractError
	}

	return modelVersion.ToContract(), nil
}

// GetModelVersionDownloadURI returns where the artifacts of a version live.
func (s *Store) GetModelVersionDownloadURI(name, version string) (string, *contract.Error) {
	modelVersion, contractError := s.getModelVersion(s.db, name, version)
	if contractError != nil {
		return "", contractError
	}

	if modelVersion.StorageLocation != "" {
		return modelVersion.StorageLocation, nil
	}

	return modelVersion.Source, nil
}

func (s *Store) SearchModelVersions(
	filter string, maxResults int, orderBy []string, pageToken string,
) (*store.PagedList[*contract.ModelVersion], *contract.Error) {
	if maxResults <= 0 {
		maxResults = searchModelVersionsDefaultMaxResults
	}

	offset, contractError := getOffset(pageToken)
	if contractError != nil {
		return nil, contractError
	}

	transaction := s.db.Model(&model.ModelVersion{})

	if contractError := s.applyModelVersionFilters(transaction, filter); contractError != nil {
		return nil, contractError
	}

	if contractError := applyModelVersionOrderBy(transaction, orderBy); contractError != nil {
		return nil, contractError
	}

	var modelVersions []model.ModelVersion
	if err := transaction.Preload("Tags").Limit(maxResults).Offset(offset).Find(&modelVersions).Error; err != nil {
		return nil, contract.NewErrorWith(
			contract.ErrorCodeInternalError,
			"failed to search model versions",
			err,
		)
	}

	items := make([]*contract.ModelVersion, 0, len(modelVersions))
	for _, modelVersion := range modelVersions {
		items = append(items, modelVersion.ToContract())
	}

	nextPageToken, contractError := mkNextPageToken(len(modelVersions), maxResults, offset)
	if contractError != nil {
		return nil, contractError
	}

	return &store.PagedList[*contract.ModelVersion]{
		Items:         items,
		NextPageToken: nextPageToken,
	}, nil
}

func (s *Store) TransitionModelVersionStage(
	name, version, stage string, archiveExisting bool,
) (*contract.ModelVersion, *contract.Error) {
	canonicalStage, ok := contract.CanonicalStage(stage)
	if !ok {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("Invalid Model Version stage: %s. Value must be one of None, Staging, Production, Archived.", stage),
		)
	}

	if archiveExisting && !contract.IsActiveStage(canonicalStage) {
		return nil, contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf(
				"Model version transition cannot archive existing model versions because '%s' is not an Active stage.",
				canonicalStage,
			),
		)
	}

	var modelVersion *model.ModelVersion

	err := s.db.Transaction(func(transaction *gorm.DB) error {
		current, contractError := s.getModelVersion(s.forUpdate(transaction), name, version)
		if contractError != nil {
			return contractError
		}

		now := time.Now().UnixMilli()

		if archiveExisting {
			if err := transaction.Model(&model.ModelVersion{}).
				Where("name = ? AND version != ? AND current_stage = ?", name, current.Version, canonicalStage).
				UpdateColumns(map[string]any{
					"current_stage":     contract.StageArchived,
					"last_updated_time": now,
				}).Error; err != nil {
				return fmt.Errorf("failed to archive existing %s versions of %q: %w", canonicalStage, name, err)
			}
		}

		if err := transaction.Model(&model.ModelVersion{}).
			Where("name = ? AND version = ?", name, current.Version).
			UpdateColumns(map[string]any{
				"current_stage":     canonicalStage,
				"last_updated_time": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update stage of %s/%s: %w", name, version, err)
		}

		if err := transaction.Model(&model.RegisteredModel{}).
			Where("name = ?", name).
			UpdateColumn("last_updated_time", now).Error; err != nil {
			return fmt.Errorf("failed to update registered model %q: %w", name, err)
		}

		current.CurrentStage = canonicalStage
		current.LastUpdatedTime = now
		modelVersion = current

		return nil
	})
	if err != nil {
		return nil, asContractError(err, fmt.Sprintf("failed to transition %s/%s to %s", name, version, canonicalStage))
	}

	return modelVersion.ToContract(), nil
}

func asContractError(err error, message string) *contract.Error {
	var contractError *contract.Error
	if errors.As(err, &contractError) {
		return contractError
	}

	return contract.NewErrorWith(contract.ErrorCodeInternalError, message, err)
}
