package service

import (
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

type ModelRegistryService struct {
	Store store.ModelRegistryStore
}

func NewModelRegistryService(store store.ModelRegistryStore) *ModelRegistryService {
	return &ModelRegistryService{Store: store}
}

func (m ModelRegistryService) CreateRegisteredModel(
	input *contract.CreateRegisteredModel,
) (*contract.RegisteredModelResponse, *contract.Error) {
	registeredModel, err := m.Store.CreateRegisteredModel(input)
	if err != nil {
		return nil, err
	}

	return &contract.RegisteredModelResponse{RegisteredModel: registeredModel}, nil
}

func (m ModelRegistryService) GetRegisteredModel(
	input *contract.GetRegisteredModel,
) (*contract.RegisteredModelResponse, *contract.Error) {
	registeredModel, err := m.Store.GetRegisteredModel(input.Name)
	if err != nil {
		return nil, err
	}

	return &contract.RegisteredModelResponse{RegisteredModel: registeredModel}, nil
}

func (m ModelRegistryService) CreateModelVersion(
	input *contract.CreateModelVersion,
) (*contract.ModelVersionResponse, *contract.Error) {
	modelVersion, err := m.Store.CreateModelVersion(input)
	if err != nil {
		return nil, err
	}

	return &contract.ModelVersionResponse{ModelVersion: modelVersion}, nil
}

func (m ModelRegistryService) GetModelVersion(
	input *contract.GetModelVersion,
) (*contract.ModelVersionResponse, *contract.Error) {
	modelVersion, err := m.Store.GetModelVersion(input.Name, input.Version)
	if err != nil {
		return nil, err
	}

	return &contract.ModelVersionResponse{ModelVersion: modelVersion}, nil
}

func (m ModelRegistryService) SearchModelVersions(
	input *contract.SearchModelVersions,
) (*contract.SearchModelVersionsResponse, *contract.Error) {
	page, err := m.Store.SearchModelVersions(input.Filter, int(input.MaxResults), input.OrderBy, input.PageToken)
	if err != nil {
		return nil, err
	}

	return &contract.SearchModelVersionsResponse{
		ModelVersions: page.Items,
		NextPageToken: utils.Deref(page.NextPageToken),
	}, nil
}

func (m ModelRegistryService) TransitionModelVersionStage(
	input *contract.TransitionModelVersionStage,
) (*contract.ModelVersionResponse, *contract.Error) {
	modelVersion, err := m.Store.TransitionModelVersionStage(
		input.Name, input.Version, input.Stage, input.ArchiveExistingVersions,
	)
	if err != nil {
		return nil, err
	}

	return &contract.ModelVersionResponse{ModelVersion: modelVersion}, nil
}

func (m ModelRegistryService) GetModelVersionDownloadURI(
	input *contract.GetModelVersionDownloadURI,
) (*contract.GetModelVersionDownloadURIResponse, *contract.Error) {
	uri, err := m.Store.GetModelVersionDownloadURI(input.Name, input.Version)
	if err != nil {
		return nil, err
	}

	return &contract.GetModelVersionDownloadURIResponse{ArtifactURI: uri}, nil
}
