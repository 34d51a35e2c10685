package service

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store"
)

type TrackingService struct {
	config *config.Config
	Store  store.TrackingStore
}

func NewTrackingService(config *config.Config, store store.TrackingStore) *TrackingService {
	return &TrackingService{config: config, Store: store}
}

// CreateExperiment stores local artifact locations as absolute file URIs.
func (m TrackingService) CreateExperiment(
	input *contract.CreateExperiment,
) (*contract.CreateExperimentResponse, *contract.Error) {
	if input.ArtifactLocation != "" {
		artifactLocation := strings.TrimRight(input.ArtifactLocation, "/")

		// We don't check the validation here as this was already covered in the validator.
		location, _ := url.Parse(artifactLocation)
		switch location.Scheme {
		case "file", "":
			path, err := filepath.Abs(location.Path)
			if err != nil {
				return nil, contract.NewError(
					contract.ErrorCodeInvalidParameterValue,
					fmt.Sprintf("error getting absolute path: %v", err),
				)
			}

			if runtime.GOOS == "windows" {
				path = "/" + strings.ReplaceAll(path, "\\", "/")
			}

			location.Scheme = "file"
			location.Path = path
			artifactLocation = location.String()
		}

		input.ArtifactLocation = artifactLocation
	}

	experimentID, err := m.Store.CreateExperiment(input)
	if err != nil {
		return nil, err
	}

	return &contract.CreateExperimentResponse{ExperimentID: experimentID}, nil
}

func (m TrackingService) GetExperiment(input *contract.GetExperiment) (*contract.GetExperimentResponse, *contract.Error) {
	experiment, err := m.Store.GetExperiment(input.ExperimentID)
	if err != nil {
		return nil, err
	}

	return &contract.GetExperimentResponse{Experiment: experiment}, nil
}

func (m TrackingService) GetExperimentByName(
	input *contract.GetExperimentByName,
) (*contract.GetExperimentResponse, *contract.Error) {
	experiment, err := m.Store.GetExperimentByName(input.ExperimentName)
	if err != nil {
		return nil, err
	}

	return &contract.GetExperimentResponse{Experiment: experiment}, nil
}

func (m TrackingService) CreateRun(input *contract.CreateRun) (*contract.CreateRunResponse, *contract.Error) {
	run, err := m.Store.CreateRun(input)
	if err != nil {
		return nil, err
	}

	return &contract.CreateRunResponse{Run: run}, nil
}

func (m TrackingService) UpdateRun(input *contract.UpdateRun) (*contract.UpdateRunResponse, *contract.Error) {
	if input.Status.IsTerminated() && input.EndTime == 0 {
		input.EndTime = time.Now().UnixMilli()
	}

	info, err := m.Store.UpdateRun(input)
	if err != nil {
		return nil, err
	}

	return &contract.UpdateRunResponse{RunInfo: info}, nil
}

func (m TrackingService) GetRun(input *contract.GetRun) (*contract.GetRunResponse, *contract.Error) {
	run, err := m.Store.GetRun(input.RunID)
	if err != nil {
		return nil, err
	}

	return &contract.GetRunResponse{Run: run}, nil
}

func (m TrackingService) LogBatch(input *contract.LogBatch) (*contract.Empty, *contract.Error) {
	if err := m.Store.LogBatch(input.RunID, input.Metrics, input.Params, input.Tags); err != nil {
		return nil, err
	}

	return &contract.Empty{}, nil
}

func (m TrackingService) LogMetric(input *contract.LogMetric) (*contract.Empty, *contract.Error) {
	metric := contract.Metric{
		Key:       input.Key,
		Value:     input.Value,
		Timestamp: input.Timestamp,
		Step:      input.Step,
	}

	if err := m.Store.LogBatch(input.RunID, []contract.Metric{metric}, nil, nil); err != nil {
		return nil, err
	}

	return &contract.Empty{}, nil
}

func (m TrackingService) LogParam(input *contract.LogParam) (*contract.Empty, *contract.Error) {
	param := contract.Param{Key: input.Key, Value: input.Value}

	if err := m.Store.LogBatch(input.RunID, nil, []contract.Param{param}, nil); err != nil {
		return nil, err
	}

	return &contract.Empty{}, nil
}
