package server

import (
	"regexp"
	"strings"
)

type Endpoint struct {
	Name   string
	Method string
	Path   string
}

var routeParameter = regexp.MustCompile(`<[^>]+>`)

// GetPattern converts a Flask style path into a fiber route. A path
// parameter such as <path:artifact_path> spans slashes, so it becomes the
// greedy "+" parameter, which never matches an empty path.
func (e Endpoint) GetPattern() string {
	return routeParameter.ReplaceAllStringFunc(e.Path, func(s string) string {
		if strings.HasPrefix(s, "<path:") {
			return "+"
		}

		parts := strings.Split(strings.Trim(s, "<>"), ":")

		return ":" + parts[len(parts)-1]
	})
}

// GetServiceEndpoints lists the REST endpoints served under /api/2.0 and
// /ajax-api/2.0 in registration order. Exact paths precede the parameterized
// paths sharing their prefix.
func GetServiceEndpoints() []Endpoint {
	return []Endpoint{
		{"GET_mlflow.MlflowService.getExperiment", "GET", "/mlflow/experiments/get"},
		{"GET_mlflow.MlflowService.getExperimentByName", "GET", "/mlflow/experiments/get-by-name"},
		{"POST_mlflow.MlflowService.createExperiment", "POST", "/mlflow/experiments/create"},
		{"POST_mlflow.MlflowService.createRun", "POST", "/mlflow/runs/create"},
		{"POST_mlflow.MlflowService.updateRun", "POST", "/mlflow/runs/update"},
		{"GET_mlflow.MlflowService.getRun", "GET", "/mlflow/runs/get"},
		{"POST_mlflow.MlflowService.logBatch", "POST", "/mlflow/runs/log-batch"},
		{"POST_mlflow.MlflowService.logMetric", "POST", "/mlflow/runs/log-metric"},
		{"POST_mlflow.MlflowService.logParam", "POST", "/mlflow/runs/log-parameter"},
		{"POST_mlflow.ModelRegistryService.createRegisteredModel", "POST", "/mlflow/registered-models/create"},
		{"GET_mlflow.ModelRegistryService.getRegisteredModel", "GET", "/mlflow/registered-models/get"},
		{"POST_mlflow.ModelRegistryService.createModelVersion", "POST", "/mlflow/model-versions/create"},
		{"GET_mlflow.ModelRegistryService.getModelVersion", "GET", "/mlflow/model-versions/get"},
		{"GET_mlflow.ModelRegistryService.searchModelVersions", "GET", "/mlflow/model-versions/search"},
		{"POST_mlflow.ModelRegistryService.transitionModelVersionStage", "POST", "/mlflow/model-versions/transition-stage"},
		{"GET_mlflow.ModelRegistryService.getModelVersionDownloadUri", "GET", "/mlflow/model-versions/get-download-uri"},
		{"GET_mlflow.artifacts.MlflowArtifactsService.listArtifacts", "GET", "/mlflow-artifacts/artifacts"},
		{"GET_mlflow.artifacts.MlflowArtifactsService.downloadArtifact", "GET", "/mlflow-artifacts/artifacts/<path:artifact_path>"},
		{"PUT_mlflow.artifacts.MlflowArtifactsService.uploadArtifact", "PUT", "/mlflow-artifacts/artifacts/<path:artifact_path>"},
	}
}
