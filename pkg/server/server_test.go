package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/server"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/service"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/store/sql"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg := &config.Config{
		StoreURL:            "sqlite:///" + filepath.Join(dir, "mlflow.db"),
		DefaultArtifactRoot: "mlflow-artifacts:/",
		Version:             "test",
	}

	store, err := sql.NewSQLStore(logger, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app, err := server.NewApp(logger, cfg, &server.Services{
		Tracking:      service.NewTrackingService(cfg, store),
		ModelRegistry: service.NewModelRegistryService(store),
		Artifacts:     service.NewArtifactsService(filepath.Join(dir, "mlartifacts")),
	})
	require.NoError(t, err)

	return app
}

func call(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, target, reader)
	if body != "" {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	response, err := app.Test(request, -1)
	require.NoError(t, err)

	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response.StatusCode, payload
}

func TestHealthAndVersion(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	status, body = call(t, app, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", string(body))
}

func TestErrorResponses(t *testing.T) {
	app := newTestApp(t)

	scenarios := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{
			name:   "missing experiment",
			method: http.MethodGet,
			target: "/api/2.0/mlflow/experiments/get-by-name?experiment_name=nope",
			status: http.StatusNotFound,
			code:   "RESOURCE_DOES_NOT_EXIST",
		},
		{
			name:   "missing required parameter",
			method: http.MethodGet,
			target: "/api/2.0/mlflow/experiments/get",
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETER_VALUE",
		},
		{
			name:   "wrong json type",
			method: http.MethodPost,
			target: "/api/2.0/mlflow/experiments/create",
			body:   `{"name": 12}`,
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETER_VALUE",
		},
		{
			name:   "invalid stage",
			method: http.MethodPost,
			target: "/ajax-api/2.0/mlflow/model-versions/transition-stage",
			body:   `{"name": "rf", "version": "1", "stage": "Canary"}`,
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETER_VALUE",
		},
		{
			name:   "unknown endpoint",
			method: http.MethodGet,
			target: "/api/2.0/mlflow/unknown",
			status: http.StatusNotFound,
			code:   "ENDPOINT_NOT_FOUND",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			status, body := call(t, app, scenario.method, scenario.target, scenario.body)
			assert.Equal(t, scenario.status, status)
			assert.Equal(t, scenario.code, gjson.GetBytes(body, "error_code").String())
		})
	}
}

func TestArtifactsProxy(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodPut, "/api/2.0/mlflow-artifacts/artifacts/1/abc/artifacts/model/MLmodel", "flavors: {}")
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, "/api/2.0/mlflow-artifacts/artifacts?path=1/abc/artifacts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "model", gjson.GetBytes(body, "files.0.path").String())
	assert.True(t, gjson.GetBytes(body, "files.0.is_dir").Bool())

	status, body = call(t, app, http.MethodGet, "/api/2.0/mlflow-artifacts/artifacts/1/abc/artifacts/model/MLmodel", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "flavors: {}", string(body))

	status, body = call(t, app, http.MethodGet, "/api/2.0/mlflow-artifacts/artifacts/1/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RESOURCE_DOES_NOT_EXIST", gjson.GetBytes(body, "error_code").String())

	status, _ = call(t, app, http.MethodGet, "/api/2.0/mlflow-artifacts/artifacts?path=../etc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestArtifactListingIsStableAcrossApps(t *testing.T) {
	for i := 0; i < 25; i++ {
		app := newTestApp(t)

		status, _ := call(t, app, http.MethodPut, "/api/2.0/mlflow-artifacts/artifacts/1/abc/artifacts/model/MLmodel", "flavors: {}")
		require.Equal(t, http.StatusOK, status)

		status, body := call(t, app, http.MethodGet, "/api/2.0/mlflow-artifacts/artifacts?path=1/abc/artifacts", "")
		require.Equal(t, http.StatusOK, status, "app %d answered %s", i, body)
		assert.Equal(t, "model", gjson.GetBytes(body, "files.0.path").String())
	}
}
