package deploy_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/deploy"
)

func deploymentParams() deploy.DeploymentParams {
	return deploy.DeploymentParams{
		ProjectID:             "p-123",
		ProjectName:           "churn",
		ModelDataLocation:     "s3://bucket/mlflow_model/rf-1/model.tar.gz",
		ContainerImageURI:     "123.dkr.ecr.eu-west-1.amazonaws.com/mlflow-pyfunc:latest",
		ModelExecutionRoleArn: "arn:aws:iam::123:role/model",
		EndpointInstanceCount: "1",
		EndpointInstanceType:  "ml.m5.large",
		ModelName:             "rf",
		ModelVersion:          "1",
		TrackingURI:           "http://mlflow",
	}
}

func TestExtendRequiresStageName(t *testing.T) {
	scenarios := []struct {
		name string
		doc  deploy.Document
	}{
		{"no parameters", deploy.Document{"Tags": map[string]any{}}},
		{"null parameters", deploy.Document{"Parameters": nil}},
		{"no stage name", deploy.Document{"Parameters": map[string]any{"Foo": 1.0}}},
		{"parameters not an object", deploy.Document{"Parameters": []any{"StageName"}}},
		{"tags not an object", deploy.Document{"Parameters": map[string]any{"StageName": "x"}, "Tags": "t"}},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			doc, err := deploy.Extend(deploymentParams(), scenario.doc)
			require.Error(t, err)
			assert.Nil(t, doc)

			var cfgErr *deploy.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestExtendDeploymentValuesWin(t *testing.T) {
	original := deploy.Document{
		"Parameters": map[string]any{
			"StageName":            "staging",
			"Foo":                  1.0,
			"EndpointInstanceType": "ml.t2.medium",
		},
		"Tags":     map[string]any{"team": "ml", "ModelName": "old"},
		"Metadata": "kept",
	}

	extended, err := deploy.Extend(deploymentParams(), original)
	require.NoError(t, err)

	params := extended["Parameters"].(map[string]any)
	assert.Equal(t, "staging", params["StageName"])
	assert.Equal(t, 1.0, params["Foo"])
	assert.Equal(t, "ml.m5.large", params["EndpointInstanceType"])
	assert.Equal(t, "s3://bucket/mlflow_model/rf-1/model.tar.gz", params["ModelDataLocation"])
	assert.Equal(t, "churn", params["SageMakerProjectName"])
	assert.Equal(t, "arn:aws:iam::123:role/model", params["ModelExecutionRoleArn"])

	tags := extended["Tags"].(map[string]any)
	assert.Equal(t, map[string]any{
		"team":                       "ml",
		"sagemaker:deployment-stage": "staging",
		"sagemaker:project-id":       "p-123",
		"sagemaker:project-name":     "churn",
		"ModelName":                  "rf",
		"ModelVersion":               "1",
		"TrackingURI":                "http://mlflow",
	}, tags)

	assert.Equal(t, "kept", extended["Metadata"])

	// the input document is not modified
	assert.Equal(t, "ml.t2.medium", original["Parameters"].(map[string]any)["EndpointInstanceType"])
	assert.Equal(t, "old", original["Tags"].(map[string]any)["ModelName"])
	assert.NotContains(t, original["Parameters"], "ModelDataLocation")
}

func TestExtendIsIdempotent(t *testing.T) {
	doc := deploy.Document{"Parameters": map[string]any{"StageName": "prod", "Foo": 1.0}}

	once, err := deploy.Extend(deploymentParams(), doc)
	require.NoError(t, err)

	twice, err := deploy.Extend(deploymentParams(), once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.NotContains(t, doc, "Tags")
}

func TestDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staging-config.json")

	doc := deploy.Document{"Parameters": map[string]any{"StageName": "staging", "URL": "a&b"}}
	require.NoError(t, deploy.WriteDocument(path, doc))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"Parameters\": {\n        \"StageName\": \"staging\",\n        \"URL\": \"a&b\"\n    }\n}", string(raw))

	loaded, err := deploy.ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))
	_, err = deploy.ReadDocument(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[1]"), 0o644))
	_, err = deploy.ReadDocument(path)
	require.Error(t, err)

	_, err = deploy.ReadDocument(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestDocumentKeysAreSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prod-config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Tags": {"b": "2", "a": "1"}, "Parameters": {"StageName": "prod"}}`), 0o644))

	doc, err := deploy.ReadDocument(path)
	require.NoError(t, err)

	extended, err := deploy.Extend(deploymentParams(), doc)
	require.NoError(t, err)

	first, err := extended.Marshal()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := extended.Marshal()
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}

	rendered := string(first)
	assert.Less(t, strings.Index(rendered, `"Parameters"`), strings.Index(rendered, `"Tags"`))
	assert.Less(t, strings.Index(rendered, `"ContainerImageURI"`), strings.Index(rendered, `"StageName"`))
	assert.Less(t, strings.Index(rendered, `"a": "1"`), strings.Index(rendered, `"b": "2"`))
}
