package sagemaker_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/sagemaker"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/sagemaker/sagemakertest"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func TestDefaultBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("configured", func(t *testing.T) {
		fakes := sagemakertest.NewFakes()
		session := sagemaker.NewSessionWithClients("eu-west-1", "my-bucket", fakes.Clients(), quietLogger())

		bucket, err := session.DefaultBucket(ctx)
		require.NoError(t, err)
		assert.Equal(t, "my-bucket", bucket)
		assert.Empty(t, fakes.S3.Buckets)
	})

	t.Run("created when missing", func(t *testing.T) {
		fakes := sagemakertest.NewFakes()
		session := sagemaker.NewSessionWithClients("eu-west-1", "", fakes.Clients(), quietLogger())

		bucket, err := session.DefaultBucket(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sagemaker-eu-west-1-123456789012", bucket)
		assert.True(t, fakes.S3.Buckets[bucket])
	})

	t.Run("existing", func(t *testing.T) {
		fakes := sagemakertest.NewFakes("sagemaker-us-east-1-123456789012")
		session := sagemaker.NewSessionWithClients("us-east-1", "", fakes.Clients(), quietLogger())

		bucket, err := session.DefaultBucket(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sagemaker-us-east-1-123456789012", bucket)
	})
}

func TestUploadData(t *testing.T) {
	fakes := sagemakertest.NewFakes("bucket")
	session := sagemaker.NewSessionWithClients("eu-west-1", "bucket", fakes.Clients(), quietLogger())

	path := filepath.Join(t.TempDir(), "model.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("archive"), 0o644))

	uri, err := session.UploadData(context.Background(), path, "bucket", "mlflow_model/rf-1/model.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/mlflow_model/rf-1/model.tar.gz", uri)

	body, ok := fakes.S3.Object("bucket", "mlflow_model/rf-1/model.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "archive", string(body))

	_, err = session.UploadData(context.Background(), path, "missing", "key")
	require.Error(t, err)

	_, err = session.UploadData(context.Background(), filepath.Join(t.TempDir(), "nope"), "bucket", "key")
	require.Error(t, err)
}

func TestUpsertAndStartPipeline(t *testing.T) {
	ctx := context.Background()
	fakes := sagemakertest.NewFakes()
	session := sagemaker.NewSessionWithClients("eu-west-1", "bucket", fakes.Clients(), quietLogger())

	_, err := session.StartPipelineExecution(ctx, "mlflow-pipeline", nil)
	require.Error(t, err)

	arn, err := session.UpsertPipeline(ctx, "mlflow-pipeline", "role", `{"Version":"2020-12-01"}`, "")
	require.NoError(t, err)
	assert.Contains(t, arn, "pipeline/mlflow-pipeline")
	assert.Zero(t, fakes.SageMaker.Updates)

	_, err = session.UpsertPipeline(ctx, "mlflow-pipeline", "role", `{"Version":"2020-12-01","Steps":[]}`, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fakes.SageMaker.Updates)
	assert.Equal(t, `{"Version":"2020-12-01","Steps":[]}`, fakes.SageMaker.Pipelines["mlflow-pipeline"])

	execution, err := session.StartPipelineExecution(ctx, "mlflow-pipeline", map[string]string{
		"ExperimentName":    "rf",
		"MLflowTrackingURI": "http://mlflow",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, execution)

	require.Len(t, fakes.SageMaker.Executions, 1)

	params := fakes.SageMaker.Executions[0].PipelineParameters
	require.Len(t, params, 2)
	assert.Equal(t, "ExperimentName", aws.StringValue(params[0].Name))
	assert.Equal(t, "http://mlflow", aws.StringValue(params[1].Value))
}
