package artifacts_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/artifacts"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	raw, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)] = raw

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	raw, ok := f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	if !ok {
		return nil, os.ErrNotExist
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(raw))}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(
	_ aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option,
) error {
	prefix := aws.StringValue(input.Bucket) + "/" + aws.StringValue(input.Prefix)
	page := &s3.ListObjectsV2Output{}
	dirs := map[string]bool{}

	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		rest := strings.TrimPrefix(key, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dir := aws.StringValue(input.Prefix) + rest[:idx+1]
			if !dirs[dir] {
				dirs[dir] = true
				page.CommonPrefixes = append(page.CommonPrefixes, &s3.CommonPrefix{Prefix: aws.String(dir)})
			}

			continue
		}

		page.Contents = append(page.Contents, &s3.Object{
			Key:  aws.String(strings.TrimPrefix(key, aws.StringValue(input.Bucket)+"/")),
			Size: aws.Int64(int64(len(f.objects[key]))),
		})
	}

	fn(page, true)

	return nil
}

func writeModel(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "code"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MLmodel"), []byte("flavors: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code", "train.txt"), []byte("fit"), 0o644))

	return dir
}

func assertModelTree(t *testing.T, dir string) {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join(dir, "MLmodel"))
	require.NoError(t, err)
	assert.Equal(t, "flavors: {}\n", string(raw))

	raw, err = os.ReadFile(filepath.Join(dir, "code", "train.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fit", string(raw))
}

func TestRepositoriesRoundTrip(t *testing.T) {
	fake := newFakeS3()

	scenarios := []struct {
		name string
		uri  func(t *testing.T) string
	}{
		{name: "plain path", uri: func(t *testing.T) string { return t.TempDir() }},
		{name: "file scheme", uri: func(t *testing.T) string { return "file://" + filepath.ToSlash(t.TempDir()) }},
		{name: "s3", uri: func(*testing.T) string { return "s3://bucket/1/run/artifacts" }},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			ctx := context.Background()
			resolver := artifacts.NewResolver("", artifacts.WithS3Client(fake))

			repo, err := resolver.Resolve(scenario.uri(t))
			require.NoError(t, err)

			require.NoError(t, repo.LogArtifacts(ctx, writeModel(t), "model"))

			files, err := repo.ListArtifacts(ctx, "model")
			require.NoError(t, err)
			assert.ElementsMatch(t, []contract.FileInfo{
				{Path: "model/MLmodel", FileSize: 12},
				{Path: "model/code", IsDir: true},
			}, files)

			local, err := repo.DownloadArtifacts(ctx, "model", t.TempDir())
			require.NoError(t, err)
			assert.Equal(t, "model", filepath.Base(local))
			assertModelTree(t, local)
		})
	}
}

func TestLogArtifactSingleFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	repo := artifacts.NewLocalRepository(root)

	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("n"), 0o644))
	require.NoError(t, repo.LogArtifact(ctx, file, "docs"))

	local, err := repo.DownloadArtifacts(ctx, "docs/notes.txt", t.TempDir())
	require.NoError(t, err)

	raw, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "n", string(raw))
}

func TestResolve(t *testing.T) {
	resolver := artifacts.NewResolver("http://localhost:5000", artifacts.WithS3Client(newFakeS3()))

	scenarios := []struct {
		uri      string
		expected any
		fails    bool
	}{
		{uri: "mlflow-artifacts:/1/abc/artifacts", expected: &artifacts.ProxyRepository{}},
		{uri: "mlflow-artifacts://other:5000/1/abc/artifacts", expected: &artifacts.ProxyRepository{}},
		{uri: "s3://bucket/prefix", expected: &artifacts.S3Repository{}},
		{uri: "file:///tmp/x", expected: &artifacts.LocalRepository{}},
		{uri: "/tmp/x", expected: &artifacts.LocalRepository{}},
		{uri: "gs://bucket/x", fails: true},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.uri, func(t *testing.T) {
			repo, err := resolver.Resolve(scenario.uri)
			if scenario.fails {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.IsType(t, scenario.expected, repo)
		})
	}

	_, err := artifacts.NewResolver("").Resolve("mlflow-artifacts:/1")
	require.Error(t, err, "proxy URIs need an http tracking server")
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := artifacts.ParseS3URI("s3://bucket/a/b/")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b", key)

	_, _, err = artifacts.ParseS3URI("https://bucket/a")
	require.Error(t, err)
}

func TestDecodeError(t *testing.T) {
	err := artifacts.DecodeError(400, []byte(`{"error_code":"RESOURCE_ALREADY_EXISTS","message":"dup"}`))
	assert.Equal(t, contract.ErrorCodeResourceAlreadyExists, err.Code)
	assert.Equal(t, "dup", err.Message)

	err = artifacts.DecodeError(404, []byte("Cannot GET /nope"))
	assert.Equal(t, contract.ErrorCodeEndpointNotFound, err.Code)
	assert.Contains(t, err.Message, "Cannot GET /nope")
}
