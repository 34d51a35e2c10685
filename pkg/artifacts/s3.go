package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// S3Repository stores artifacts below an s3://bucket/prefix URI.
type S3Repository struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewS3Repository(client s3iface.S3API, uri string) (*S3Repository, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	return &S3Repository{client: client, bucket: bucket, prefix: prefix}, nil
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(uri string) (string, string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URI %q: %w", uri, err)
	}

	if parsed.Scheme != "s3" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: expected s3://bucket/key", uri)
	}

	return parsed.Host, strings.Trim(parsed.Path, "/"), nil
}

func (r *S3Repository) key(artifactPath string) string {
	return path.Join(r.prefix, artifactPath)
}

func (r *S3Repository) LogArtifact(ctx context.Context, localFile, artifactPath string) error {
	return logArtifact(ctx, r, localFile, artifactPath)
}

func (r *S3Repository) LogArtifacts(ctx context.Context, localDir, artifactPath string) error {
	return logArtifacts(ctx, r, localDir, artifactPath)
}

func (r *S3Repository) DownloadArtifacts(ctx context.Context, artifactPath, dstDir string) (string, error) {
	return downloadTree(ctx, r, artifactPath, dstDir)
}

func (r *S3Repository) ListArtifacts(ctx context.Context, artifactPath string) ([]contract.FileInfo, error) {
	prefix := r.key(artifactPath)
	if prefix != "" {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	files := make([]contract.FileInfo, 0)

	err := r.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, common := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.StringValue(common.Prefix), prefix), "/")
			files = append(files, contract.FileInfo{Path: path.Join(artifactPath, name), IsDir: true})
		}

		for _, object := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(object.Key), prefix)
			if name == "" {
				continue
			}

			files = append(files, contract.FileInfo{
				Path:     path.Join(artifactPath, name),
				FileSize: aws.Int64Value(object.Size),
			})
		}

		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3://%s/%s: %w", r.bucket, prefix, err)
	}

	return files, nil
}

func (r *S3Repository) downloadFile(ctx context.Context, remotePath, localPath string) error {
	output, err := r.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(remotePath)),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", r.bucket, r.key(remotePath), err)
	}
	defer output.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", localPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, output.Body); err != nil {
		return fmt.Errorf("failed to write %q: %w", localPath, err)
	}

	return nil
}

func (r *S3Repository) uploadFile(ctx context.Context, localPath, remotePath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer file.Close()

	if _, err := r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(remotePath)),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", r.bucket, r.key(remotePath), err)
	}

	return nil
}
