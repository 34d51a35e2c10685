// Package sagemaker wraps the AWS calls made by the pipeline: the default
// bucket, object uploads and pipeline upsert and start.
package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/sirupsen/logrus"
)

type Args struct {
	Region        string `arg:"--region,env:AWS_REGION"                        help:"AWS region"`
	DefaultBucket string `arg:"--default-bucket,env:SAGEMAKER_DEFAULT_BUCKET" help:"bucket used instead of sagemaker-<region>-<account>"`
}

type Clients struct {
	S3        s3iface.S3API
	Uploader  s3manageriface.UploaderAPI
	SageMaker sagemakeriface.SageMakerAPI
	STS       stsiface.STSAPI
}

// Session carries the AWS clients and the resolved default bucket.
type Session struct {
	region  string
	bucket  string
	clients Clients
	logger  *logrus.Logger
}

// NewSession builds clients from the default AWS credential chain.
func NewSession(args Args, logger *logrus.Logger) (*Session, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config: aws.Config{
			Region:                        aws.String(args.Region),
			CredentialsChainVerboseErrors: aws.Bool(true),
		},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	region := aws.StringValue(sess.Config.Region)
	if region == "" {
		return nil, errors.New("no AWS region configured, set --region or AWS_REGION")
	}

	s3Client := s3.New(sess)

	return NewSessionWithClients(region, args.DefaultBucket, Clients{
		S3:        s3Client,
		Uploader:  s3manager.NewUploaderWithClient(s3Client),
		SageMaker: sagemaker.New(sess),
		STS:       sts.New(sess),
	}, logger), nil
}

func NewSessionWithClients(region, bucket string, clients Clients, logger *logrus.Logger) *Session {
	return &Session{
		region:  region,
		bucket:  bucket,
		clients: clients,
		logger:  logger,
	}
}

// DefaultBucket returns the configured bucket, or sagemaker-<region>-<account>
// which is created when missing.
func (s *Session) DefaultBucket(ctx context.Context) (string, error) {
	if s.bucket != "" {
		return s.bucket, nil
	}

	identity, err := s.clients.STS.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}

	bucket := fmt.Sprintf("sagemaker-%s-%s", s.region, aws.StringValue(identity.Account))

	if err := s.ensureBucket(ctx, bucket); err != nil {
		return "", err
	}

	s.bucket = bucket

	return bucket, nil
}

func (s *Session) ensureBucket(ctx context.Context, bucket string) error {
	_, err := s.clients.S3.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	var awsErr awserr.Error
	if !errors.As(err, &awsErr) || (awsErr.Code() != "NotFound" && awsErr.Code() != s3.ErrCodeNoSuchBucket) {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(s.region),
		}
	}

	if _, err := s.clients.S3.CreateBucketWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	s.logger.Infof("Created default bucket %s", bucket)

	return nil
}

// UploadData uploads localPath to s3://bucket/key and returns that URI.
func (s *Session) UploadData(ctx context.Context, localPath, bucket, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer file.Close()

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)

	if _, err := s.clients.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", uri, err)
	}

	s.logger.Infof("Uploaded %s to %s", localPath, uri)

	return uri, nil
}
