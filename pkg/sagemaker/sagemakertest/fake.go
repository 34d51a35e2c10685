// Package sagemakertest provides in-memory AWS clients for tests.
package sagemakertest

import (
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemaker/sagemakeriface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"

	sm "github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/sagemaker"
)

// S3 stores objects and buckets in maps.
type S3 struct {
	s3iface.S3API

	mu      sync.Mutex
	Buckets map[string]bool
	Objects map[string][]byte
	// UploadErr, when set, fails every upload.
	UploadErr error
}

func NewS3(buckets ...string) *S3 {
	f := &S3{Buckets: map[string]bool{}, Objects: map[string][]byte{}}
	for _, b := range buckets {
		f.Buckets[b] = true
	}

	return f
}

func (f *S3) HeadBucketWithContext(_ aws.Context, input *s3.HeadBucketInput, _ ...request.Option) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Buckets[aws.StringValue(input.Bucket)] {
		return nil, awserr.New("NotFound", "Not Found", nil)
	}

	return &s3.HeadBucketOutput{}, nil
}

func (f *S3) CreateBucketWithContext(_ aws.Context, input *s3.CreateBucketInput, _ ...request.Option) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Buckets[aws.StringValue(input.Bucket)] = true

	return &s3.CreateBucketOutput{}, nil
}

// UploadWithContext makes S3 usable as the session's uploader.
func (f *S3) UploadWithContext(
	_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader),
) (*s3manager.UploadOutput, error) {
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}

	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	bucket := aws.StringValue(input.Bucket)
	if !f.Buckets[bucket] {
		return nil, awserr.New(s3.ErrCodeNoSuchBucket, "no such bucket", nil)
	}

	f.Objects[bucket+"/"+aws.StringValue(input.Key)] = body

	return &s3manager.UploadOutput{Location: "https://" + bucket + ".s3.amazonaws.com/" + aws.StringValue(input.Key)}, nil
}

func (f *S3) Upload(input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(aws.BackgroundContext(), input, opts...)
}

func (f *S3) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.Objects[bucket+"/"+key]

	return body, ok
}

var _ s3manageriface.UploaderAPI = (*S3)(nil)

// SageMaker records pipelines and executions.
type SageMaker struct {
	sagemakeriface.SageMakerAPI

	mu         sync.Mutex
	Pipelines  map[string]string
	Executions []*sagemaker.StartPipelineExecutionInput
	Updates    int
}

func NewSageMaker() *SageMaker {
	return &SageMaker{Pipelines: map[string]string{}}
}

func (f *SageMaker) arn(name string) *string {
	return aws.String("arn:aws:sagemaker:eu-west-1:123456789012:pipeline/" + name)
}

func (f *SageMaker) DescribePipelineWithContext(
	_ aws.Context, input *sagemaker.DescribePipelineInput, _ ...request.Option,
) (*sagemaker.DescribePipelineOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.StringValue(input.PipelineName)

	definition, ok := f.Pipelines[name]
	if !ok {
		return nil, awserr.New(sagemaker.ErrCodeResourceNotFound, "pipeline does not exist", nil)
	}

	return &sagemaker.DescribePipelineOutput{
		PipelineArn:        f.arn(name),
		PipelineName:       input.PipelineName,
		PipelineDefinition: aws.String(definition),
	}, nil
}

func (f *SageMaker) CreatePipelineWithContext(
	_ aws.Context, input *sagemaker.CreatePipelineInput, _ ...request.Option,
) (*sagemaker.CreatePipelineOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.StringValue(input.PipelineName)
	f.Pipelines[name] = aws.StringValue(input.PipelineDefinition)

	return &sagemaker.CreatePipelineOutput{PipelineArn: f.arn(name)}, nil
}

func (f *SageMaker) UpdatePipelineWithContext(
	_ aws.Context, input *sagemaker.UpdatePipelineInput, _ ...request.Option,
) (*sagemaker.UpdatePipelineOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.StringValue(input.PipelineName)
	f.Pipelines[name] = aws.StringValue(input.PipelineDefinition)
	f.Updates++

	return &sagemaker.UpdatePipelineOutput{PipelineArn: f.arn(name)}, nil
}

func (f *SageMaker) StartPipelineExecutionWithContext(
	_ aws.Context, input *sagemaker.StartPipelineExecutionInput, _ ...request.Option,
) (*sagemaker.StartPipelineExecutionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.StringValue(input.PipelineName)
	if _, ok := f.Pipelines[name]; !ok {
		return nil, awserr.New(sagemaker.ErrCodeResourceNotFound, "pipeline does not exist", nil)
	}

	f.Executions = append(f.Executions, input)

	return &sagemaker.StartPipelineExecutionOutput{
		PipelineExecutionArn: aws.String(aws.StringValue(f.arn(name)) + "/execution/1"),
	}, nil
}

// STS reports a fixed account.
type STS struct {
	stsiface.STSAPI

	Account string
}

func (f *STS) GetCallerIdentityWithContext(
	_ aws.Context, _ *sts.GetCallerIdentityInput, _ ...request.Option,
) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.Account)}, nil
}

// Fakes bundles one of each fake.
type Fakes struct {
	S3        *S3
	SageMaker *SageMaker
	STS       *STS
}

func NewFakes(buckets ...string) *Fakes {
	return &Fakes{
		S3:        NewS3(buckets...),
		SageMaker: NewSageMaker(),
		STS:       &STS{Account: "123456789012"},
	}
}

func (f *Fakes) Clients() sm.Clients {
	return sm.Clients{
		S3:        f.S3,
		Uploader:  f.S3,
		SageMaker: f.SageMaker,
		STS:       f.STS,
	}
}
