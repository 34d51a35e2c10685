package artifacts

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const (
	SchemeProxy = "mlflow-artifacts"
	SchemeS3    = "s3"
	SchemeFile  = "file"
)

// Resolver picks the repository implementation matching an artifact URI.
type Resolver struct {
	trackingURI string
	timeout     time.Duration

	s3Once   sync.Once
	s3Client s3iface.S3API
	s3Err    error
}

type ResolverOption func(*Resolver)

// WithS3Client injects the client used for s3:// URIs instead of building one
// from the default AWS credential chain.
func WithS3Client(client s3iface.S3API) ResolverOption {
	return func(r *Resolver) {
		r.s3Client = client
		r.s3Once.Do(func() {})
	}
}

func WithTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

func NewResolver(trackingURI string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		trackingURI: trackingURI,
		timeout:     time.Minute,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Resolver) s3() (s3iface.S3API, error) {
	r.s3Once.Do(func() {
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            aws.Config{CredentialsChainVerboseErrors: aws.Bool(true)},
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			r.s3Err = fmt.Errorf("failed to create AWS session: %w", err)

			return
		}

		r.s3Client = s3.New(sess)
	})

	return r.s3Client, r.s3Err
}

// Resolve returns a repository rooted at uri.
func (r *Resolver) Resolve(uri string) (Repository, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact URI %q: %w", uri, err)
	}

	switch parsed.Scheme {
	case SchemeProxy:
		server := r.trackingURI
		if parsed.Host != "" {
			server = "http://" + parsed.Host
		}

		if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
			return nil, fmt.Errorf("artifact URI %q needs an http(s) tracking server, got %q", uri, server)
		}

		return NewProxyRepository(server, parsed.Path, r.timeout), nil
	case SchemeS3:
		client, err := r.s3()
		if err != nil {
			return nil, err
		}

		return NewS3Repository(client, uri)
	case SchemeFile:
		return NewLocalRepository(filepath.FromSlash(parsed.Path)), nil
	case "":
		return NewLocalRepository(uri), nil
	default:
		return nil, fmt.Errorf("unsupported artifact URI scheme %q in %q", parsed.Scheme, uri)
	}
}
