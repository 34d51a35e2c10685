// Package tracking is a client for the MLflow tracking and model registry
// REST API. State lives in explicit Client values, never in globals.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/artifacts"
)

const apiPrefix = "/api/2.0/mlflow/"

type Client struct {
	trackingURI string
	timeout     time.Duration
	logger      *logrus.Logger
	resolver    *artifacts.Resolver
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithArtifactResolver replaces the resolver used for artifact URIs.
func WithArtifactResolver(resolver *artifacts.Resolver) Option {
	return func(c *Client) {
		c.resolver = resolver
	}
}

// NewClient returns a client for the tracking server at trackingURI.
func NewClient(trackingURI string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(trackingURI)
	if err != nil {
		return nil, fmt.Errorf("invalid tracking URI %q: %w", trackingURI, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("tracking URI %q must use http or https", trackingURI)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	client := &Client{
		trackingURI: strings.TrimRight(trackingURI, "/"),
		timeout:     time.Minute,
		logger:      discard,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.resolver == nil {
		client.resolver = artifacts.NewResolver(client.trackingURI, artifacts.WithTimeout(client.timeout))
	}

	return client, nil
}

func (c *Client) TrackingURI() string {
	return c.trackingURI
}

func (c *Client) endpoint(path string) string {
	return c.trackingURI + apiPrefix + path
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Debugf("GET %s?%s", path, query.Encode())

	agent := fiber.Get(c.endpoint(path)).QueryString(query.Encode()).Timeout(c.timeout)

	return c.do(agent, path, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Debugf("POST %s", path)

	agent := fiber.Post(c.endpoint(path)).JSON(in).Timeout(c.timeout)

	return c.do(agent, path, out)
}

func (c *Client) do(agent *fiber.Agent, path string, out any) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request to %s failed: %w", path, errors.Join(errs...))
	}

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("request to %s failed: %w", path, artifacts.DecodeError(code, body))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}

	return nil
}
