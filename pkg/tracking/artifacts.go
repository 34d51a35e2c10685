package tracking

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	schemeRuns   = "runs"
	schemeModels = "models"
)

func joinURI(base, artifactPath string) string {
	if artifactPath == "" {
		return base
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(artifactPath, "/")
}

// ResolveArtifactURI turns runs:/<run_id>/<path> and models:/<name>/<version>
// URIs into the storage URI they point at. Other URIs are returned unchanged.
func (c *Client) ResolveArtifactURI(ctx context.Context, uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URI %q: %w", uri, err)
	}

	switch parsed.Scheme {
	case schemeRuns:
		runID, artifactPath, _ := strings.Cut(strings.TrimLeft(parsed.Path, "/"), "/")
		if runID == "" {
			return "", fmt.Errorf("artifact URI %q names no run", uri)
		}

		run, err := c.GetRun(ctx, runID)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %q: %w", uri, err)
		}

		return joinURI(run.Info.ArtifactURI, artifactPath), nil
	case schemeModels:
		parts := strings.SplitN(strings.TrimLeft(parsed.Path, "/"), "/", 3)
		if len(parts) < 2 {
			return "", fmt.Errorf("model URI %q must look like models:/<name>/<version>", uri)
		}

		location, err := c.GetModelVersionDownloadURI(ctx, parts[0], parts[1])
		if err != nil {
			return "", fmt.Errorf("failed to resolve %q: %w", uri, err)
		}

		if len(parts) == 3 {
			return joinURI(location, parts[2]), nil
		}

		return location, nil
	default:
		return uri, nil
	}
}

// DownloadArtifacts copies the artifact tree at uri into dstDir and returns the
// directory holding its top-level entries.
func (c *Client) DownloadArtifacts(ctx context.Context, uri, dstDir string) (string, error) {
	resolved, err := c.ResolveArtifactURI(ctx, uri)
	if err != nil {
		return "", err
	}

	repo, err := c.resolver.Resolve(resolved)
	if err != nil {
		return "", err
	}

	c.logger.Debugf("Downloading %s to %s", resolved, dstDir)

	local, err := repo.DownloadArtifacts(ctx, "", dstDir)
	if err != nil {
		return "", fmt.Errorf("failed to download %q: %w", resolved, err)
	}

	return filepath.Clean(local), nil
}
