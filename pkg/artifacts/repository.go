// Package artifacts moves run artifacts between the local filesystem and the
// artifact stores a tracking server may hand out.
package artifacts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// Repository is an artifact store rooted at one artifact URI.
type Repository interface {
	// LogArtifact uploads a single file under artifactPath.
	LogArtifact(ctx context.Context, localFile, artifactPath string) error
	// LogArtifacts uploads the content of localDir under artifactPath.
	LogArtifacts(ctx context.Context, localDir, artifactPath string) error
	// ListArtifacts lists the direct children of artifactPath.
	ListArtifacts(ctx context.Context, artifactPath string) ([]contract.FileInfo, error)
	// DownloadArtifacts copies artifactPath into dstDir and returns the local path.
	DownloadArtifacts(ctx context.Context, artifactPath, dstDir string) (string, error)
}

type fileStore interface {
	ListArtifacts(ctx context.Context, artifactPath string) ([]contract.FileInfo, error)
	downloadFile(ctx context.Context, remotePath, localPath string) error
	uploadFile(ctx context.Context, localPath, remotePath string) error
}

func logArtifact(ctx context.Context, store fileStore, localFile, artifactPath string) error {
	return store.uploadFile(ctx, localFile, path.Join(artifactPath, filepath.Base(localFile)))
}

func logArtifacts(ctx context.Context, store fileStore, localDir, artifactPath string) error {
	//nolint:wrapcheck
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}

		return store.uploadFile(ctx, p, path.Join(artifactPath, filepath.ToSlash(rel)))
	})
}

// downloadTree walks the store from artifactPath and mirrors it under dstDir.
// A path without children is downloaded as a file.
func downloadTree(ctx context.Context, store fileStore, artifactPath, dstDir string) (string, error) {
	local := filepath.Join(dstDir, filepath.FromSlash(artifactPath))

	children, err := store.ListArtifacts(ctx, artifactPath)
	if err != nil {
		return "", err
	}

	if len(children) == 0 && artifactPath != "" {
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return "", fmt.Errorf("failed to create %q: %w", filepath.Dir(local), err)
		}

		if err := store.downloadFile(ctx, artifactPath, local); err != nil {
			return "", err
		}

		return local, nil
	}

	if err := os.MkdirAll(local, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %q: %w", local, err)
	}

	for _, child := range children {
		childPath := path.Join(artifactPath, path.Base(child.Path))

		if child.IsDir {
			if _, err := downloadTree(ctx, store, childPath, dstDir); err != nil {
				return "", err
			}

			continue
		}

		if err := store.downloadFile(ctx, childPath, filepath.Join(dstDir, filepath.FromSlash(childPath))); err != nil {
			return "", err
		}
	}

	return local, nil
}
