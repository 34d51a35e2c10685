package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// LocalRepository stores artifacts in a directory of the local filesystem.
type LocalRepository struct {
	root string
}

func NewLocalRepository(root string) *LocalRepository {
	return &LocalRepository{root: root}
}

func (r *LocalRepository) LogArtifact(ctx context.Context, localFile, artifactPath string) error {
	return logArtifact(ctx, r, localFile, artifactPath)
}

func (r *LocalRepository) LogArtifacts(ctx context.Context, localDir, artifactPath string) error {
	return logArtifacts(ctx, r, localDir, artifactPath)
}

func (r *LocalRepository) DownloadArtifacts(ctx context.Context, artifactPath, dstDir string) (string, error) {
	return downloadTree(ctx, r, artifactPath, dstDir)
}

func (r *LocalRepository) ListArtifacts(_ context.Context, artifactPath string) ([]contract.FileInfo, error) {
	return ListDirectory(r.root, artifactPath)
}

// ListDirectory lists the children of root/artifactPath with paths relative to root.
// A missing directory or a regular file yields no entries.
func ListDirectory(root, artifactPath string) ([]contract.FileInfo, error) {
	dir := filepath.Join(root, filepath.FromSlash(artifactPath))

	info, err := os.Stat(dir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return []contract.FileInfo{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", dir, err)
	}

	files := make([]contract.FileInfo, 0, len(entries))

	for _, entry := range entries {
		file := contract.FileInfo{
			Path:  filepath.ToSlash(filepath.Join(filepath.FromSlash(artifactPath), entry.Name())),
			IsDir: entry.IsDir(),
		}

		if !entry.IsDir() {
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %q: %w", entry.Name(), err)
			}

			file.FileSize = info.Size()
		}

		files = append(files, file)
	}

	return files, nil
}

func (r *LocalRepository) downloadFile(_ context.Context, remotePath, localPath string) error {
	return copyLocalFile(filepath.Join(r.root, filepath.FromSlash(remotePath)), localPath)
}

func (r *LocalRepository) uploadFile(_ context.Context, localPath, remotePath string) error {
	return copyLocalFile(localPath, filepath.Join(r.root, filepath.FromSlash(remotePath)))
}

func copyLocalFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", filepath.Dir(dst), err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %q to %q: %w", src, dst, err)
	}

	return nil
}
