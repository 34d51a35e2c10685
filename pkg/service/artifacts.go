package service

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/artifacts"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// ArtifactsService serves mlflow-artifacts:/ URIs from a local directory.
type ArtifactsService struct {
	root string
}

func NewArtifactsService(root string) *ArtifactsService {
	return &ArtifactsService{root: root}
}

func (m ArtifactsService) ListArtifacts(input *contract.ListArtifacts) (*contract.ListArtifactsResponse, *contract.Error) {
	files, err := artifacts.ListDirectory(m.root, strings.Trim(input.Path, "/"))
	if err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to list artifacts", err)
	}

	// Paths are reported relative to the listed directory.
	for i := range files {
		files[i].Path = path.Base(files[i].Path)
	}

	return &contract.ListArtifactsResponse{Files: files}, nil
}

// LocalPath maps an artifact path onto the file backing it.
func (m ArtifactsService) LocalPath(artifactPath string) (string, *contract.Error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(artifactPath, "\\", "/"))
	if cleaned == "/" || strings.Contains(artifactPath, "..") {
		return "", contract.NewError(
			contract.ErrorCodeInvalidParameterValue,
			fmt.Sprintf("Invalid artifact path: %q", artifactPath),
		)
	}

	return filepath.Join(m.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

func (m ArtifactsService) UploadArtifact(artifactPath string, data []byte) (*contract.Empty, *contract.Error) {
	local, contractError := m.LocalPath(artifactPath)
	if contractError != nil {
		return nil, contractError
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to create artifact directory", err)
	}

	if err := os.WriteFile(local, data, 0o644); err != nil { //nolint:gosec
		return nil, contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to write artifact", err)
	}

	return &contract.Empty{}, nil
}
