package training

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/forest"
)

const (
	ModelArtifactPath = "model"
	MLModelFile       = "MLmodel"
	ModelDataFile     = "model.json"
	FlavorName        = "go_forest"
)

// MLModel is the descriptor MLflow stores next to every logged model.
type MLModel struct {
	ArtifactPath   string                    `yaml:"artifact_path"`
	Flavors        map[string]map[string]any `yaml:"flavors"`
	ModelUUID      string                    `yaml:"model_uuid"`
	RunID          string                    `yaml:"run_id"`
	UTCTimeCreated string                    `yaml:"utc_time_created"`
}

// SaveModel writes the MLmodel descriptor and the serialized forest into dir.
func SaveModel(dir string, model *forest.Forest, runID string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory %q: %w", dir, err)
	}

	if err := model.Save(filepath.Join(dir, ModelDataFile)); err != nil {
		return err
	}

	descriptor := MLModel{
		ArtifactPath: ModelArtifactPath,
		Flavors: map[string]map[string]any{
			FlavorName: {
				"data":         ModelDataFile,
				"features":     model.Features,
				"n_estimators": len(model.Trees),
			},
		},
		ModelUUID:      uuid.New().String(),
		RunID:          runID,
		UTCTimeCreated: time.Now().UTC().Format("2006-01-02 15:04:05.000000"),
	}

	raw, err := yaml.Marshal(descriptor)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", MLModelFile, err)
	}

	if err := os.WriteFile(filepath.Join(dir, MLModelFile), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", MLModelFile, err)
	}

	return nil
}

// LoadModel reads a model directory written by SaveModel.
func LoadModel(dir string) (*forest.Forest, *MLModel, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MLModelFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", MLModelFile, err)
	}

	var descriptor MLModel
	if err := yaml.Unmarshal(raw, &descriptor); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", MLModelFile, err)
	}

	flavor, ok := descriptor.Flavors[FlavorName]
	if !ok {
		return nil, nil, fmt.Errorf("%s has no %s flavor", MLModelFile, FlavorName)
	}

	data, _ := flavor["data"].(string)
	if data == "" {
		data = ModelDataFile
	}

	model, err := forest.Load(filepath.Join(dir, data))
	if err != nil {
		return nil, nil, err
	}

	return model, &descriptor, nil
}
