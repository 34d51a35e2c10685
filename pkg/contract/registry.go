package contract

import "strings"

// Model version stages understood by the registry.
const (
	StageNone       = "None"
	StageStaging    = "Staging"
	StageProduction = "Production"
	StageArchived   = "Archived"
)

// ModelVersionStatus values.
const (
	ModelVersionStatusPendingRegistration = "PENDING_REGISTRATION"
	ModelVersionStatusFailedRegistration  = "FAILED_REGISTRATION"
	ModelVersionStatusReady               = "READY"
)

//nolint:gochecknoglobals
var canonicalStages = map[string]string{
	"none":       StageNone,
	"staging":    StageStaging,
	"production": StageProduction,
	"archived":   StageArchived,
}

// CanonicalStage maps a case-insensitive stage name onto its canonical spelling.
func CanonicalStage(stage string) (string, bool) {
	canonical, ok := canonicalStages[strings.ToLower(strings.TrimSpace(stage))]

	return canonical, ok
}

// ActiveStages are the stages holding at most one version per model after a promotion.
func ActiveStages() []string {
	return []string{StageStaging, StageProduction}
}

func IsActiveStage(stage string) bool {
	return stage == StageStaging || stage == StageProduction
}

type RegisteredModelTag struct {
	Key   string `json:"key"   validate:"required,max=250"`
	Value string `json:"value" validate:"max=5000"`
}

type ModelVersionTag struct {
	Key   string `json:"key"   validate:"required,max=250"`
	Value string `json:"value" validate:"max=5000"`
}

type RegisteredModel struct {
	Name                 string               `json:"name"`
	CreationTimestamp    int64                `json:"creation_timestamp,omitempty"`
	LastUpdatedTimestamp int64                `json:"last_updated_timestamp,omitempty"`
	Description          string               `json:"description,omitempty"`
	Tags                 []RegisteredModelTag `json:"tags,omitempty"`
}

type ModelVersion struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	CreationTimestamp    int64             `json:"creation_timestamp,omitempty"`
	LastUpdatedTimestamp int64             `json:"last_updated_timestamp,omitempty"`
	UserID               string            `json:"user_id,omitempty"`
	CurrentStage         string            `json:"current_stage"`
	Description          string            `json:"description,omitempty"`
	Source               string            `json:"source"`
	RunID                string            `json:"run_id,omitempty"`
	Status               string            `json:"status,omitempty"`
	StatusMessage        string            `json:"status_message,omitempty"`
	RunLink              string            `json:"run_link,omitempty"`
	Tags                 []ModelVersionTag `json:"tags,omitempty"`
}

type CreateRegisteredModel struct {
	Name        string               `json:"name"                  validate:"required,max=256"`
	Description string               `json:"description,omitempty"`
	Tags        []RegisteredModelTag `json:"tags,omitempty"        validate:"dive"`
}

type GetRegisteredModel struct {
	Name string `query:"name" validate:"required"`
}

type RegisteredModelResponse struct {
	RegisteredModel *RegisteredModel `json:"registered_model"`
}

type CreateModelVersion struct {
	Name        string            `json:"name"                  validate:"required"`
	Source      string            `json:"source"                validate:"required"`
	RunID       string            `json:"run_id,omitempty"`
	RunLink     string            `json:"run_link,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        []ModelVersionTag `json:"tags,omitempty"        validate:"dive"`
}

type GetModelVersion struct {
	Name    string `query:"name"    validate:"required"`
	Version string `query:"version" validate:"required,stringAsPositiveInteger"`
}

type ModelVersionResponse struct {
	ModelVersion *ModelVersion `json:"model_version"`
}

type SearchModelVersions struct {
	Filter     string   `query:"filter"`
	MaxResults int64    `query:"max_results" validate:"gte=0,lte=200000"`
	OrderBy    []string `query:"order_by"`
	PageToken  string   `query:"page_token"`
}

type SearchModelVersionsResponse struct {
	ModelVersions []*ModelVersion `json:"model_versions"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type TransitionModelVersionStage struct {
	Name                    string `json:"name"                      validate:"required"`
	Version                 string `json:"version"                   validate:"required,stringAsPositiveInteger"`
	Stage                   string `json:"stage"                     validate:"required,stage"`
	ArchiveExistingVersions bool   `json:"archive_existing_versions"`
}

type GetModelVersionDownloadURI struct {
	Name    string `query:"name"    validate:"required"`
	Version string `query:"version" validate:"required,stringAsPositiveInteger"`
}

type GetModelVersionDownloadURIResponse struct {
	ArtifactURI string `json:"artifact_uri"`
}
