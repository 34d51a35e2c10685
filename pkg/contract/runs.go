package contract

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

// IsTerminated reports whether the status is final.
func (s RunStatus) IsTerminated() bool {
	return s == RunStatusFinished || s == RunStatusFailed || s == RunStatusKilled
}

type RunInfo struct {
	RunID          string    `json:"run_id"`
	RunUUID        string    `json:"run_uuid"`
	RunName        string    `json:"run_name,omitempty"`
	ExperimentID   string    `json:"experiment_id"`
	UserID         string    `json:"user_id,omitempty"`
	Status         RunStatus `json:"status"`
	StartTime      int64     `json:"start_time,omitempty"`
	EndTime        int64     `json:"end_time,omitempty"`
	ArtifactURI    string    `json:"artifact_uri"`
	LifecycleStage string    `json:"lifecycle_stage,omitempty"`
}

type Metric struct {
	Key       string  `json:"key"       validate:"required,max=250"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

type Param struct {
	Key   string `json:"key"   validate:"required,max=250"`
	Value string `json:"value" validate:"max=6000"`
}

type RunTag struct {
	Key   string `json:"key"   validate:"required,max=250"`
	Value string `json:"value" validate:"max=5000"`
}

type RunData struct {
	Metrics []Metric `json:"metrics,omitempty"`
	Params  []Param  `json:"params,omitempty"`
	Tags    []RunTag `json:"tags,omitempty"`
}

type Run struct {
	Info RunInfo `json:"info"`
	Data RunData `json:"data"`
}

// Metric returns the latest value logged for key.
func (r *Run) Metric(key string) (float64, bool) {
	for _, m := range r.Data.Metrics {
		if m.Key == key {
			return m.Value, true
		}
	}

	return 0, false
}

// Param returns the value logged for key.
func (r *Run) Param(key string) (string, bool) {
	for _, p := range r.Data.Params {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

type CreateRun struct {
	ExperimentID string   `json:"experiment_id"      validate:"required,stringAsPositiveInteger"`
	UserID       string   `json:"user_id,omitempty"`
	RunName      string   `json:"run_name,omitempty"`
	StartTime    int64    `json:"start_time,omitempty"`
	Tags         []RunTag `json:"tags,omitempty"     validate:"dive"`
}

type CreateRunResponse struct {
	Run *Run `json:"run"`
}

type UpdateRun struct {
	RunID   string    `json:"run_id"             validate:"required"`
	Status  RunStatus `json:"status,omitempty"   validate:"omitempty,oneof=RUNNING SCHEDULED FINISHED FAILED KILLED"`
	EndTime int64     `json:"end_time,omitempty"`
	RunName string    `json:"run_name,omitempty"`
}

type UpdateRunResponse struct {
	RunInfo *RunInfo `json:"run_info"`
}

type GetRun struct {
	RunID string `query:"run_id" validate:"required"`
}

type GetRunResponse struct {
	Run *Run `json:"run"`
}

type LogBatch struct {
	RunID   string   `json:"run_id"            validate:"required"`
	Metrics []Metric `json:"metrics,omitempty" validate:"max=1000,dive"`
	Params  []Param  `json:"params,omitempty"  validate:"max=100,dive"`
	Tags    []RunTag `json:"tags,omitempty"    validate:"max=100,dive"`
}

type LogMetric struct {
	RunID     string  `json:"run_id"    validate:"required"`
	Key       string  `json:"key"       validate:"required,max=250"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp" validate:"required"`
	Step      int64   `json:"step"`
}

type LogParam struct {
	RunID string `json:"run_id" validate:"required"`
	Key   string `json:"key"    validate:"required,max=250"`
	Value string `json:"value"  validate:"max=6000"`
}

type Empty struct{}
