package config

import (
	"encoding/json"
	"errors"
	"time"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)

		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errors.New("invalid duration")
	}
}

// UnmarshalText lets a Duration be used as a command line flag.
func (d *Duration) UnmarshalText(b []byte) error {
	var err error

	d.Duration, err = time.ParseDuration(string(b))

	return err
}

// Config of the local tracking and model registry server.
type Config struct {
	Address              string   `arg:"--address,env:MLFLOW_ADDRESS"                             default:"127.0.0.1:5000"     help:"address the server listens on"`
	StoreURL             string   `arg:"--store-url,env:MLFLOW_STORE_URL"                         default:"sqlite:///mlflow.db" help:"database URL (sqlite, postgresql, mysql or mssql scheme)"`
	ArtifactsDestination string   `arg:"--artifacts-destination,env:MLFLOW_ARTIFACTS_DESTINATION" default:"./mlartifacts"       help:"local directory served through the mlflow-artifacts proxy"`
	DefaultArtifactRoot  string   `arg:"--default-artifact-root,env:MLFLOW_DEFAULT_ARTIFACT_ROOT" default:"mlflow-artifacts:/" help:"artifact root for new experiments"`
	ShutdownTimeout      Duration `arg:"--shutdown-timeout"                                       default:"1m"                  help:"graceful shutdown timeout"`
	LogLevel             string   `arg:"-"`
	Version              string   `arg:"-"`
}
