package deploy

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a stage configuration document missing a
// required entry.
type ConfigurationError struct {
	Path    string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return "configuration error: " + e.Message
	}

	return fmt.Sprintf("configuration error in %s: %s", e.Path, e.Message)
}

// Reason tells which packaging step failed.
type Reason string

const (
	ReasonResolveSource Reason = "resolve-source"
	ReasonDownload      Reason = "download"
	ReasonArchive       Reason = "archive"
	ReasonBucket        Reason = "bucket"
	ReasonUpload        Reason = "upload"
)

type PackagingError struct {
	Reason  Reason
	Model   string
	Version string
	Err     error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("failed to package %s/%s (%s): %v", e.Model, e.Version, e.Reason, e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}

// TransitionError carries the versions already archived when a stage
// transition stopped half way.
type TransitionError struct {
	Report *TransitionReport
	Err    error
}

func (e *TransitionError) Error() string {
	if e.Report == nil || len(e.Report.Archived) == 0 {
		return fmt.Sprintf("stage transition failed: %v", e.Err)
	}

	return fmt.Sprintf("stage transition failed after archiving versions %s: %v",
		strings.Join(e.Report.Archived, ", "), e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
