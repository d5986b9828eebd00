package artifacts

import (
	"errors"
	"fmt"
)

// ErrLabelCoverage marks a classifier label with no sustainability entry.
var ErrLabelCoverage = errors.New("sustainability table does not cover classifier labels")

// LoadError is fatal at startup: the service must not become ready.
type LoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load artifact %s (%s): %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("load artifact %s: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func loadErr(artifact, path string, err error) error {
	return &LoadError{Artifact: artifact, Path: path, Err: err}
}
