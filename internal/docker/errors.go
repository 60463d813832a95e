package docker

import (
	"errors"
	"fmt"

	"github.com/docker/docker/client"
)

// Sentinel error kinds. Raw engine errors never leave this package
// unclassified; callers branch with errors.Is.
var (
	// ErrEngineUnavailable means the engine control API could not be
	// reached. Callers retry with backoff.
	ErrEngineUnavailable = errors.New("container engine unavailable")

	// ErrResourceConflict means a container or volume exists under our
	// deterministic name but carries incompatible labels. Reusing it
	// could leak one owner's data to another, so it is surfaced and
	// never auto-resolved.
	ErrResourceConflict = errors.New("resource conflict")

	// ErrNotFound means the named container or volume does not exist.
	ErrNotFound = errors.New("not found")
)

// classify wraps an engine error with the matching sentinel.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%s: %w: %v", op, ErrEngineUnavailable, err)
	case client.IsErrNotFound(err):
		return fmt.Errorf("%s: %w: %v", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %v", op, err)
	}
}
