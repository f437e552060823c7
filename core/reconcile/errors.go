package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a fatal setup problem, such as a missing join-key column.
	// It is raised before any write.
	ErrConfiguration = errors.New("configuration error")

	// ErrFetch marks a read failure from a collaborator. The pass is aborted and
	// neither table is modified.
	ErrFetch = errors.New("fetch failed")

	// ErrPermissionDenied is returned by collaborators when the caller may not write.
	// At setup it downgrades the pass to full-rewrite mode instead of failing.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPropagationTimeout describes inserted rows that did not become visible in time.
	// It is only ever reported as a warning.
	ErrPropagationTimeout = errors.New("propagation timeout")
)

// PartialWriteError is returned by a batched write that failed after its first
// Applied records were accepted by the service.
type PartialWriteError struct {
	Applied int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%v (%d records applied)", e.Err, e.Applied)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Applied returns the number of records a failed write applied before failing.
func Applied(err error) int {
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		return partial.Applied
	}
	return 0
}
