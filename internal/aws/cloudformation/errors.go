package cloudformation

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

var (
	ErrStackNotFound = errors.New("stack not found")
	ErrStackFailed   = errors.New("stack operation failed")
	// ErrStackNotUpdatable is returned for stacks that can only be deleted,
	// such as ones left in ROLLBACK_COMPLETE by a failed create.
	ErrStackNotUpdatable = errors.New("stack cannot be updated")
)

func apiError(err error) (smithy.APIError, bool) {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func isNotFound(err error) bool {
	ae, ok := apiError(err)
	return ok && ae.ErrorCode() == "ValidationError" && strings.Contains(ae.ErrorMessage(), "does not exist")
}

func isNoUpdates(err error) bool {
	ae, ok := apiError(err)
	return ok && ae.ErrorCode() == "ValidationError" && strings.Contains(ae.ErrorMessage(), "No updates are to be performed")
}

// InProgress reports whether status is a transitional stack status.
func InProgress(status string) bool {
	return strings.HasSuffix(status, "_IN_PROGRESS")
}

// Failed reports whether status is a terminal status that did not reach the
// requested state.
func Failed(status string) bool {
	if InProgress(status) {
		return false
	}
	return strings.HasSuffix(status, "_FAILED") || strings.Contains(status, "ROLLBACK")
}
