package engine

import (
	"errors"
	"fmt"

	"github.com/meridianerp/policyflow/internal/models"
)

// InvalidTransitionError is returned when the requested action is not valid
// from the document's current state. Always recoverable by the caller.
type InvalidTransitionError struct {
	Action models.DocumentAction
	State  models.DocumentState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q is not allowed from state %q", e.Action, e.State)
}

// ApprovalRequiredError signals that the transition is gated, not failed.
// Roles lists who could approve, when the matched rule names them.
type ApprovalRequiredError struct {
	RuleID string
	Reason string
	Roles  []string
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("approval required: %s", e.Reason)
}

// DeniedError is a caller-asserted hard business denial. Terminal for this attempt.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied: %s", e.Reason)
}

// AuditError reports an audit durability failure. It never reverses an
// already-applied transition; gated and denied outcomes fail closed on it.
type AuditError struct {
	Err error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("audit write failed: %v", e.Err)
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

// ErrVersionConflict is returned by document stores when an optimistic state
// update lost the race against a concurrent transition.
var ErrVersionConflict = errors.New("document version conflict")

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsApprovalRequired reports whether err is an ApprovalRequiredError.
func IsApprovalRequired(err error) bool {
	var target *ApprovalRequiredError
	return errors.As(err, &target)
}

// IsDenied reports whether err is a DeniedError.
func IsDenied(err error) bool {
	var target *DeniedError
	return errors.As(err, &target)
}
