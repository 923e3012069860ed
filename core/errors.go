package core

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the delegation failure taxonomy. Every failed
// delegation is classified under exactly one code and returned as a
// well-formed Result, never as an unhandled fault.
type ErrorCode string

const (
	// ErrCodeAgentNotFound means no agent is registered for the task's
	// target type. Recoverable: the error payload enumerates valid types.
	ErrCodeAgentNotFound ErrorCode = "agent-not-found"
	// ErrCodeDepthExceeded means the delegation chain grew too deep. Hard
	// stop to prevent runaway recursion; not retried.
	ErrCodeDepthExceeded ErrorCode = "depth-exceeded"
	// ErrCodeCapacityExceeded means the admission gate's wait budget
	// expired before a slot freed. The orchestrator may retry later.
	ErrCodeCapacityExceeded ErrorCode = "capacity-exceeded"
	// ErrCodeTimeout means the delegation's overall deadline expired.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeExecution means the agent's own logic failed; the detail is
	// surfaced but not interpreted.
	ErrCodeExecution ErrorCode = "execution-error"
	// ErrCodeDisabled means the delegation feature gate is off.
	ErrCodeDisabled ErrorCode = "delegation-disabled"
)

// DelegationError carries the machine-readable failure code plus a short,
// actionable suggestion surfaced to the orchestrator alongside the status.
// For agent-not-found failures AvailableTypes lists the currently
// registered agent types.
type DelegationError struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	Suggestion     string    `json:"suggestion,omitempty"`
	AvailableTypes []string  `json:"available_types,omitempty"`
}

// Error implements the error interface.
func (e *DelegationError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDelegationError builds a DelegationError.
func NewDelegationError(code ErrorCode, message, suggestion string) *DelegationError {
	return &DelegationError{Code: code, Message: message, Suggestion: suggestion}
}

// AsDelegationError unwraps err looking for a *DelegationError.
func AsDelegationError(err error) (*DelegationError, bool) {
	var de *DelegationError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
