package api

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is unknown to the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when a mutation targets a job that has
	// already reached COMPLETED or FAILED.
	ErrJobTerminal = errors.New("job is in a terminal state")

	// ErrInvalidRequest is returned for malformed input rejected at the
	// boundary, before any job is created.
	ErrInvalidRequest = errors.New("invalid request")
)

// StructuralError is a named, described defect found by the graph validator.
// Its message is precise enough to be fed back verbatim to the repair
// capability as guidance; it is never surfaced raw to end users except as a
// failed job's message text.
type StructuralError struct {
	// NodeID identifies the offending node, when one can be named.
	NodeID string

	Reason string
}

func (e *StructuralError) Error() string {
	return e.Reason
}

// NewStructuralError builds a StructuralError for the given node.
func NewStructuralError(nodeID, format string, args ...any) *StructuralError {
	return &StructuralError{
		NodeID: nodeID,
		Reason: fmt.Sprintf(format, args...),
	}
}

// AsStructural returns the StructuralError wrapped in err, if any.
func AsStructural(err error) (*StructuralError, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CapabilityError indicates that a capability provider could not produce a
// candidate output at all. For retry-budget purposes it is treated like a
// structural failure, but it is labeled distinctly in job messages and logs.
type CapabilityError struct {
	// Stage names the capability that failed, e.g. "transform".
	Stage string

	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability failure (%s): %v", e.Stage, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps a provider failure for the given stage.
func NewCapabilityError(stage string, err error) *CapabilityError {
	return &CapabilityError{Stage: stage, Err: err}
}

// AsCapability returns the CapabilityError wrapped in err, if any.
func AsCapability(err error) (*CapabilityError, bool) {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
