package agent

import "fmt"

// ExtractionError wraps a model-call or transport failure during structured
// extraction.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// WorkflowError wraps a persistence failure with the action that was being
// executed.
type WorkflowError struct {
	Action Action
	Err    error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("failed to update profile (%s): %v", e.Action, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }
