package service

import (
	"fmt"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// NotFoundError reports an unknown task id.
type NotFoundError struct {
	TaskID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// ApprovalRequiredError reports a start attempt without a satisfied pre gate.
type ApprovalRequiredError struct {
	TaskID string
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("approval required: %s", e.TaskID)
}

// InvalidTransitionError reports a state machine violation.
type InvalidTransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// AlreadyRunningError reports a start attempt on an in-progress task.
type AlreadyRunningError struct {
	TaskID string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("task already in progress: %s", e.TaskID)
}

// MissingParameterError reports an actuator action lacking a required field.
type MissingParameterError struct {
	Action    models.Action
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s action requires '%s' parameter", e.Action, e.Parameter)
}

// VerificationFailedError reports a retry budget exhausted on failed checks.
type VerificationFailedError struct {
	StepID  string
	Retries int
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("step %s verification failed after %d retries", e.StepID, e.Retries)
}

// ActuatorError wraps an opaque failure from the external driver.
type ActuatorError struct {
	Op  string
	Err error
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("actuator %s: %v", e.Op, e.Err)
}

func (e *ActuatorError) Unwrap() error { return e.Err }

// StorageError wraps an I/O failure persisting or reading records. It is
// fatal to the triggering operation and never retried by the core.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
