package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

const defaultWaitMs = 1000

// StepExecutor performs one workflow step against the actuator, wraps it in
// bounded retries, invokes the verifier and appends every attempt to the
// task's execution log.
type StepExecutor struct {
	manager  *TaskManager
	verifier *Verifier
	logger   Logger
}

func NewStepExecutor(manager *TaskManager, logger Logger) *StepExecutor {
	return &StepExecutor{
		manager:  manager,
		verifier: NewVerifier(),
		logger:   logger,
	}
}

// Execute runs the step, retrying on actuator errors and failed verification
// up to the step's budget, sleeping the configured delay between attempts.
// The log records each attempt with its retry counter, including attempts
// that were later retried.
func (e *StepExecutor) Execute(ctx context.Context, taskID string, step models.Step, act Actuator) (any, error) {
	retryCount := 0
	for {
		result, actErr := e.performAction(ctx, taskID, step, act)
		if actErr != nil {
			e.logRecordAttempt(taskID, step, "", nil, nil, retryCount)
			if retryCount < step.Retry.MaxRetries {
				retryCount++
				e.logger.Infof("Retrying step %s after actuator error (attempt %d/%d): %v",
					step.ID, retryCount, step.Retry.MaxRetries, actErr)
				if err := sleepFor(ctx, step.Retry.RetryDelayMs); err != nil {
					return nil, err
				}
				continue
			}
			return nil, actErr
		}

		fingerprint, err := e.fingerprint(ctx, act)
		if err != nil {
			return nil, err
		}
		verification := e.verifier.Verify(step, result, fingerprint)
		e.logRecordAttempt(taskID, step, fingerprint, result, &verification, retryCount)

		if !verification.Passed {
			if retryCount < step.Retry.MaxRetries {
				retryCount++
				e.logger.Infof("Retrying step %s after failed verification (attempt %d/%d)",
					step.ID, retryCount, step.Retry.MaxRetries)
				if err := sleepFor(ctx, step.Retry.RetryDelayMs); err != nil {
					return nil, err
				}
				continue
			}
			return nil, &VerificationFailedError{StepID: step.ID, Retries: step.Retry.MaxRetries}
		}
		return result, nil
	}
}

func (e *StepExecutor) performAction(ctx context.Context, taskID string, step models.Step, act Actuator) (any, error) {
	// Record the step cursor before acting.
	stepID := step.ID
	if err := e.manager.UpdateCurrentStep(taskID, &stepID); err != nil {
		return nil, err
	}

	switch step.Action {
	case models.NavigateAction:
		url, ok := paramString(step.Parameters, "url")
		if !ok {
			return nil, &MissingParameterError{Action: step.Action, Parameter: "url"}
		}
		if err := act.Navigate(ctx, url); err != nil {
			return nil, &ActuatorError{Op: "navigate", Err: err}
		}
		return map[string]any{"url": url, "status": "navigated"}, nil

	case models.ClickAction:
		if err := act.Click(ctx, step.Target); err != nil {
			return nil, &ActuatorError{Op: "click", Err: err}
		}
		return map[string]any{"target": step.Target, "status": "clicked"}, nil

	case models.TypeAction:
		text, ok := paramString(step.Parameters, "text")
		if !ok {
			return nil, &MissingParameterError{Action: step.Action, Parameter: "text"}
		}
		if err := act.TypeText(ctx, step.Target, text); err != nil {
			return nil, &ActuatorError{Op: "type", Err: err}
		}
		return map[string]any{"target": step.Target, "text": text, "status": "typed"}, nil

	case models.ExtractAction:
		data, err := act.Extract(ctx, step.Target, step.ExpectedSchema)
		if err != nil {
			return nil, &ActuatorError{Op: "extract", Err: err}
		}
		return data, nil

	case models.WaitAction:
		durationMs := int64(defaultWaitMs)
		if v, ok := paramFloat(step.Parameters, "duration_ms"); ok {
			durationMs = int64(v)
		}
		if err := sleepFor(ctx, durationMs); err != nil {
			return nil, err
		}
		return map[string]any{"duration_ms": durationMs, "status": "waited"}, nil

	case models.VerifyAction:
		data, err := act.Extract(ctx, step.Target, step.ExpectedSchema)
		if err != nil {
			return nil, &ActuatorError{Op: "extract", Err: err}
		}
		fingerprint, err := e.fingerprint(ctx, act)
		if err != nil {
			return nil, err
		}
		verification := e.verifier.Verify(step, data, fingerprint)
		return map[string]any{
			"verification": verification.Passed,
			"checks":       verification.Checks,
		}, nil

	case models.SubmitAction:
		if err := act.Submit(ctx, step.Target); err != nil {
			return nil, &ActuatorError{Op: "submit", Err: err}
		}
		return map[string]any{"target": step.Target, "status": "submitted"}, nil
	}

	return nil, errors.Errorf("unknown action %q", step.Action)
}

// fingerprint hashes the current UI snapshot so state changes across a step
// are detectable later.
func (e *StepExecutor) fingerprint(ctx context.Context, act Actuator) (string, error) {
	snapshot, err := act.Snapshot(ctx)
	if err != nil {
		return "", &ActuatorError{Op: "snapshot", Err: err}
	}
	sum := sha256.Sum256([]byte(snapshot))
	return hex.EncodeToString(sum[:]), nil
}

func (e *StepExecutor) logRecordAttempt(taskID string, step models.Step, fingerprint string, data any, verification *models.VerificationResult, retryCount int) {
	entry := models.ExecutionLogEntry{
		StepID:             step.ID,
		Timestamp:          time.Now().UTC(),
		Action:             string(step.Action),
		DomSnapshotHash:    fingerprint,
		ExtractedData:      data,
		VerificationResult: verification,
		RetryCount:         retryCount,
	}
	if err := e.manager.AppendLogEntry(taskID, entry); err != nil {
		e.logger.Errorf("Failed to append log entry for task %s step %s: %v", taskID, step.ID, err)
	}
}

func sleepFor(ctx context.Context, ms int64) error {
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func paramString(params map[string]any, key string) (string, bool) {
	if params == nil {
		return "", false
	}
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
