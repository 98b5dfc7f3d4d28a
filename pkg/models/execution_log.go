package models

import "time"

// ExecutionLogEntry records one attempted step. The log is append-only and
// keeps every attempt, including ones that were later retried.
type ExecutionLogEntry struct {
	StepID             string              `json:"step_id"`
	Timestamp          time.Time           `json:"timestamp"`
	Action             string              `json:"action"`
	DomSnapshotHash    string              `json:"dom_snapshot_hash"`
	ExtractedData      any                 `json:"extracted_data,omitempty"`
	VerificationResult *VerificationResult `json:"verification_result,omitempty"`
	RetryCount         int                 `json:"retry_count"`
}

// VerificationResult is the conjunction of the individual check outcomes.
type VerificationResult struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
}

type CheckResult struct {
	CheckType string `json:"check_type"`
	Passed    bool   `json:"passed"`
	Message   string `json:"message,omitempty"`
}
