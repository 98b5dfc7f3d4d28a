package models

// Workflow is an ordered sequence of steps. Sequence order is execution order.
type Workflow struct {
	ID    string `json:"workflow_id"`
	Steps []Step `json:"steps"`
}

// Action is the kind of operation a step performs against the actuator.
type Action string

const (
	NavigateAction Action = "navigate"
	ClickAction    Action = "click"
	TypeAction     Action = "type"
	ExtractAction  Action = "extract"
	WaitAction     Action = "wait"
	VerifyAction   Action = "verify"
	SubmitAction   Action = "submit"
)

// VerificationType names a check the Verifier applies to a step's output.
type VerificationType string

const (
	SchemaVerification          VerificationType = "schema"
	SanityCheckVerification     VerificationType = "sanity_check"
	ElementPresenceVerification VerificationType = "element_presence"
	NumericRangeVerification    VerificationType = "numeric_range"
)

// Step is one actuator operation plus its verification and retry policy.
// RequiresApproval is enforced by the workflow driver, not the executor.
type Step struct {
	ID               string             `json:"step_id"`
	Action           Action             `json:"action"`
	Target           string             `json:"target"`
	Parameters       map[string]any     `json:"parameters,omitempty"`
	ExpectedSchema   any                `json:"expected_schema,omitempty"`
	Verification     []VerificationType `json:"verification"`
	Retry            RetryConfig        `json:"retry_config"`
	RequiresApproval bool               `json:"requires_approval"`
}

// RetryConfig bounds the executor's retry loop for a step.
type RetryConfig struct {
	MaxRetries   int   `json:"max_retries"`
	RetryDelayMs int64 `json:"retry_delay_ms"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, RetryDelayMs: 1000}
}
