package models

import "time"

// ProjectMemory aggregates cross-task state for one project: workflow history
// and the automation preferences consulted when tasks are created.
type ProjectMemory struct {
	ID                    string                 `json:"project_id"`
	Name                  string                 `json:"project_name"`
	RecurringRules        []RecurringRule        `json:"recurring_rules"`
	WorkflowHistory       []WorkflowHistoryEntry `json:"workflow_history"`
	AutomationPreferences AutomationPreferences  `json:"automation_preferences"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

type RecurringRule struct {
	ID               string  `json:"rule_id"`
	Pattern          string  `json:"pattern"`
	AutoCreateTask   bool    `json:"auto_create_task"`
	SuggestTask      bool    `json:"suggest_task"`
	WorkflowTemplate *string `json:"workflow_template,omitempty"`
}

type WorkflowHistoryEntry struct {
	TaskID     string    `json:"task_id"`
	ExecutedAt time.Time `json:"executed_at"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms"`
}

// AutomationPreferences supplies the default approval policy for new tasks.
type AutomationPreferences struct {
	DefaultPreApproval         bool `json:"default_pre_approval"`
	DefaultPostApproval        bool `json:"default_post_approval"`
	AutoApproveRepetitiveAfter int  `json:"auto_approve_repetitive_after"`
}

func DefaultAutomationPreferences() AutomationPreferences {
	return AutomationPreferences{
		DefaultPreApproval:         true,
		DefaultPostApproval:        true,
		AutoApproveRepetitiveAfter: 3,
	}
}

// SystemMemory is the system-wide catalog of app schemas, safety rules and
// workflow templates. It changes far less often than task state and is
// guarded by a single read-write lock in the memory service.
type SystemMemory struct {
	AppSchemas        map[string]AppSchema `json:"app_schemas"`
	SafetyRules       []SafetyRule         `json:"safety_rules"`
	WorkflowTemplates []Workflow           `json:"workflow_templates"`
	Version           string               `json:"version"`
	LastUpdated       time.Time            `json:"last_updated"`
}

func NewSystemMemory() SystemMemory {
	return SystemMemory{
		AppSchemas: make(map[string]AppSchema),
		Version:    "1.0.0",
	}
}

// AppSchema records what is known about one application domain.
type AppSchema struct {
	AppName           string             `json:"app_name"`
	Domain            string             `json:"domain"`
	VerifiedSelectors []VerifiedSelector `json:"verified_selectors"`
	UIPatterns        []UIPattern        `json:"ui_patterns"`
}

type VerifiedSelector struct {
	Selector     string    `json:"selector"`
	SemanticType string    `json:"semantic_type"`
	VerifiedAt   time.Time `json:"verified_at"`
	SuccessRate  float64   `json:"success_rate"`
}

type UIPattern struct {
	PatternName string   `json:"pattern_name"`
	Description string   `json:"description"`
	Selectors   []string `json:"selectors"`
}

type SafetyRuleType string

const (
	ApprovalRequiredRule     SafetyRuleType = "approval_required"
	VerificationRequiredRule SafetyRuleType = "verification_required"
	RateLimitRule            SafetyRuleType = "rate_limit"
	DomainRestrictionRule    SafetyRuleType = "domain_restriction"
)

type SafetyRule struct {
	ID        string         `json:"rule_id"`
	Type      SafetyRuleType `json:"rule_type"`
	Condition any            `json:"condition"`
	Action    string         `json:"action"`
}
