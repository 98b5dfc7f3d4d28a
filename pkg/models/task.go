package models

import "time"

type TaskStatus string

const (
	PendingTaskStatus    TaskStatus = "pending"
	ApprovedTaskStatus   TaskStatus = "approved"
	InProgressTaskStatus TaskStatus = "in_progress"
	PausedTaskStatus     TaskStatus = "paused"
	CompletedTaskStatus  TaskStatus = "completed"
	FailedTaskStatus     TaskStatus = "failed"
	CancelledTaskStatus  TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s TaskStatus) Terminal() bool {
	return s == CompletedTaskStatus || s == FailedTaskStatus || s == CancelledTaskStatus
}

// TaskSource records where a task came from.
type TaskSource string

const (
	UserManualSource     TaskSource = "manual"
	UserChatSource       TaskSource = "chat"
	AiAutoDetectedSource TaskSource = "ai-detected"
	AiSuggestedSource    TaskSource = "ai-suggested"
	ScheduledSource      TaskSource = "scheduled"
)

// ApprovalGate names one of the two independent approval checkpoints on a task.
type ApprovalGate string

const (
	PreApprovalGate  ApprovalGate = "pre"
	PostApprovalGate ApprovalGate = "post"
)

// Task is an automation task: a workflow plus the lifecycle, approval and
// scheduling state around it. The TaskManager is the only writer.
type Task struct {
	ID           string              `json:"task_id"`
	Name         string              `json:"task_name"`
	Source       TaskSource          `json:"task_source"`
	Status       TaskStatus          `json:"status"`
	Approval     ApprovalFlags       `json:"approval_flags"`
	Scheduling   *Scheduling         `json:"scheduling,omitempty"`
	Automation   Automation          `json:"automation"`
	Workflow     Workflow            `json:"workflow"`
	CurrentStep  *string             `json:"current_step,omitempty"`
	PageState    *PageState          `json:"page_state,omitempty"`
	ExecutionLog []ExecutionLogEntry `json:"execution_log"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ApprovalFlags holds the two approval gates. A gate is satisfied iff it is
// not required, or it has been granted, or the task is auto-approved.
type ApprovalFlags struct {
	PreApprovalRequired   bool       `json:"pre_approval_required"`
	PreApprovalGranted    bool       `json:"pre_approval_granted"`
	PreApprovalTimestamp  *time.Time `json:"pre_approval_timestamp,omitempty"`
	PostApprovalRequired  bool       `json:"post_approval_required"`
	PostApprovalGranted   bool       `json:"post_approval_granted"`
	PostApprovalTimestamp *time.Time `json:"post_approval_timestamp,omitempty"`
	AutoApproved          bool       `json:"auto_approved"`
}

// DefaultApprovalFlags requires both gates, granting neither.
func DefaultApprovalFlags() ApprovalFlags {
	return ApprovalFlags{
		PreApprovalRequired:  true,
		PostApprovalRequired: true,
	}
}

// GateSatisfied evaluates the gate invariant for the given checkpoint.
func (f ApprovalFlags) GateSatisfied(gate ApprovalGate) bool {
	if f.AutoApproved {
		return true
	}
	switch gate {
	case PreApprovalGate:
		return !f.PreApprovalRequired || f.PreApprovalGranted
	case PostApprovalGate:
		return !f.PostApprovalRequired || f.PostApprovalGranted
	}
	return false
}

// Automation describes repetition settings. ExecutionCount increases exactly
// once per successful completion.
type Automation struct {
	IsRepetitive   bool `json:"is_repetitive"`
	AutoRunEnabled bool `json:"auto_run_enabled"`
	ExecutionCount int  `json:"execution_count"`
}

func DefaultAutomation() Automation {
	return Automation{}
}

// PageState captures what the actuator saw on the page a task operates on.
type PageState struct {
	URL              string        `json:"url"`
	InitialStateHash string        `json:"initial_state_hash"`
	ElementsSeen     []ElementInfo `json:"elements_seen"`
	ElementsRelevant []string      `json:"elements_relevant"`
}

type ElementInfo struct {
	Selector     string    `json:"selector"`
	SemanticType string    `json:"semantic_type"`
	Timestamp    time.Time `json:"timestamp"`
}
