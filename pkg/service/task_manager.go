package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// DefaultProjectID is the project charged with workflow history when tasks
// are not associated with an explicit project.
const DefaultProjectID = "default"

// TaskManager owns the task lifecycle: creation, approval gating, status
// transitions and log recording. It is the only writer of task state; every
// mutation is applied under the task's own critical section and persisted
// before the section is released.
type TaskManager struct {
	tasks  *taskMap
	memory *MemoryService
	logger Logger
}

func NewTaskManager(memory *MemoryService, logger Logger) *TaskManager {
	return &TaskManager{
		tasks:  newTaskMap(),
		memory: memory,
		logger: logger,
	}
}

// CreateTaskRequest carries the inputs for CreateTask. Nil optional fields
// fall back to project preferences or hard defaults, resolved once here and
// never re-derived later.
type CreateTaskRequest struct {
	Name       string                `json:"task_name"`
	Source     models.TaskSource     `json:"task_source"`
	Workflow   models.Workflow       `json:"workflow"`
	Approval   *models.ApprovalFlags `json:"approval_flags,omitempty"`
	Scheduling *models.Scheduling    `json:"scheduling,omitempty"`
	Automation *models.Automation    `json:"automation,omitempty"`
}

// CreateTask builds a new Pending task with a fresh id, stores it durably and
// adds it to the active index. A missing preferences record never fails the
// call; only a storage write error does.
func (tm *TaskManager) CreateTask(req CreateTaskRequest) (models.Task, error) {
	now := time.Now().UTC()

	approval := tm.defaultApprovalFlags()
	if req.Approval != nil {
		approval = *req.Approval
	}
	automation := models.DefaultAutomation()
	if req.Automation != nil {
		automation = *req.Automation
	}

	task := models.Task{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Source:       req.Source,
		Status:       models.PendingTaskStatus,
		Approval:     approval,
		Scheduling:   req.Scheduling,
		Automation:   automation,
		Workflow:     req.Workflow,
		ExecutionLog: []models.ExecutionLogEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := tm.memory.StoreTask(task); err != nil {
		return models.Task{}, err
	}
	tm.tasks.insert(task)

	tm.logger.Infof("Created task '%s' (%s)", task.Name, task.ID)
	return task, nil
}

func (tm *TaskManager) defaultApprovalFlags() models.ApprovalFlags {
	project, ok := tm.memory.GetProject(DefaultProjectID)
	if !ok {
		return models.DefaultApprovalFlags()
	}
	return models.ApprovalFlags{
		PreApprovalRequired:  project.AutomationPreferences.DefaultPreApproval,
		PostApprovalRequired: project.AutomationPreferences.DefaultPostApproval,
	}
}

// GetTask returns a snapshot of the task, consulting the durable record for
// ids not in the active index.
func (tm *TaskManager) GetTask(id string) (models.Task, bool) {
	if t, ok := tm.tasks.get(id); ok {
		return t, true
	}
	if t, ok := tm.memory.GetTask(id); ok {
		tm.tasks.insert(t)
		return t, true
	}
	return models.Task{}, false
}

// Approve grants the given gate. Approving a gate that is not required is a
// no-op and never changes status. Granting the pre gate on a Pending task
// advances it to Approved.
func (tm *TaskManager) Approve(id string, gate models.ApprovalGate) error {
	_, err := tm.update(id, func(t *models.Task) error {
		now := time.Now().UTC()
		switch gate {
		case models.PreApprovalGate:
			if !t.Approval.PreApprovalRequired {
				return nil
			}
			t.Approval.PreApprovalGranted = true
			t.Approval.PreApprovalTimestamp = &now
			if t.Status == models.PendingTaskStatus {
				t.Status = models.ApprovedTaskStatus
			}
		case models.PostApprovalGate:
			if !t.Approval.PostApprovalRequired {
				return nil
			}
			t.Approval.PostApprovalGranted = true
			t.Approval.PostApprovalTimestamp = &now
		}
		return nil
	})
	return err
}

// CanStart is a pure predicate: it reports whether the task may transition to
// InProgress right now. Outstanding approval yields (false, nil); state
// machine violations yield an error.
func (tm *TaskManager) CanStart(id string) (bool, error) {
	task, ok := tm.GetTask(id)
	if !ok {
		return false, &NotFoundError{TaskID: id}
	}

	switch task.Status {
	case models.PendingTaskStatus, models.ApprovedTaskStatus, models.PausedTaskStatus:
	case models.InProgressTaskStatus:
		return false, &AlreadyRunningError{TaskID: id}
	default:
		return false, &InvalidTransitionError{From: task.Status, To: models.InProgressTaskStatus}
	}

	if task.Approval.GateSatisfied(models.PreApprovalGate) {
		return true, nil
	}
	// Trusted-repeat policy: an auto-run repetitive task that has already
	// executed at least once may start without a fresh approval.
	if task.Automation.AutoRunEnabled && task.Automation.ExecutionCount > 0 {
		return true, nil
	}
	return false, nil
}

// Start transitions the task to InProgress, failing with ApprovalRequired
// when the pre gate is outstanding.
func (tm *TaskManager) Start(id string) error {
	ok, err := tm.CanStart(id)
	if err != nil {
		return err
	}
	if !ok {
		return &ApprovalRequiredError{TaskID: id}
	}

	_, err = tm.update(id, func(t *models.Task) error {
		// Re-check under the entry lock: a racing starter may have won
		// between CanStart and here.
		switch t.Status {
		case models.PendingTaskStatus, models.ApprovedTaskStatus, models.PausedTaskStatus:
		case models.InProgressTaskStatus:
			return &AlreadyRunningError{TaskID: id}
		default:
			return &InvalidTransitionError{From: t.Status, To: models.InProgressTaskStatus}
		}
		now := time.Now().UTC()
		t.Status = models.InProgressTaskStatus
		t.StartedAt = &now
		return nil
	})
	if err == nil {
		tm.logger.Infof("Started task %s", id)
	}
	return err
}

// Pause moves an InProgress task to Paused. An in-flight step is not
// interrupted; pausing only prevents the next step from starting.
func (tm *TaskManager) Pause(id string) error {
	_, err := tm.update(id, func(t *models.Task) error {
		if t.Status != models.InProgressTaskStatus {
			return &InvalidTransitionError{From: t.Status, To: models.PausedTaskStatus}
		}
		t.Status = models.PausedTaskStatus
		return nil
	})
	return err
}

// Resume moves a Paused task back to InProgress.
func (tm *TaskManager) Resume(id string) error {
	_, err := tm.update(id, func(t *models.Task) error {
		if t.Status != models.PausedTaskStatus {
			return &InvalidTransitionError{From: t.Status, To: models.InProgressTaskStatus}
		}
		t.Status = models.InProgressTaskStatus
		return nil
	})
	return err
}

// Complete marks the task Completed, bumps the execution count and records a
// workflow-history entry against the owning project.
func (tm *TaskManager) Complete(id string) error {
	var durationMs int64
	task, err := tm.update(id, func(t *models.Task) error {
		now := time.Now().UTC()
		t.Status = models.CompletedTaskStatus
		t.FinishedAt = &now
		t.Automation.ExecutionCount++
		if t.StartedAt != nil {
			durationMs = now.Sub(*t.StartedAt).Milliseconds()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tm.memory.RecordWorkflowHistory(DefaultProjectID, task.ID, true, durationMs); err != nil {
		return err
	}
	tm.logger.Infof("Completed task %s (run %d)", id, task.Automation.ExecutionCount)
	return nil
}

// Fail marks the task Failed and appends a synthetic log entry capturing the
// error, so the failure stays auditable.
func (tm *TaskManager) Fail(id string, errorMessage string) error {
	_, err := tm.update(id, func(t *models.Task) error {
		now := time.Now().UTC()
		t.Status = models.FailedTaskStatus
		t.FinishedAt = &now
		t.ExecutionLog = append(t.ExecutionLog, models.ExecutionLogEntry{
			StepID:        "error",
			Timestamp:     now,
			Action:        "error",
			ExtractedData: map[string]any{"error": errorMessage},
		})
		return nil
	})
	if err == nil {
		tm.logger.Errorf("Task %s failed: %s", id, errorMessage)
	}
	return err
}

// UpdateCurrentStep moves the task's single-owner step cursor.
func (tm *TaskManager) UpdateCurrentStep(id string, stepID *string) error {
	_, err := tm.update(id, func(t *models.Task) error {
		t.CurrentStep = stepID
		return nil
	})
	return err
}

// AppendLogEntry appends to the task's execution log. The log is never
// truncated or reordered.
func (tm *TaskManager) AppendLogEntry(id string, entry models.ExecutionLogEntry) error {
	_, err := tm.update(id, func(t *models.Task) error {
		t.ExecutionLog = append(t.ExecutionLog, entry)
		return nil
	})
	return err
}

// ListAll returns a snapshot of every task, pulling durable records into the
// active index first so a fresh process still sees previously created tasks.
func (tm *TaskManager) ListAll() []models.Task {
	durable, err := tm.memory.ListTasks()
	if err != nil {
		tm.logger.Errorf("Failed to list stored tasks: %v", err)
	}
	for _, t := range durable {
		tm.tasks.insertIfAbsent(t)
	}
	return tm.tasks.snapshot()
}

// ListPending returns tasks awaiting execution (Pending or Approved).
func (tm *TaskManager) ListPending() []models.Task {
	var pending []models.Task
	for _, t := range tm.ListAll() {
		if t.Status == models.PendingTaskStatus || t.Status == models.ApprovedTaskStatus {
			pending = append(pending, t)
		}
	}
	return pending
}

// update applies fn and persists the record inside the task's critical
// section, so racing mutations on the same id cannot interleave between
// mutate and write.
func (tm *TaskManager) update(id string, fn func(*models.Task) error) (models.Task, error) {
	if _, ok := tm.tasks.entry(id); !ok {
		// Cold lookup: pull the durable record into the active index first.
		if _, ok := tm.GetTask(id); !ok {
			return models.Task{}, &NotFoundError{TaskID: id}
		}
	}
	return tm.tasks.mutate(id, func(t *models.Task) error {
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = time.Now().UTC()
		return tm.memory.StoreTask(*t)
	})
}
