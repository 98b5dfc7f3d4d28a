package service

import (
	"context"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// WorkflowRunner is the driver loop around the step executor: it walks a
// task's steps in order on the task's own execution path. Two steps of the
// same task never run concurrently; the current_step field is the single
// cursor.
type WorkflowRunner struct {
	manager  *TaskManager
	executor *StepExecutor
	logger   Logger
}

func NewWorkflowRunner(manager *TaskManager, executor *StepExecutor, logger Logger) *WorkflowRunner {
	return &WorkflowRunner{
		manager:  manager,
		executor: executor,
		logger:   logger,
	}
}

// Run executes the remaining steps of an InProgress task. Pausing does not
// interrupt the in-flight step; it stops the run before the next step, and a
// later Run continues from the recorded cursor. On success the task is
// completed; on a step failure it is failed with the error recorded.
func (r *WorkflowRunner) Run(ctx context.Context, taskID string, act Actuator) error {
	task, ok := r.manager.GetTask(taskID)
	if !ok {
		return &NotFoundError{TaskID: taskID}
	}
	if task.Status != models.InProgressTaskStatus {
		return &InvalidTransitionError{From: task.Status, To: models.InProgressTaskStatus}
	}

	steps := task.Workflow.Steps
	start := 0
	if task.CurrentStep != nil {
		// Resume re-runs the step the cursor points at: it may have been
		// interrupted mid-attempt.
		for i, step := range steps {
			if step.ID == *task.CurrentStep {
				start = i
				break
			}
		}
	}

	for i := start; i < len(steps); i++ {
		current, ok := r.manager.GetTask(taskID)
		if !ok {
			return &NotFoundError{TaskID: taskID}
		}
		switch current.Status {
		case models.PausedTaskStatus:
			r.logger.Infof("Task %s paused before step %s", taskID, steps[i].ID)
			return nil
		case models.InProgressTaskStatus:
		default:
			r.logger.Infof("Task %s is %s, stopping run", taskID, current.Status)
			return nil
		}

		step := steps[i]
		if step.RequiresApproval && !current.Approval.GateSatisfied(models.PreApprovalGate) {
			err := &ApprovalRequiredError{TaskID: taskID}
			if failErr := r.manager.Fail(taskID, err.Error()); failErr != nil {
				return failErr
			}
			return err
		}

		if _, err := r.executor.Execute(ctx, taskID, step, act); err != nil {
			if failErr := r.manager.Fail(taskID, err.Error()); failErr != nil {
				r.logger.Errorf("Failed to record failure of task %s: %v", taskID, failErr)
			}
			return err
		}
	}

	if err := r.manager.UpdateCurrentStep(taskID, nil); err != nil {
		return err
	}
	return r.manager.Complete(taskID)
}
