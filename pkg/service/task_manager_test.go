package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/service"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{}) {
	// no-op
}

func (l logger) Errorf(format string, args ...interface{}) {
	// no-op
}

func newMemory(t *testing.T) *service.MemoryService {
	memory, err := service.NewMemoryService(storage.NewMockStore(), logger{})
	assert.NoError(t, err)
	return memory
}

func newManager(t *testing.T) *service.TaskManager {
	return service.NewTaskManager(newMemory(t), logger{})
}

func navigateWorkflow() models.Workflow {
	return models.Workflow{
		ID: "wf-nav",
		Steps: []models.Step{
			{
				ID:         "step-1",
				Action:     models.NavigateAction,
				Parameters: map[string]any{"url": "https://example.com"},
				Retry:      models.DefaultRetryConfig(),
			},
		},
	}
}

func TestTaskManager_Lifecycle(t *testing.T) {
	t.Run("CreateDefaults", func(t *testing.T) {
		mgr := newManager(t)
		task, err := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "nightly report",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, models.PendingTaskStatus, task.Status)
		assert.True(t, task.Approval.PreApprovalRequired)
		assert.True(t, task.Approval.PostApprovalRequired)
		assert.False(t, task.Approval.PreApprovalGranted)
		assert.Equal(t, 0, task.Automation.ExecutionCount)
		assert.Empty(t, task.ExecutionLog)

		got, ok := mgr.GetTask(task.ID)
		assert.True(t, ok)
		assert.Equal(t, task.ID, got.ID)
	})

	t.Run("StartWithoutApprovalRejected", func(t *testing.T) {
		mgr := newManager(t)
		task, err := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "gated",
			Source:   models.UserChatSource,
			Workflow: navigateWorkflow(),
		})
		assert.NoError(t, err)

		err = mgr.Start(task.ID)
		var approvalErr *service.ApprovalRequiredError
		assert.ErrorAs(t, err, &approvalErr)

		got, _ := mgr.GetTask(task.ID)
		assert.Equal(t, models.PendingTaskStatus, got.Status)
	})

	t.Run("ApproveThenStart", func(t *testing.T) {
		mgr := newManager(t)
		task, err := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "gated",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
		})
		assert.NoError(t, err)

		assert.NoError(t, mgr.Approve(task.ID, models.PreApprovalGate))
		got, _ := mgr.GetTask(task.ID)
		assert.Equal(t, models.ApprovedTaskStatus, got.Status)
		assert.True(t, got.Approval.PreApprovalGranted)
		assert.NotNil(t, got.Approval.PreApprovalTimestamp)

		assert.NoError(t, mgr.Start(task.ID))
		got, _ = mgr.GetTask(task.ID)
		assert.Equal(t, models.InProgressTaskStatus, got.Status)
		assert.NotNil(t, got.StartedAt)
	})

	t.Run("StartWhileRunningRejected", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "once",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{AutoApproved: true},
		})
		assert.NoError(t, mgr.Start(task.ID))

		err := mgr.Start(task.ID)
		var runningErr *service.AlreadyRunningError
		assert.ErrorAs(t, err, &runningErr)
	})

	t.Run("ApproveUnrequiredGateIsNoOp", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "open",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{PreApprovalRequired: false, PostApprovalRequired: true},
		})

		assert.NoError(t, mgr.Approve(task.ID, models.PreApprovalGate))
		got, _ := mgr.GetTask(task.ID)
		assert.False(t, got.Approval.PreApprovalGranted)
		assert.Nil(t, got.Approval.PreApprovalTimestamp)
		assert.Equal(t, models.PendingTaskStatus, got.Status)

		// The gate is satisfied by not being required.
		ok, err := mgr.CanStart(task.ID)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("PauseResume", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "pausable",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{AutoApproved: true},
		})

		var transitionErr *service.InvalidTransitionError
		assert.ErrorAs(t, mgr.Pause(task.ID), &transitionErr)
		assert.ErrorAs(t, mgr.Resume(task.ID), &transitionErr)

		assert.NoError(t, mgr.Start(task.ID))
		assert.NoError(t, mgr.Pause(task.ID))
		got, _ := mgr.GetTask(task.ID)
		assert.Equal(t, models.PausedTaskStatus, got.Status)

		assert.NoError(t, mgr.Resume(task.ID))
		got, _ = mgr.GetTask(task.ID)
		assert.Equal(t, models.InProgressTaskStatus, got.Status)
	})

	t.Run("CompleteRecordsHistory", func(t *testing.T) {
		memory := newMemory(t)
		mgr := service.NewTaskManager(memory, logger{})
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "finisher",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{AutoApproved: true},
		})

		assert.NoError(t, mgr.Start(task.ID))
		assert.NoError(t, mgr.Complete(task.ID))

		got, _ := mgr.GetTask(task.ID)
		assert.Equal(t, models.CompletedTaskStatus, got.Status)
		assert.Equal(t, 1, got.Automation.ExecutionCount)
		assert.NotNil(t, got.FinishedAt)

		project, ok := memory.GetProject(service.DefaultProjectID)
		assert.True(t, ok)
		assert.Len(t, project.WorkflowHistory, 1)
		assert.Equal(t, task.ID, project.WorkflowHistory[0].TaskID)
		assert.True(t, project.WorkflowHistory[0].Success)
	})

	t.Run("StartTerminalRejected", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "done",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{AutoApproved: true},
		})
		assert.NoError(t, mgr.Start(task.ID))
		assert.NoError(t, mgr.Complete(task.ID))

		err := mgr.Start(task.ID)
		var transitionErr *service.InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, models.CompletedTaskStatus, transitionErr.From)
	})

	t.Run("FailRecordsErrorEntry", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "doomed",
			Source:   models.UserManualSource,
			Workflow: navigateWorkflow(),
			Approval: &models.ApprovalFlags{AutoApproved: true},
		})
		assert.NoError(t, mgr.Start(task.ID))
		assert.NoError(t, mgr.Fail(task.ID, "element not found"))

		got, _ := mgr.GetTask(task.ID)
		assert.Equal(t, models.FailedTaskStatus, got.Status)
		assert.Len(t, got.ExecutionLog, 1)
		assert.Equal(t, "error", got.ExecutionLog[0].StepID)
		assert.Equal(t, map[string]any{"error": "element not found"}, got.ExecutionLog[0].ExtractedData)
	})

	t.Run("UnknownTask", func(t *testing.T) {
		mgr := newManager(t)
		var notFound *service.NotFoundError

		_, ok := mgr.GetTask("missing")
		assert.False(t, ok)
		assert.ErrorAs(t, mgr.Approve("missing", models.PreApprovalGate), &notFound)
		assert.ErrorAs(t, mgr.Start("missing"), &notFound)
		_, err := mgr.CanStart("missing")
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestTaskManager_CanStart(t *testing.T) {
	t.Run("TrustedRepeatBypassesGate", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "recurring export",
			Source:   models.ScheduledSource,
			Workflow: navigateWorkflow(),
			Automation: &models.Automation{
				IsRepetitive:   true,
				AutoRunEnabled: true,
				ExecutionCount: 2,
			},
		})

		// Pre gate required and not granted, but the task has run before.
		ok, err := mgr.CanStart(task.ID)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mgr.Start(task.ID))
	})

	t.Run("FirstRunStillGated", func(t *testing.T) {
		mgr := newManager(t)
		task, _ := mgr.CreateTask(service.CreateTaskRequest{
			Name:     "recurring export",
			Source:   models.ScheduledSource,
			Workflow: navigateWorkflow(),
			Automation: &models.Automation{
				IsRepetitive:   true,
				AutoRunEnabled: true,
				ExecutionCount: 0,
			},
		})

		ok, err := mgr.CanStart(task.ID)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTaskManager_ProjectPreferenceDefaults(t *testing.T) {
	memory := newMemory(t)
	err := memory.StoreProject(models.ProjectMemory{
		ID:   service.DefaultProjectID,
		Name: "Default Project",
		AutomationPreferences: models.AutomationPreferences{
			DefaultPreApproval:  false,
			DefaultPostApproval: true,
		},
	})
	assert.NoError(t, err)

	mgr := service.NewTaskManager(memory, logger{})
	task, err := mgr.CreateTask(service.CreateTaskRequest{
		Name:     "pref-driven",
		Source:   models.UserManualSource,
		Workflow: navigateWorkflow(),
	})
	assert.NoError(t, err)
	assert.False(t, task.Approval.PreApprovalRequired)
	assert.True(t, task.Approval.PostApprovalRequired)
}

func TestTaskManager_ColdLoadFromStore(t *testing.T) {
	store := storage.NewMockStore()
	memory, err := service.NewMemoryService(store, logger{})
	assert.NoError(t, err)

	first := service.NewTaskManager(memory, logger{})
	task, err := first.CreateTask(service.CreateTaskRequest{
		Name:     "survivor",
		Source:   models.UserManualSource,
		Workflow: navigateWorkflow(),
	})
	assert.NoError(t, err)

	// A fresh manager has an empty index and must fall back to the store.
	second := service.NewTaskManager(memory, logger{})
	got, ok := second.GetTask(task.ID)
	assert.True(t, ok)
	assert.Equal(t, "survivor", got.Name)

	assert.NoError(t, second.Approve(task.ID, models.PreApprovalGate))
	got, _ = second.GetTask(task.ID)
	assert.Equal(t, models.ApprovedTaskStatus, got.Status)
}

func TestTaskManager_ListAllSeesStoredTasks(t *testing.T) {
	store := storage.NewMockStore()
	firstMemory, err := service.NewMemoryService(store, logger{})
	assert.NoError(t, err)
	first := service.NewTaskManager(firstMemory, logger{})

	created, err := first.CreateTask(service.CreateTaskRequest{
		Name:     "durable",
		Source:   models.UserManualSource,
		Workflow: navigateWorkflow(),
	})
	assert.NoError(t, err)

	// A manager in a fresh process starts with an empty index; listing must
	// fall back to the durable records.
	secondMemory, err := service.NewMemoryService(store, logger{})
	assert.NoError(t, err)
	second := service.NewTaskManager(secondMemory, logger{})

	all := second.ListAll()
	assert.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)

	pending := second.ListPending()
	assert.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].ID)
}

func TestTaskManager_ConcurrentStartSingleWinner(t *testing.T) {
	mgr := newManager(t)
	task, _ := mgr.CreateTask(service.CreateTaskRequest{
		Name:     "contested",
		Source:   models.UserManualSource,
		Workflow: navigateWorkflow(),
		Approval: &models.ApprovalFlags{AutoApproved: true},
	})

	const starters = 16
	var wg sync.WaitGroup
	errs := make([]error, starters)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mgr.Start(task.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	got, _ := mgr.GetTask(task.ID)
	assert.Equal(t, models.InProgressTaskStatus, got.Status)
}

func TestTaskManager_ListPending(t *testing.T) {
	mgr := newManager(t)
	pending, _ := mgr.CreateTask(service.CreateTaskRequest{
		Name: "waiting", Source: models.UserManualSource, Workflow: navigateWorkflow(),
	})
	approved, _ := mgr.CreateTask(service.CreateTaskRequest{
		Name: "ready", Source: models.UserManualSource, Workflow: navigateWorkflow(),
	})
	assert.NoError(t, mgr.Approve(approved.ID, models.PreApprovalGate))

	running, _ := mgr.CreateTask(service.CreateTaskRequest{
		Name: "busy", Source: models.UserManualSource, Workflow: navigateWorkflow(),
		Approval: &models.ApprovalFlags{AutoApproved: true},
	})
	assert.NoError(t, mgr.Start(running.ID))

	ids := map[string]bool{}
	for _, task := range mgr.ListPending() {
		ids[task.ID] = true
	}
	assert.True(t, ids[pending.ID])
	assert.True(t, ids[approved.ID])
	assert.False(t, ids[running.ID])
	assert.Len(t, mgr.ListAll(), 3)
}
