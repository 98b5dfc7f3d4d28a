package service_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/service"
)

// stubActuator is a scriptable in-memory Actuator.
type stubActuator struct {
	extractData any
	extractErr  error
	navigateErr error
	clickErr    error
	snapshot    string

	// onExtract runs before each Extract call, letting tests mutate task
	// state mid-run.
	onExtract func()

	navigations []string
	clicked     []string
	typed       map[string]string
	submitted   []string
}

func (s *stubActuator) Navigate(_ context.Context, url string) error {
	if s.navigateErr != nil {
		return s.navigateErr
	}
	s.navigations = append(s.navigations, url)
	return nil
}

func (s *stubActuator) Click(_ context.Context, target string) error {
	if s.clickErr != nil {
		return s.clickErr
	}
	s.clicked = append(s.clicked, target)
	return nil
}

func (s *stubActuator) TypeText(_ context.Context, target, text string) error {
	if s.typed == nil {
		s.typed = make(map[string]string)
	}
	s.typed[target] = text
	return nil
}

func (s *stubActuator) Extract(_ context.Context, target string, _ any) (any, error) {
	if s.onExtract != nil {
		s.onExtract()
	}
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return s.extractData, nil
}

func (s *stubActuator) Submit(_ context.Context, target string) error {
	s.submitted = append(s.submitted, target)
	return nil
}

func (s *stubActuator) Snapshot(_ context.Context) (string, error) {
	if s.snapshot == "" {
		return "<html><body>stub</body></html>", nil
	}
	return s.snapshot, nil
}

func newTaskForExecution(t *testing.T, mgr *service.TaskManager, workflow models.Workflow) models.Task {
	task, err := mgr.CreateTask(service.CreateTaskRequest{
		Name:     "exec target",
		Source:   models.UserManualSource,
		Workflow: workflow,
		Approval: &models.ApprovalFlags{AutoApproved: true},
	})
	assert.NoError(t, err)
	assert.NoError(t, mgr.Start(task.ID))
	return task
}

func TestStepExecutor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessLogsSingleAttempt", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{extractData: map[string]any{"total": 42.0}}

		step := models.Step{
			ID:             "s1",
			Action:         models.ExtractAction,
			Target:         "#result",
			ExpectedSchema: map[string]any{"total": nil},
			Verification:   []models.VerificationType{models.SchemaVerification},
			Retry:          models.RetryConfig{MaxRetries: 2, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		result, err := exec.Execute(ctx, task.ID, step, act)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"total": 42.0}, result)

		got, _ := mgr.GetTask(task.ID)
		assert.Len(t, got.ExecutionLog, 1)
		entry := got.ExecutionLog[0]
		assert.Equal(t, "s1", entry.StepID)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Len(t, entry.DomSnapshotHash, 64)
		assert.NotNil(t, entry.VerificationResult)
		assert.True(t, entry.VerificationResult.Passed)
		assert.NotNil(t, got.CurrentStep)
		assert.Equal(t, "s1", *got.CurrentStep)
	})

	t.Run("VerificationFailureExhaustsRetries", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{extractData: map[string]any{}}

		step := models.Step{
			ID:           "s1",
			Action:       models.ExtractAction,
			Target:       "#result",
			Verification: []models.VerificationType{models.SanityCheckVerification},
			Retry:        models.RetryConfig{MaxRetries: 2, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		_, err := exec.Execute(ctx, task.ID, step, act)
		var verifyErr *service.VerificationFailedError
		assert.ErrorAs(t, err, &verifyErr)
		assert.Equal(t, "s1", verifyErr.StepID)

		// Initial attempt plus two retries, each with its own log entry.
		got, _ := mgr.GetTask(task.ID)
		assert.Len(t, got.ExecutionLog, 3)
		for i, entry := range got.ExecutionLog {
			assert.Equal(t, i, entry.RetryCount)
			assert.NotNil(t, entry.VerificationResult)
			assert.False(t, entry.VerificationResult.Passed)
		}
	})

	t.Run("ActuatorErrorRetriesThenSurfaces", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{navigateErr: errors.New("net unreachable")}

		step := models.Step{
			ID:         "s1",
			Action:     models.NavigateAction,
			Parameters: map[string]any{"url": "https://example.com"},
			Retry:      models.RetryConfig{MaxRetries: 1, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		_, err := exec.Execute(ctx, task.ID, step, act)
		var actErr *service.ActuatorError
		assert.ErrorAs(t, err, &actErr)
		assert.Equal(t, "navigate", actErr.Op)

		// Failed attempts still land in the log, without fingerprint or
		// verification.
		got, _ := mgr.GetTask(task.ID)
		assert.Len(t, got.ExecutionLog, 2)
		for _, entry := range got.ExecutionLog {
			assert.Empty(t, entry.DomSnapshotHash)
			assert.Nil(t, entry.VerificationResult)
		}
	})

	t.Run("MissingParameter", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})

		step := models.Step{
			ID:     "s1",
			Action: models.NavigateAction,
			Retry:  models.RetryConfig{MaxRetries: 0, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		_, err := exec.Execute(ctx, task.ID, step, &stubActuator{})
		var missingErr *service.MissingParameterError
		assert.ErrorAs(t, err, &missingErr)
		assert.Equal(t, "url", missingErr.Parameter)
	})

	t.Run("TypeStep", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{}

		step := models.Step{
			ID:         "s1",
			Action:     models.TypeAction,
			Target:     "#search",
			Parameters: map[string]any{"text": "quarterly report"},
			Retry:      models.RetryConfig{MaxRetries: 0, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		result, err := exec.Execute(ctx, task.ID, step, act)
		assert.NoError(t, err)
		assert.Equal(t, "quarterly report", act.typed["#search"])
		out, ok := result.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, "typed", out["status"])
	})

	t.Run("WaitStep", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})

		step := models.Step{
			ID:         "s1",
			Action:     models.WaitAction,
			Parameters: map[string]any{"duration_ms": 5.0},
			Retry:      models.RetryConfig{MaxRetries: 0, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		result, err := exec.Execute(ctx, task.ID, step, &stubActuator{})
		assert.NoError(t, err)
		out, ok := result.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, int64(5), out["duration_ms"])
	})

	t.Run("VerifyStepReportsChecks", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{extractData: map[string]any{"status": "shipped"}}

		step := models.Step{
			ID:             "s1",
			Action:         models.VerifyAction,
			Target:         "#order",
			ExpectedSchema: map[string]any{"status": nil},
			Verification:   []models.VerificationType{models.SchemaVerification},
			Retry:          models.RetryConfig{MaxRetries: 0, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		result, err := exec.Execute(ctx, task.ID, step, act)
		assert.NoError(t, err)
		out, ok := result.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, true, out["verification"])
	})

	t.Run("UnknownAction", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})

		step := models.Step{
			ID:     "s1",
			Action: "teleport",
			Retry:  models.RetryConfig{MaxRetries: 0, RetryDelayMs: 1},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		_, err := exec.Execute(ctx, task.ID, step, &stubActuator{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown action")
	})

	t.Run("CancelledContextStopsRetries", func(t *testing.T) {
		mgr := newManager(t)
		exec := service.NewStepExecutor(mgr, logger{})
		act := &stubActuator{navigateErr: errors.New("down")}

		step := models.Step{
			ID:         "s1",
			Action:     models.NavigateAction,
			Parameters: map[string]any{"url": "https://example.com"},
			Retry:      models.RetryConfig{MaxRetries: 5, RetryDelayMs: 60_000},
		}
		task := newTaskForExecution(t, mgr, models.Workflow{ID: "wf", Steps: []models.Step{step}})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := exec.Execute(cancelled, task.ID, step, act)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
