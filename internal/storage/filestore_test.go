package storage_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	internal_storage "github.com/shaonsikder1952/Sentinel/internal/storage"
	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

func TestFileStore(t *testing.T) {
	newStore := func(t *testing.T) *internal_storage.FileStore {
		store, err := internal_storage.NewFileStore(t.TempDir())
		assert.NoError(t, err)
		return store
	}

	t.Run("TaskRoundtrip", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		task := models.Task{
			ID:     "t1",
			Name:   "filed",
			Status: models.PendingTaskStatus,
			Workflow: models.Workflow{
				ID:    "wf",
				Steps: []models.Step{{ID: "s1", Action: models.NavigateAction}},
			},
			ExecutionLog: []models.ExecutionLogEntry{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		assert.NoError(t, store.SaveTask(task))

		got, err := store.GetTask("t1")
		assert.NoError(t, err)
		assert.Equal(t, "filed", got.Name)
		assert.Len(t, got.Workflow.Steps, 1)
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("OverwriteReplacesRecord", func(t *testing.T) {
		store := newStore(t)
		task := models.Task{ID: "t1", Name: "v1", Status: models.PendingTaskStatus}
		assert.NoError(t, store.SaveTask(task))
		task.Name = "v2"
		task.Status = models.ApprovedTaskStatus
		assert.NoError(t, store.SaveTask(task))

		got, err := store.GetTask("t1")
		assert.NoError(t, err)
		assert.Equal(t, "v2", got.Name)
		assert.Equal(t, models.ApprovedTaskStatus, got.Status)
	})

	t.Run("ListTasks", func(t *testing.T) {
		store := newStore(t)
		tasks, err := store.ListTasks()
		assert.NoError(t, err)
		assert.Empty(t, tasks)

		assert.NoError(t, store.SaveTask(models.Task{ID: "t1", Name: "first", Status: models.PendingTaskStatus}))
		assert.NoError(t, store.SaveTask(models.Task{ID: "t2", Name: "second", Status: models.ApprovedTaskStatus}))

		tasks, err = store.ListTasks()
		assert.NoError(t, err)
		assert.Len(t, tasks, 2)
		names := map[string]bool{}
		for _, task := range tasks {
			names[task.Name] = true
		}
		assert.True(t, names["first"])
		assert.True(t, names["second"])
	})

	t.Run("MissingRecordsReportNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetTask("nope")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		_, err = store.GetProject("nope")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		_, err = store.GetSystemMemory()
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("ProjectRoundtrip", func(t *testing.T) {
		store := newStore(t)
		project := models.ProjectMemory{
			ID:                    "p1",
			Name:                  "Invoices",
			AutomationPreferences: models.DefaultAutomationPreferences(),
			WorkflowHistory: []models.WorkflowHistoryEntry{
				{TaskID: "t1", Success: true, DurationMs: 900},
			},
		}
		assert.NoError(t, store.SaveProject(project))

		got, err := store.GetProject("p1")
		assert.NoError(t, err)
		assert.Equal(t, "Invoices", got.Name)
		assert.Len(t, got.WorkflowHistory, 1)
	})

	t.Run("SystemMemoryRoundtrip", func(t *testing.T) {
		store := newStore(t)
		system := models.NewSystemMemory()
		system.AppSchemas["shop.example.com"] = models.AppSchema{
			AppName: "Example Shop",
			Domain:  "shop.example.com",
		}
		assert.NoError(t, store.SaveSystemMemory(system))

		got, err := store.GetSystemMemory()
		assert.NoError(t, err)
		assert.Equal(t, "1.0.0", got.Version)
		assert.Contains(t, got.AppSchemas, "shop.example.com")
	})
}
