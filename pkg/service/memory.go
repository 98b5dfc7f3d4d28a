package service

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

// Logger defines the logging interface the services depend on.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// MemoryService fronts the durable Store with volatile caches. Task and
// project reads check the cache first, fall back to the durable record and
// repopulate on a hit. System memory is held under a single read-write lock;
// updates are read-modify-persist-write under the exclusive hold so
// concurrent mutators cannot lose updates.
type MemoryService struct {
	store  storage.Store
	logger Logger

	taskMu    sync.RWMutex
	taskCache map[string]models.Task

	projectMu    sync.RWMutex
	projectCache map[string]models.ProjectMemory

	systemMu sync.RWMutex
	system   models.SystemMemory
}

// NewMemoryService loads the system catalog from the store, initializing a
// fresh one when no record exists yet.
func NewMemoryService(store storage.Store, logger Logger) (*MemoryService, error) {
	system, err := store.GetSystemMemory()
	if errors.Is(err, storage.ErrNotFound) {
		system = models.NewSystemMemory()
		system.LastUpdated = time.Now().UTC()
	} else if err != nil {
		return nil, &StorageError{Op: "load system memory", Err: err}
	}
	return &MemoryService{
		store:        store,
		logger:       logger,
		taskCache:    make(map[string]models.Task),
		projectCache: make(map[string]models.ProjectMemory),
		system:       system,
	}, nil
}

// StoreTask caches and durably persists the task record.
func (m *MemoryService) StoreTask(t models.Task) error {
	m.taskMu.Lock()
	m.taskCache[t.ID] = t
	m.taskMu.Unlock()

	if err := m.store.SaveTask(t); err != nil {
		return &StorageError{Op: "save task " + t.ID, Err: err}
	}
	return nil
}

// GetTask returns a task from the cache, falling back to the durable record.
func (m *MemoryService) GetTask(id string) (models.Task, bool) {
	m.taskMu.RLock()
	t, ok := m.taskCache[id]
	m.taskMu.RUnlock()
	if ok {
		return t, true
	}

	t, err := m.store.GetTask(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Errorf("Failed to read task %s: %v", id, err)
		}
		return models.Task{}, false
	}
	m.taskMu.Lock()
	m.taskCache[id] = t
	m.taskMu.Unlock()
	return t, true
}

// ListTasks enumerates the durable task records, preferring the cached copy
// for ids the cache holds.
func (m *MemoryService) ListTasks() ([]models.Task, error) {
	stored, err := m.store.ListTasks()
	if err != nil {
		return nil, &StorageError{Op: "list tasks", Err: err}
	}

	m.taskMu.RLock()
	defer m.taskMu.RUnlock()
	out := make([]models.Task, 0, len(stored))
	for _, t := range stored {
		if cached, ok := m.taskCache[t.ID]; ok {
			t = cached
		}
		out = append(out, t)
	}
	return out, nil
}

// StoreProject caches and durably persists the project record. The write lock
// is held across the save so project writes cannot reorder against
// RecordWorkflowHistory.
func (m *MemoryService) StoreProject(p models.ProjectMemory) error {
	m.projectMu.Lock()
	defer m.projectMu.Unlock()
	return m.storeProjectLocked(p)
}

// storeProjectLocked requires projectMu to be held.
func (m *MemoryService) storeProjectLocked(p models.ProjectMemory) error {
	m.projectCache[p.ID] = p
	if err := m.store.SaveProject(p); err != nil {
		return &StorageError{Op: "save project " + p.ID, Err: err}
	}
	return nil
}

// GetProject returns a project from the cache, falling back to the store.
func (m *MemoryService) GetProject(id string) (models.ProjectMemory, bool) {
	m.projectMu.RLock()
	p, ok := m.projectCache[id]
	m.projectMu.RUnlock()
	if ok {
		return p, true
	}

	p, err := m.store.GetProject(id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Errorf("Failed to read project %s: %v", id, err)
		}
		return models.ProjectMemory{}, false
	}
	m.projectMu.Lock()
	m.projectCache[id] = p
	m.projectMu.Unlock()
	return p, true
}

// RecordWorkflowHistory appends a history entry to the project, creating a
// default project record if none exists yet. The whole read-append-persist
// sequence runs under the exclusive hold so concurrent completers cannot lose
// each other's entries.
func (m *MemoryService) RecordWorkflowHistory(projectID, taskID string, success bool, durationMs int64) error {
	now := time.Now().UTC()
	entry := models.WorkflowHistoryEntry{
		TaskID:     taskID,
		ExecutedAt: now,
		Success:    success,
		DurationMs: durationMs,
	}

	m.projectMu.Lock()
	defer m.projectMu.Unlock()

	project, ok := m.projectCache[projectID]
	if !ok {
		p, err := m.store.GetProject(projectID)
		switch {
		case err == nil:
			project, ok = p, true
		case !errors.Is(err, storage.ErrNotFound):
			return &StorageError{Op: "load project " + projectID, Err: err}
		}
	}
	if !ok {
		project = models.ProjectMemory{
			ID:                    projectID,
			Name:                  "Default Project",
			AutomationPreferences: models.DefaultAutomationPreferences(),
			CreatedAt:             now,
		}
	}
	project.WorkflowHistory = append(project.WorkflowHistory, entry)
	project.UpdatedAt = now
	return m.storeProjectLocked(project)
}

// SystemMemory returns a snapshot of the system catalog.
func (m *MemoryService) SystemMemory() models.SystemMemory {
	m.systemMu.RLock()
	defer m.systemMu.RUnlock()
	return m.system
}

// UpdateSystemMemory applies the mutator and persists the catalog while
// holding the write lock. LastUpdated is stamped in the same critical section.
func (m *MemoryService) UpdateSystemMemory(fn func(*models.SystemMemory)) error {
	m.systemMu.Lock()
	defer m.systemMu.Unlock()

	fn(&m.system)
	m.system.LastUpdated = time.Now().UTC()

	if err := m.store.SaveSystemMemory(m.system); err != nil {
		return &StorageError{Op: "save system memory", Err: err}
	}
	return nil
}

// AppSchema looks up the catalog entry for an application domain.
func (m *MemoryService) AppSchema(domain string) (models.AppSchema, bool) {
	m.systemMu.RLock()
	defer m.systemMu.RUnlock()
	schema, ok := m.system.AppSchemas[domain]
	return schema, ok
}

// UpdateAppSchema inserts or replaces the catalog entry for a domain.
func (m *MemoryService) UpdateAppSchema(domain string, schema models.AppSchema) error {
	return m.UpdateSystemMemory(func(sm *models.SystemMemory) {
		if sm.AppSchemas == nil {
			sm.AppSchemas = make(map[string]models.AppSchema)
		}
		sm.AppSchemas[domain] = schema
	})
}
