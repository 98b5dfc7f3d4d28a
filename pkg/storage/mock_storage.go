package storage

import (
	"sync"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// mockStore implements Store with in-memory maps
type mockStore struct {
	mu       sync.RWMutex
	tasks    map[string]models.Task
	projects map[string]models.ProjectMemory
	system   *models.SystemMemory
}

func NewMockStore() Store {
	return &mockStore{
		tasks:    make(map[string]models.Task),
		projects: make(map[string]models.ProjectMemory),
	}
}

func (m *mockStore) SaveTask(t models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *mockStore) GetTask(id string) (models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	return t, nil
}

func (m *mockStore) ListTasks() ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (m *mockStore) SaveProject(p models.ProjectMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *mockStore) GetProject(id string) (models.ProjectMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return models.ProjectMemory{}, ErrNotFound
	}
	return p, nil
}

func (m *mockStore) SaveSystemMemory(sm models.SystemMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.system = &sm
	return nil
}

func (m *mockStore) GetSystemMemory() (models.SystemMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.system == nil {
		return models.SystemMemory{}, ErrNotFound
	}
	return *m.system, nil
}

func (m *mockStore) Close() error {
	return nil
}
