package service

import (
	"sync"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// taskMap is the active-task index: a map with a per-entry mutex so that
// mutations on the same task id serialize against each other without a
// global write lock. Reads hand out copies and are eventually consistent.
type taskMap struct {
	mu      sync.RWMutex
	entries map[string]*taskEntry
}

type taskEntry struct {
	mu   sync.Mutex
	task models.Task
}

func newTaskMap() *taskMap {
	return &taskMap{entries: make(map[string]*taskEntry)}
}

func (m *taskMap) insert(t models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[t.ID] = &taskEntry{task: t}
}

// insertIfAbsent adds the task only when no entry exists, so a durable
// snapshot never clobbers a live entry.
func (m *taskMap) insertIfAbsent(t models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[t.ID]; !ok {
		m.entries[t.ID] = &taskEntry{task: t}
	}
}

func (m *taskMap) entry(id string) (*taskEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *taskMap) get(id string) (models.Task, bool) {
	e, ok := m.entry(id)
	if !ok {
		return models.Task{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task, true
}

// mutate runs fn inside the entry's critical section. The updated copy is
// returned so the caller can persist it without re-reading.
func (m *taskMap) mutate(id string, fn func(*models.Task) error) (models.Task, error) {
	e, ok := m.entry(id)
	if !ok {
		return models.Task{}, &NotFoundError{TaskID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(&e.task); err != nil {
		return models.Task{}, err
	}
	return e.task, nil
}

func (m *taskMap) snapshot() []models.Task {
	m.mu.RLock()
	entries := make([]*taskEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	tasks := make([]models.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		tasks = append(tasks, e.task)
		e.mu.Unlock()
	}
	return tasks
}
