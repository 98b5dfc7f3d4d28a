package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

const systemMemoryFile = "system_memory.json"

// FileStore persists each entity as one pretty-printed JSON file under the
// root directory: tasks/<id>.json, projects/<id>.json and a single
// system_memory.json. Writes are full-record overwrites.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{root, filepath.Join(root, "tasks"), filepath.Join(root, "projects")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create storage dir %s", dir)
		}
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) SaveTask(t models.Task) error {
	return s.writeRecord(filepath.Join("tasks", t.ID+".json"), t)
}

func (s *FileStore) GetTask(id string) (models.Task, error) {
	var t models.Task
	if err := s.readRecord(filepath.Join("tasks", id+".json"), &t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListTasks scans the tasks directory and decodes every record.
func (s *FileStore) ListTasks() ([]models.Task, error) {
	dir := filepath.Join(s.root, "tasks")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}
	tasks := make([]models.Task, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var t models.Task
		if err := s.readRecord(filepath.Join("tasks", entry.Name()), &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *FileStore) SaveProject(p models.ProjectMemory) error {
	return s.writeRecord(filepath.Join("projects", p.ID+".json"), p)
}

func (s *FileStore) GetProject(id string) (models.ProjectMemory, error) {
	var p models.ProjectMemory
	if err := s.readRecord(filepath.Join("projects", id+".json"), &p); err != nil {
		return models.ProjectMemory{}, err
	}
	return p, nil
}

func (s *FileStore) SaveSystemMemory(m models.SystemMemory) error {
	return s.writeRecord(systemMemoryFile, m)
}

func (s *FileStore) GetSystemMemory() (models.SystemMemory, error) {
	var m models.SystemMemory
	if err := s.readRecord(systemMemoryFile, &m); err != nil {
		return models.SystemMemory{}, err
	}
	return m, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) writeRecord(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", rel)
	}
	path := filepath.Join(s.root, rel)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", rel)
	}
	return nil
}

func (s *FileStore) readRecord(rel string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if os.IsNotExist(err) {
		return storage.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", rel)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decode %s", rel)
	}
	return nil
}
