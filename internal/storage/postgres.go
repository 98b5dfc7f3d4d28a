package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/storage"
)

// systemMemoryKey is the fixed id of the single system-memory row.
const systemMemoryKey = "system"

// PostgresStore keeps one JSON document row per entity and overwrites the
// full record on every save, matching the storage contract.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveTask(t models.Task) error {
	return s.upsert("tasks", t.ID, t)
}

func (s *PostgresStore) GetTask(id string) (models.Task, error) {
	var t models.Task
	if err := s.get("tasks", id, &t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) ListTasks() ([]models.Task, error) {
	var records [][]byte
	if err := s.db.Select(&records, `SELECT record FROM tasks`); err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	tasks := make([]models.Task, 0, len(records))
	for _, record := range records {
		var t models.Task
		if err := json.Unmarshal(record, &t); err != nil {
			return nil, errors.Wrap(err, "decode task record")
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *PostgresStore) SaveProject(p models.ProjectMemory) error {
	return s.upsert("projects", p.ID, p)
}

func (s *PostgresStore) GetProject(id string) (models.ProjectMemory, error) {
	var p models.ProjectMemory
	if err := s.get("projects", id, &p); err != nil {
		return models.ProjectMemory{}, err
	}
	return p, nil
}

func (s *PostgresStore) SaveSystemMemory(m models.SystemMemory) error {
	return s.upsert("system_memory", systemMemoryKey, m)
}

func (s *PostgresStore) GetSystemMemory() (models.SystemMemory, error) {
	var m models.SystemMemory
	if err := s.get("system_memory", systemMemoryKey, &m); err != nil {
		return models.SystemMemory{}, err
	}
	return m, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) upsert(table, id string, v any) error {
	record, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s %s", table, id)
	}
	// Identifier comes from a fixed call-site set, never user input.
	_, err = s.db.Exec(
		`INSERT INTO `+table+` (id, record, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = CURRENT_TIMESTAMP`,
		id, record)
	if err != nil {
		return errors.Wrapf(err, "save %s %s", table, id)
	}
	return nil
}

func (s *PostgresStore) get(table, id string, v any) error {
	var record []byte
	err := s.db.Get(&record, `SELECT record FROM `+table+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "get %s %s", table, id)
	}
	if err := json.Unmarshal(record, v); err != nil {
		return errors.Wrapf(err, "decode %s %s", table, id)
	}
	return nil
}
