package storage

import (
	"github.com/pkg/errors"

	"github.com/shaonsikder1952/Sentinel/pkg/models"
)

// ErrNotFound is returned when no durable record exists for the given id.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations for Sentinel. Writes are
// full-record overwrites keyed by id; one record per entity. Callers
// (the memory service) layer caching and read-modify-write discipline
// on top.
type Store interface {
	// Task records
	SaveTask(t models.Task) error
	GetTask(id string) (models.Task, error)
	ListTasks() ([]models.Task, error)

	// Project records
	SaveProject(p models.ProjectMemory) error
	GetProject(id string) (models.ProjectMemory, error)

	// System-wide catalog (single record)
	SaveSystemMemory(m models.SystemMemory) error
	GetSystemMemory() (models.SystemMemory, error)

	Close() error
}
