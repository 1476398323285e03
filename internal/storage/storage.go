// Package storage defines the Storage interface, the contract any database
// backend must satisfy to serve worker records.
//
// Handlers depend only on this interface, so switching backends means
// implementing it for the new database and changing one line in main.go,
// and handler tests can run against any implementation.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/aanand-mishra/workforce-api/internal/types"
)

var (
	// ErrNotFound is returned when no worker has the requested id.
	ErrNotFound = errors.New("worker not found")
	// ErrDuplicateEmail is returned when a write would break email uniqueness.
	ErrDuplicateEmail = errors.New("worker email already exists")
)

// Storage is the worker record store.
type Storage interface {
	// ListWorkers returns the workers matching filter ordered by id.
	// It returns an empty slice (not nil) when nothing matches.
	ListWorkers(ctx context.Context, filter types.WorkerFilter) ([]types.Worker, error)

	// GetWorkerByID returns ErrNotFound if the id is unknown.
	GetWorkerByID(ctx context.Context, id int64) (types.Worker, error)

	// CreateWorker assigns a new id, persists the worker and returns it.
	CreateWorker(ctx context.Context, worker types.Worker) (types.Worker, error)

	// UpdateWorker writes the non-nil fields of update and returns the
	// stored record.
	UpdateWorker(ctx context.Context, id int64, update types.WorkerUpdate) (types.Worker, error)

	// DeleteWorkerByID removes a worker permanently.
	DeleteWorkerByID(ctx context.Context, id int64) error

	// EmailExists reports whether a worker other than excludeID uses email.
	// Pass 0 to check against every worker.
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// LikePattern turns a search term into a LIKE pattern that matches it as a
// lowercase substring. Wildcards in term are escaped with a backslash.
func LikePattern(term string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(term) {
		switch r {
		case '\\', '%', '_':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return "%" + b.String() + "%"
}
