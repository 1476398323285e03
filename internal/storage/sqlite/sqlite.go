// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk: no network, no
// separate server process, nothing to install beyond the driver.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/types"

	"github.com/mattn/go-sqlite3"
)

// busyTimeoutMS makes writers from other processes wait for the file lock.
const busyTimeoutMS = 5000

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is a connection pool and is safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path, creates the workers table if it
// does not already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMS)
	}

	// sql.Open only validates the driver name and DSN; the first real
	// connection happens on the first query.
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows one writer at a time; a single connection turns
	// concurrent writes into a queue instead of SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// AUTOINCREMENT keeps SQLite from handing out the id of a deleted row
	// again. The UNIQUE constraint on email is what serializes two racing
	// creates with the same address: exactly one insert wins.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS workers (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  VARCHAR(255) NOT NULL,
			email VARCHAR(254) NOT NULL UNIQUE,
			role  VARCHAR(100) NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateWorker inserts a new row into the workers table and returns the
// stored record including its generated id.
//
// Values travel as ? placeholders, never concatenated into the SQL text.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateWorker(ctx context.Context, worker types.Worker) (types.Worker, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO workers (name, email, role) VALUES (?, ?, ?)",
	)
	if err != nil {
		return types.Worker{}, fmt.Errorf("CreateWorker: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, worker.Name, worker.Email, worker.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Worker{}, storage.ErrDuplicateEmail
		}
		return types.Worker{}, fmt.Errorf("CreateWorker: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Worker{}, fmt.Errorf("CreateWorker: last insert id: %w", err)
	}

	worker.ID = lastID
	return worker, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetWorkerByID fetches exactly one worker row matched by primary key.
//
// QueryRow never returns nil for a missing row; sql.ErrNoRows surfaces only
// when Scan is called.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetWorkerByID(ctx context.Context, id int64) (types.Worker, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, email, role FROM workers WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Worker{}, fmt.Errorf("GetWorkerByID: prepare: %w", err)
	}
	defer stmt.Close()

	var worker types.Worker
	err = stmt.QueryRowContext(ctx, id).Scan(
		&worker.ID,
		&worker.Name,
		&worker.Email,
		&worker.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Worker{}, storage.ErrNotFound
		}
		return types.Worker{}, fmt.Errorf("GetWorkerByID: scan: %w", err)
	}

	return worker, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ListWorkers returns the worker rows matching filter, ordered by id.
//
// The WHERE clause is assembled from fixed fragments only; user input is
// always bound through placeholders.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) ListWorkers(ctx context.Context, filter types.WorkerFilter) ([]types.Worker, error) {
	query := "SELECT id, name, email, role FROM workers"

	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		conds = append(conds, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, storage.LikePattern(filter.Search))
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListWorkers: query: %w", err)
	}
	defer rows.Close()

	// An empty (non-nil) slice encodes as [] rather than null.
	workers := make([]types.Worker, 0)

	for rows.Next() {
		var worker types.Worker
		if err := rows.Scan(
			&worker.ID,
			&worker.Name,
			&worker.Email,
			&worker.Role,
		); err != nil {
			return nil, fmt.Errorf("ListWorkers: scan row: %w", err)
		}
		workers = append(workers, worker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListWorkers: rows iteration: %w", err)
	}

	return workers, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateWorker writes the supplied fields of update and returns the record
// as stored. Fields left nil keep their current value.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdateWorker(ctx context.Context, id int64, update types.WorkerUpdate) (types.Worker, error) {
	if update.Empty() {
		return s.GetWorkerByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *update.Role)
	}
	args = append(args, id)

	result, err := s.Db.ExecContext(ctx,
		"UPDATE workers SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Worker{}, storage.ErrDuplicateEmail
		}
		return types.Worker{}, fmt.Errorf("UpdateWorker: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Worker{}, fmt.Errorf("UpdateWorker: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Worker{}, storage.ErrNotFound
	}

	// Re-fetch so the caller sees exactly what is stored.
	return s.GetWorkerByID(ctx, id)
}

// DeleteWorkerByID removes a worker row by primary key.
func (s *SQLite) DeleteWorkerByID(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM workers WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteWorkerByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteWorkerByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteWorkerByID: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// EmailExists reports whether a worker other than excludeID uses email.
func (s *SQLite) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := s.Db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM workers WHERE email = ? AND id <> ?)",
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("EmailExists: scan: %w", err)
	}
	return exists, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
