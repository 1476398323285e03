package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

// SetupTestDB opens a file-backed SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	repo, err := Open(sqlite.Open(filepath.Join(t.TempDir(), "workers.db")))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ptr(s string) *string { return &s }

func TestCreateWorker(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	created, err := repo.CreateWorker(ctx, types.Worker{ID: 42, Name: "venkatesh", Email: "venkatesh@gmail.com", Role: "Manager"})
	require.NoError(t, err, "CreateWorker should not return an error")
	assert.NotEqual(t, int64(42), created.ID, "client supplied ids are ignored")

	retrieved, err := repo.GetWorkerByID(ctx, created.ID)
	require.NoError(t, err, "GetWorkerByID should retrieve the created worker")
	assert.Equal(t, created, retrieved)
}

func TestCreateWorkerDuplicateEmail(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	_, err := repo.CreateWorker(ctx, types.Worker{Name: "a", Email: "dup@example.com", Role: "dev"})
	require.NoError(t, err)

	_, err = repo.CreateWorker(ctx, types.Worker{Name: "b", Email: "dup@example.com", Role: "dev"})
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func TestGetWorkerNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetWorkerByID(context.Background(), 88)
	assert.ErrorIs(t, err, storage.ErrNotFound, "GetWorkerByID should return ErrNotFound for non-existent worker")
}

func TestListWorkers(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	var seeded []types.Worker
	for _, w := range []types.Worker{
		{Name: "vimal raj", Email: "vimalraj@gmail.com", Role: "devops"},
		{Name: "Prasanna", Email: "prasanna@gmail.com", Role: "Developer"},
	} {
		created, err := repo.CreateWorker(ctx, w)
		require.NoError(t, err)
		seeded = append(seeded, created)
	}

	all, err := repo.ListWorkers(ctx, types.WorkerFilter{})
	require.NoError(t, err)
	assert.Equal(t, seeded, all)

	found, err := repo.ListWorkers(ctx, types.WorkerFilter{Search: "prAS"})
	require.NoError(t, err)
	assert.Equal(t, seeded[1:], found)

	byRole, err := repo.ListWorkers(ctx, types.WorkerFilter{Role: "devops"})
	require.NoError(t, err)
	assert.Equal(t, seeded[:1], byRole)

	none, err := repo.ListWorkers(ctx, types.WorkerFilter{Search: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateWorker(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	w, err := repo.CreateWorker(ctx, types.Worker{Name: "Old Name", Email: "old@example.com", Role: "dev"})
	require.NoError(t, err)
	_, err = repo.CreateWorker(ctx, types.Worker{Name: "Taken", Email: "taken@example.com", Role: "dev"})
	require.NoError(t, err)

	updated, err := repo.UpdateWorker(ctx, w.ID, types.WorkerUpdate{Name: ptr("New Name")})
	require.NoError(t, err, "UpdateWorker should not return an error")
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "old@example.com", updated.Email, "unsupplied fields keep their value")

	_, err = repo.UpdateWorker(ctx, w.ID, types.WorkerUpdate{Email: ptr("taken@example.com")})
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	_, err = repo.UpdateWorker(ctx, 999, types.WorkerUpdate{Name: ptr("Non-existent")})
	assert.ErrorIs(t, err, storage.ErrNotFound, "UpdateWorker should return ErrNotFound for missing worker")

	_, err = repo.UpdateWorker(ctx, 999, types.WorkerUpdate{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteWorker(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	w, err := repo.CreateWorker(ctx, types.Worker{Name: "To Be Deleted", Email: "del@example.com", Role: "dev"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteWorkerByID(ctx, w.ID), "DeleteWorkerByID should not return an error")

	_, err = repo.GetWorkerByID(ctx, w.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "Deleted worker should not be found")

	assert.ErrorIs(t, repo.DeleteWorkerByID(ctx, w.ID), storage.ErrNotFound)
}

func TestEmailExists(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()

	exists, err := repo.EmailExists(ctx, "a@example.com", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	w, err := repo.CreateWorker(ctx, types.Worker{Name: "a", Email: "a@example.com", Role: "dev"})
	require.NoError(t, err)

	exists, err = repo.EmailExists(ctx, "a@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "a@example.com", w.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewPostgresGivesUpAfterTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewPostgres(ctx, PostgresConfig{
		DSN:            "host=127.0.0.1 port=1 user=none dbname=none sslmode=disable connect_timeout=1",
		ConnectTimeout: 300 * time.Millisecond,
	}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
