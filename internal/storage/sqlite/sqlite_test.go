package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLite {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "workers.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { store.Close() })

	return store
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, store *SQLite, workers ...types.Worker) []types.Worker {
	t.Helper()

	out := make([]types.Worker, 0, len(workers))
	for _, w := range workers {
		created, err := store.CreateWorker(context.Background(), w)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestCreateAndGetWorker(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	created, err := store.CreateWorker(ctx, types.Worker{Name: "vimal raj", Email: "vimalraj@gmail.com", Role: "devops"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := store.GetWorkerByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateWorkerDuplicateEmail(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seed(t, store, types.Worker{Name: "a", Email: "same@example.com", Role: "dev"})

	_, err := store.CreateWorker(ctx, types.Worker{Name: "b", Email: "same@example.com", Role: "ops"})
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dupes   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateWorker(ctx, types.Worker{Name: "racer", Email: "race@example.com", Role: "dev"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, storage.ErrDuplicateEmail):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, dupes)
}

func TestGetWorkerNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetWorkerByID(context.Background(), 88)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListWorkers(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seeded := seed(t, store,
		types.Worker{Name: "vimal raj", Email: "vimalraj@gmail.com", Role: "devops"},
		types.Worker{Name: "Prasanna", Email: "prasanna@gmail.com", Role: "Developer"},
		types.Worker{Name: "raj_kumar", Email: "rajkumar@gmail.com", Role: "Developer"},
	)

	tests := []struct {
		name   string
		filter types.WorkerFilter
		want   []types.Worker
	}{
		{name: "no filter keeps insertion order", filter: types.WorkerFilter{}, want: seeded},
		{name: "search is case-insensitive", filter: types.WorkerFilter{Search: "PRASANNA"}, want: seeded[1:2]},
		{name: "search matches substring", filter: types.WorkerFilter{Search: "raj"}, want: []types.Worker{seeded[0], seeded[2]}},
		{name: "underscore matched literally", filter: types.WorkerFilter{Search: "j_k"}, want: seeded[2:3]},
		{name: "percent matched literally", filter: types.WorkerFilter{Search: "%"}, want: []types.Worker{}},
		{name: "role is exact", filter: types.WorkerFilter{Role: "Developer"}, want: seeded[1:]},
		{name: "role is case-sensitive", filter: types.WorkerFilter{Role: "developer"}, want: []types.Worker{}},
		{name: "search and role combine", filter: types.WorkerFilter{Search: "raj", Role: "Developer"}, want: seeded[2:3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListWorkers(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpdateWorker(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seeded := seed(t, store,
		types.Worker{Name: "prasanna", Email: "prasanna@gmail.com", Role: "Developer"},
		types.Worker{Name: "other", Email: "other@gmail.com", Role: "QA"},
	)
	id := seeded[0].ID

	t.Run("partial keeps other fields", func(t *testing.T) {
		got, err := store.UpdateWorker(ctx, id, types.WorkerUpdate{Role: strPtr("Lead Developer")})
		require.NoError(t, err)
		assert.Equal(t, types.Worker{ID: id, Name: "prasanna", Email: "prasanna@gmail.com", Role: "Lead Developer"}, got)
	})

	t.Run("full replaces every field", func(t *testing.T) {
		got, err := store.UpdateWorker(ctx, id, types.WorkerUpdate{
			Name:  strPtr("P. Kumar"),
			Email: strPtr("pkumar@gmail.com"),
			Role:  strPtr("Manager"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.Worker{ID: id, Name: "P. Kumar", Email: "pkumar@gmail.com", Role: "Manager"}, got)
	})

	t.Run("empty update returns current record", func(t *testing.T) {
		got, err := store.UpdateWorker(ctx, id, types.WorkerUpdate{})
		require.NoError(t, err)
		assert.Equal(t, "P. Kumar", got.Name)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := store.UpdateWorker(ctx, id, types.WorkerUpdate{Email: strPtr("other@gmail.com")})
		assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.UpdateWorker(ctx, 99, types.WorkerUpdate{Role: strPtr("Manager")})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDeleteWorker(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seeded := seed(t, store, types.Worker{Name: "gone", Email: "gone@example.com", Role: "dev"})

	require.NoError(t, store.DeleteWorkerByID(ctx, seeded[0].ID))

	_, err := store.GetWorkerByID(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.DeleteWorkerByID(ctx, seeded[0].ID), storage.ErrNotFound)
}

func TestIDsAreNotReused(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first := seed(t, store, types.Worker{Name: "a", Email: "a@example.com", Role: "dev"})[0]
	require.NoError(t, store.DeleteWorkerByID(ctx, first.ID))

	second := seed(t, store, types.Worker{Name: "a", Email: "a@example.com", Role: "dev"})[0]
	assert.Greater(t, second.ID, first.ID)
}

func TestEmailExists(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	w := seed(t, store, types.Worker{Name: "a", Email: "a@example.com", Role: "dev"})[0]

	exists, err := store.EmailExists(ctx, "a@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.EmailExists(ctx, "a@example.com", w.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the worker's own email must not count as taken")

	exists, err = store.EmailExists(ctx, "b@example.com", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}
