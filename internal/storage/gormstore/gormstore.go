// Package gormstore implements storage.Storage on top of GORM, so the same
// code serves PostgreSQL in production and SQLite in tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/workforce-api/internal/storage"
	"github.com/aanand-mishra/workforce-api/internal/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// workerRecord is the table schema. It is kept apart from types.Worker so
// column constraints live next to the migration and nowhere else.
type workerRecord struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:255;not null"`
	Email string `gorm:"size:254;not null;uniqueIndex"`
	Role  string `gorm:"size:100;not null"`
}

func (workerRecord) TableName() string { return "workers" }

func toRecord(w types.Worker) workerRecord {
	return workerRecord{ID: w.ID, Name: w.Name, Email: w.Email, Role: w.Role}
}

func (r workerRecord) toWorker() types.Worker {
	return types.Worker{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role}
}

type Repository struct {
	db *gorm.DB
}

var _ storage.Storage = (*Repository)(nil)

// PostgresConfig holds the connection settings for NewPostgres.
type PostgresConfig struct {
	DSN string
	// ConnectTimeout bounds the total time spent retrying the first connection.
	ConnectTimeout time.Duration
}

// NewPostgres connects to PostgreSQL, retrying with exponential backoff
// while the database is still coming up, then migrates the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Repository, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout

	var repo *Repository
	connect := func() error {
		r, err := Open(postgres.Open(cfg.DSN))
		if err != nil {
			return err
		}
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return err
		}
		repo = r
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next),
		)
	}

	if err := backoff.RetryNotify(connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repo, nil
}

// Open opens a repository on any GORM dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&workerRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) ListWorkers(ctx context.Context, filter types.WorkerFilter) ([]types.Worker, error) {
	query := r.db.WithContext(ctx).Model(&workerRecord{})
	if filter.Search != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, storage.LikePattern(filter.Search))
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	var records []workerRecord
	if err := query.Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	workers := make([]types.Worker, 0, len(records))
	for _, rec := range records {
		workers = append(workers, rec.toWorker())
	}
	return workers, nil
}

func (r *Repository) GetWorkerByID(ctx context.Context, id int64) (types.Worker, error) {
	var rec workerRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return types.Worker{}, storage.ErrNotFound
		}
		return types.Worker{}, result.Error
	}
	return rec.toWorker(), nil
}

func (r *Repository) CreateWorker(ctx context.Context, worker types.Worker) (types.Worker, error) {
	rec := toRecord(worker)
	rec.ID = 0

	result := r.db.WithContext(ctx).Create(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return types.Worker{}, storage.ErrDuplicateEmail
		}
		return types.Worker{}, result.Error
	}
	return rec.toWorker(), nil
}

func (r *Repository) UpdateWorker(ctx context.Context, id int64, update types.WorkerUpdate) (types.Worker, error) {
	if update.Empty() {
		return r.GetWorkerByID(ctx, id)
	}

	// A map rather than a struct so an explicitly supplied value is written
	// even when it happens to be a zero value.
	columns := make(map[string]any, 3)
	if update.Name != nil {
		columns["name"] = *update.Name
	}
	if update.Email != nil {
		columns["email"] = *update.Email
	}
	if update.Role != nil {
		columns["role"] = *update.Role
	}

	result := r.db.WithContext(ctx).Model(&workerRecord{}).
		Where("id = ?", id).
		Updates(columns)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return types.Worker{}, storage.ErrDuplicateEmail
		}
		return types.Worker{}, result.Error
	}
	if result.RowsAffected == 0 {
		return types.Worker{}, storage.ErrNotFound
	}
	return r.GetWorkerByID(ctx, id)
}

func (r *Repository) DeleteWorkerByID(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&workerRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&workerRecord{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
