package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SQLStore 账本的 GORM 实现
type SQLStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLStore opens the configured database and migrates the ledger table.
func NewSQLStore(cfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	pool, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStoreFromPool(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreFromPool wraps an existing pool.
func NewSQLStoreFromPool(pool *database.PoolManager, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger table: %w", err)
	}
	return &SQLStore{
		pool:   pool,
		logger: logger.With(zap.String("component", "ledger_sql")),
	}, nil
}

// Append implements Store.
func (s *SQLStore) Append(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	return s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	var r Record
	err := s.pool.DB().WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	return r, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := s.pool.DB().WithContext(ctx).Order("logged_out_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	stats := s.pool.GetStats()
	s.logger.Debug("closing ledger database",
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration))
	return s.pool.Close()
}
