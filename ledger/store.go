// Package ledger keeps an append-only record of every session break.
//
// The scheduler is the only writer. Supported backends:
//   - memory: for tests and dry runs (default)
//   - file: JSON lines on local disk
//   - redis: a hash of records indexed by a sorted set
//   - sql: a GORM table on sqlite, postgres or mysql
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrNotFound     = errors.New("ledger record not found")
	ErrStoreClosed  = errors.New("ledger store is closed")
	ErrInvalidInput = errors.New("invalid ledger record")
)

// StoreType 账本后端类型
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
)

// Record 是一次休息（登出）的记录
type Record struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`
	// 本次休息后已完成的会话数
	Session int `json:"session"`
	Total   int `json:"total"`
	// 触发休息的检查点 (1-5)
	Checkpoint int  `json:"checkpoint"`
	Forced     bool `json:"forced"`
	Roll       int  `json:"roll"`
	// 登出时间
	LoggedOutAt time.Time `json:"logged_out_at" gorm:"index"`
	// 休息时长，最后一个会话为 0
	Break time.Duration `json:"break"`
	// 会话预算已用完
	Final bool `json:"final"`
}

// TableName 指定 SQL 表名
func (Record) TableName() string {
	return "ledger_records"
}

// Store 是账本存储接口
type Store interface {
	// Append stores rec, assigning an ID when empty.
	Append(ctx context.Context, rec *Record) error
	// Get returns a record by ID or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// List returns every record ordered by logout time.
	List(ctx context.Context) ([]Record, error)
	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
	// Close releases resources
	Close() error
}

// prepare validates rec and fills the ID and timestamp.
func prepare(rec *Record) error {
	if rec == nil {
		return ErrInvalidInput
	}
	if rec.Session < 1 || rec.Checkpoint < 1 || rec.Checkpoint > 5 {
		return fmt.Errorf("%w: session %d checkpoint %d", ErrInvalidInput, rec.Session, rec.Checkpoint)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.LoggedOutAt.IsZero() {
		rec.LoggedOutAt = time.Now()
	}
	return nil
}

// New 根据配置创建账本存储
func New(cfg config.LedgerConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch StoreType(cfg.Type) {
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case StoreTypeFile:
		return NewFileStore(cfg.BaseDir, logger)
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis, cfg.KeyPrefix, logger)
	case StoreTypeSQL:
		return NewSQLStore(cfg.Database, logger)
	default:
		return nil, fmt.Errorf("unsupported ledger store type: %s", cfg.Type)
	}
}

// Summary 汇总账本
type Summary struct {
	Breaks     int
	Forced     int
	TotalBreak time.Duration
	Last       time.Time
}

// Summarize aggregates records.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		s.Breaks++
		if r.Forced {
			s.Forced++
		}
		s.TotalBreak += r.Break
		if r.LoggedOutAt.After(s.Last) {
			s.Last = r.LoggedOutAt
		}
	}
	return s
}
