package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/pixelagent/config"
	"github.com/BaSui01/pixelagent/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 账本的 Redis 实现。
// 记录以 JSON 存在 Hash 中，按登出时间建有序集合索引。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, keyPrefix string, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.ClientConfig(cfg.Addr)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "pixelagent:ledger"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With(zap.String("component", "ledger_redis")),
	}, nil
}

// dataKey returns the hash holding the serialized records
func (s *RedisStore) dataKey() string {
	return s.keyPrefix + ":data"
}

// indexKey returns the sorted set ordered by logout time
func (s *RedisStore) indexKey() string {
	return s.keyPrefix + ":index"
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.dataKey(), rec.ID, data)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(rec.LoggedOutAt.UnixNano()), Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.HGet(ctx, s.dataKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return r, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := s.client.HMGet(ctx, s.dataKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	out := make([]Record, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("index entry without record", zap.String("id", ids[i]))
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			s.logger.Warn("skipping malformed record", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
