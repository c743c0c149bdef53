package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore 以 JSON Lines 追加写入本地文件，适合单机运行
type FileStore struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewFileStore opens (or creates) baseDir/ledger.jsonl.
func NewFileStore(baseDir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	path := filepath.Join(baseDir, "ledger.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	return &FileStore{
		path:   path,
		file:   f,
		logger: logger.With(zap.String("component", "ledger_file")),
	}, nil
}

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrStoreClosed
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return s.file.Sync()
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// List implements Store. Malformed lines are skipped and logged.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil, ErrStoreClosed
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			s.logger.Warn("skipping malformed ledger line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}
	sortByLogout(out)
	return out, nil
}

// Ping implements Store.
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrStoreClosed
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
