package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/models"
)

// FileBaselineStore persists every baseline in a single JSON document keyed by
// make_model_year. Each Set is a whole-file read-modify-write; the mutex only
// serializes writers within this process.
type FileBaselineStore struct {
	path string
	mu   sync.Mutex
}

func NewFileBaselineStore(path string) *FileBaselineStore {
	return &FileBaselineStore{path: path}
}

func (s *FileBaselineStore) Path() string { return s.path }

func (s *FileBaselineStore) read() (map[string]models.BaselineSchedule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]models.BaselineSchedule{}, nil
		}
		return nil, err
	}
	all := map[string]models.BaselineSchedule{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileBaselineStore) write(all map[string]models.BaselineSchedule) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileBaselineStore) Get(_ context.Context, key string) (*models.BaselineSchedule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, false, err
	}
	schedule, ok := all[key]
	if !ok {
		return nil, false, nil
	}
	return &schedule, true, nil
}

// Set writes one key. An unreadable file is treated as empty and overwritten.
func (s *FileBaselineStore) Set(_ context.Context, key string, schedule models.BaselineSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		logrus.WithError(err).WithField("path", s.path).Warn("Baseline file unreadable, starting fresh")
		all = map[string]models.BaselineSchedule{}
	}
	all[key] = schedule
	return s.write(all)
}

func (s *FileBaselineStore) All(_ context.Context) (map[string]models.BaselineSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileBaselineStore) Replace(_ context.Context, all map[string]models.BaselineSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if all == nil {
		all = map[string]models.BaselineSchedule{}
	}
	return s.write(all)
}
