package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
)

// FileReportStore writes the latest report as indented JSON, replacing the
// previous one atomically.
type FileReportStore struct {
	path string
	mu   sync.Mutex
}

var _ domrepo.ReportStore = (*FileReportStore)(nil)

func NewFileReportStore(path string) *FileReportStore {
	return &FileReportStore{path: path}
}

func (s *FileReportStore) Save(ctx context.Context, report *models.AnalysisReport) error {
	if report == nil {
		return errors.New("nil report")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("report temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

func (s *FileReportStore) Latest(ctx context.Context) (*models.AnalysisReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	b, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, domrepo.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report models.AnalysisReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
