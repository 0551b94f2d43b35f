package omrhythm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
// SQLite takes one writer at a time, so writes are serialized here.
type storageAdapter struct {
	db *storage.DBClient
	mu sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveAnalysis(a *models.Analysis) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.SaveAnalysis(a)
}

func (s *storageAdapter) GetAnalysisByID(id string) (*models.Analysis, error) {
	a, err := s.db.GetAnalysisByID(id)
	return a, translate(err)
}

func (s *storageAdapter) ListAnalyses(opts ListOptions) ([]models.AnalysisSummary, error) {
	return s.db.ListAnalyses(storage.ListOptions{
		Limit:        opts.Limit,
		Offset:       opts.Offset,
		AbnormalOnly: opts.AbnormalOnly,
		Name:         opts.Name,
	})
}

func (s *storageAdapter) CountAnalyses() (int64, int64, error) {
	return s.db.CountAnalyses()
}

func (s *storageAdapter) DeleteAnalysisByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return translate(s.db.DeleteAnalysisByID(id))
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func translate(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrAnalysisNotFound, err)
	}
	return err
}
