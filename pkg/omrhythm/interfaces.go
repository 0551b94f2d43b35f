package omrhythm

import (
	"context"
	"io"

	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/export"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/loader"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

type Service interface {
	AnalyzeFile(ctx context.Context, path string) (*models.Analysis, error)
	AnalyzeDocument(ctx context.Context, data []byte, format loader.Format, source string) (*models.Analysis, error)
	Analyze(ctx context.Context, sys *score.System, source string) (*models.Analysis, error)
	GetAnalysis(id string) (*models.Analysis, error)
	ListAnalyses(opts ListOptions) ([]models.AnalysisSummary, error)
	DeleteAnalysis(id string) error
	Stats() (Stats, error)
	ExportMIDI(ctx context.Context, id string, w io.Writer) error
	ExportWAV(ctx context.Context, id string, w io.WriteSeeker) error
	ExportFiles(ctx context.Context, id string, kinds ...ExportKind) ([]string, error)
	VerifyAudition(ctx context.Context, id string) ([]export.PitchMismatch, error)
	Close() error
}

type Storage interface {
	SaveAnalysis(a *models.Analysis) (string, error)
	GetAnalysisByID(id string) (*models.Analysis, error)
	ListAnalyses(opts ListOptions) ([]models.AnalysisSummary, error)
	CountAnalyses() (total, abnormal int64, err error)
	DeleteAnalysisByID(id string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
