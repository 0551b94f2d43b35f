// Package omrhythm is the library entry point: it loads recognized systems,
// runs the rhythm engine over them, stores the results and exports them.
package omrhythm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/export"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/loader"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/report"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/utils"
)

// rhythmService is the default implementation of the Service interface.
type rhythmService struct {
	storage Storage
	log     Logger
	config  *Config
	opts    rhythm.Options
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	ropts := cfg.Profile.Options()
	if cfg.implicitTuplets != nil {
		ropts.ImplicitTuplets = *cfg.implicitTuplets
	}
	// measures log through prefixed children of the global logger unless
	// the caller supplied one
	if cfg.Logger != nil {
		ropts.Logger = cfg.Logger
	} else {
		cfg.Logger = logger.GetLogger()
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &rhythmService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		opts:    ropts,
	}, nil
}

// AnalyzeFile loads a system document, processes it and stores the result.
func (s *rhythmService) AnalyzeFile(ctx context.Context, path string) (*models.Analysis, error) {
	s.log.Infof("Analyzing %s", path)

	sys, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, sys, path)
}

func (s *rhythmService) AnalyzeDocument(ctx context.Context, data []byte, format loader.Format, source string) (*models.Analysis, error) {
	sys, err := loader.Parse(data, format)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, sys, source)
}

// Analyze runs the rhythm engine over an already built system.
func (s *rhythmService) Analyze(ctx context.Context, sys *score.System, source string) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	// 1. Process stacks
	rep := rhythm.NewSystemRhythm(sys, s.opts).Process()
	if len(rep.Abnormal) > 0 {
		s.log.Warnf("%s: abnormal stacks %v", sys.Name, rep.Abnormal)
	}

	// 2. Convert to the stored form
	a := report.FromSystem(sys, "", source)
	a.ID = utils.GenerateUUID()
	a.CreatedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Store
	if _, err := s.storage.SaveAnalysis(a); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	s.log.Infof("Stored analysis %s (%d stacks, %d measures) in %v",
		a.ID, rep.Stacks, rep.Measures, time.Since(start).Round(time.Millisecond))
	return a, nil
}

func (s *rhythmService) GetAnalysis(id string) (*models.Analysis, error) {
	return s.storage.GetAnalysisByID(id)
}

func (s *rhythmService) ListAnalyses(opts ListOptions) ([]models.AnalysisSummary, error) {
	return s.storage.ListAnalyses(opts)
}

func (s *rhythmService) DeleteAnalysis(id string) error {
	if err := s.storage.DeleteAnalysisByID(id); err != nil {
		return err
	}
	s.log.Infof("Deleted analysis %s", id)
	return nil
}

func (s *rhythmService) Stats() (Stats, error) {
	total, abnormal, err := s.storage.CountAnalyses()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Analyses: total, Abnormal: abnormal}, nil
}

func (s *rhythmService) midiOptions() export.MIDIOptions {
	opts := export.DefaultMIDIOptions()
	opts.Tempo = s.config.Tempo
	return opts
}

func (s *rhythmService) wavOptions() export.WAVOptions {
	opts := export.DefaultWAVOptions()
	opts.SampleRate = s.config.SampleRate
	opts.Tempo = s.config.Tempo
	return opts
}

func (s *rhythmService) ExportMIDI(ctx context.Context, id string, w io.Writer) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return export.WriteMIDI(w, a, s.midiOptions())
}

func (s *rhythmService) ExportWAV(ctx context.Context, id string, w io.WriteSeeker) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	samples, err := export.RenderAnalysis(a, s.wavOptions())
	if err != nil {
		return err
	}
	return export.WriteWAV(w, samples, s.config.SampleRate)
}

// ExportFiles writes the requested exports into the export directory and
// returns their paths. All kinds are written when none is given.
func (s *rhythmService) ExportFiles(ctx context.Context, id string, kinds ...ExportKind) ([]string, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = []ExportKind{ExportMIDI, ExportWAV, ExportSpectrogram}
	}
	if err := utils.MakeDir(s.config.ExportDir); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	base := filepath.Join(s.config.ExportDir, exportBaseName(a))
	var samples []float64
	render := func() ([]float64, error) {
		if samples == nil {
			samples, err = export.RenderAnalysis(a, s.wavOptions())
		}
		return samples, err
	}

	var paths []string
	for _, kind := range kinds {
		path := base + kind.Ext()
		switch kind {
		case ExportMIDI:
			var buf bytes.Buffer
			if err := export.WriteMIDI(&buf, a, s.midiOptions()); err != nil {
				return paths, err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return paths, fmt.Errorf("writing midi file: %w", err)
			}
		case ExportWAV:
			if err := export.SaveWAV(path, a, s.wavOptions()); err != nil {
				return paths, err
			}
		case ExportSpectrogram:
			pcm, err := render()
			if err != nil {
				return paths, err
			}
			if err := export.SaveSpectrogram(path, pcm, s.config.SampleRate, 1024, 256); err != nil {
				return paths, err
			}
		default:
			return paths, fmt.Errorf("%w: %q", ErrUnknownExport, kind)
		}
		s.log.Infof("Wrote %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}

// VerifyAudition renders the analysis and listens back to every onset.
func (s *rhythmService) VerifyAudition(ctx context.Context, id string) ([]export.PitchMismatch, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	notes, length, err := export.Timeline(a)
	if err != nil {
		return nil, err
	}
	opts := s.wavOptions()
	return export.CheckPitches(export.Render(notes, length, opts), notes, opts), nil
}

func (s *rhythmService) load(ctx context.Context, id string) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.storage.GetAnalysisByID(id)
}

func exportBaseName(a *models.Analysis) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, a.Name)
	if name == "" {
		name = "analysis"
	}
	short := a.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return name + "-" + short
}

func (s *rhythmService) Close() error {
	return s.storage.Close()
}
