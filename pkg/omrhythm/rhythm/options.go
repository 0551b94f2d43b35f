// Package rhythm assigns voices and time offsets to the chords of measures,
// stacks and systems.
package rhythm

import (
	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/mapper"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Options tune one rhythm run. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Tolerances      score.Tolerances
	Weights         mapper.Weights
	ImplicitTuplets bool
	Logger          Logger
}

func DefaultOptions() Options {
	return Options{
		Tolerances:      score.DefaultTolerances(),
		Weights:         mapper.DefaultWeights(),
		ImplicitTuplets: true,
	}
}

// debugEnabled reports whether the logger prints debug lines. Loggers that
// do not expose their level are taken as verbose.
func debugEnabled(l Logger) bool {
	if lv, ok := l.(interface{ Level() logger.LogLevel }); ok {
		return lv.Level() <= logger.DEBUG
	}
	return true
}

// measureLogger returns the configured logger, or a child of the global one
// prefixed with the measure name.
func (o Options) measureLogger(m *score.Measure) Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.GetLogger().WithPrefix(m.String())
}
