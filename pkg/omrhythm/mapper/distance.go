// Package mapper links the rookie chords of a slot to the active chords of
// existing voices by minimum-cost bipartite assignment.
package mapper

import (
	"fmt"
	"math"
	"strings"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// Weights are the cost values of the voice distance. The three tiers NoLink,
// NoFit and Incompatible order the rejections from soft to hard.
type Weights struct {
	NoLink       int     `yaml:"noLink" json:"noLink" validate:"gt=0"`
	NoFit        int     `yaml:"noFit" json:"noFit" validate:"gtfield=NoLink"`
	Incompatible int     `yaml:"incompatible" json:"incompatible" validate:"gtfield=NoFit"`
	NotARest     int     `yaml:"notARest" json:"notARest" validate:"gte=0"`
	NewInStaff   int     `yaml:"newInStaff" json:"newInStaff" validate:"gte=0"`
	StaffDiff    int     `yaml:"staffDiff" json:"staffDiff" validate:"gte=0"`
	StemFactor   int     `yaml:"stemFactor" json:"stemFactor" validate:"gte=0"`
	MaxPitchGap  float64 `yaml:"maxPitchGap" json:"maxPitchGap" validate:"gt=0"`
}

func DefaultWeights() Weights {
	return Weights{
		NoLink:       20,
		NoFit:        100,
		Incompatible: 10000,
		NotARest:     5,
		NewInStaff:   40,
		StaffDiff:    50,
		StemFactor:   2,
		MaxPitchGap:  8,
	}
}

// Metric measures how unlikely a rookie continues the voice of an active
// chord. The details builder, when not nil, receives a breakdown for logs.
type Metric interface {
	Distance(m *score.Measure, active, rookie *score.Chord, details *strings.Builder) int
	Weights() Weights
}

// Separated is the metric for parts whose staves are written apart.
type Separated struct {
	W     Weights
	Scale score.Scale
}

// Merged is the metric for two staves notated as one continuous system:
// crossing between them costs nothing within a part.
type Merged struct {
	W     Weights
	Scale score.Scale
}

func (s Separated) Weights() Weights { return s.W }

func (mg Merged) Weights() Weights { return mg.W }

func (s Separated) Distance(m *score.Measure, active, rookie *score.Chord, details *strings.Builder) int {
	return distance(s.W, s.Scale, false, m, active, rookie, details)
}

func (mg Merged) Distance(m *score.Measure, active, rookie *score.Chord, details *strings.Builder) int {
	return distance(mg.W, mg.Scale, true, m, active, rookie, details)
}

// NewMetric picks the metric matching the measure staff layout.
func NewMetric(merged bool, w Weights, scale score.Scale) Metric {
	if merged {
		return Merged{W: w, Scale: scale}
	}
	return Separated{W: w, Scale: scale}
}

func distance(w Weights, scale score.Scale, merged bool, m *score.Measure, active, rookie *score.Chord, details *strings.Builder) int {
	note := func(format string, args ...any) {
		if details != nil {
			fmt.Fprintf(details, format, args...)
		}
	}

	// both already bound to different voices
	if active.Voice != 0 && rookie.Voice != 0 && active.Voice != rookie.Voice {
		note("voices %d/%d", active.Voice, rookie.Voice)
		return w.Incompatible
	}

	if active.Part != rookie.Part {
		note("parts %d/%d", active.Part, rookie.Part)
		return w.Incompatible
	}

	total := 0
	if active.Staff != rookie.Staff && !merged {
		note("staff:%d ", w.StaffDiff)
		total += w.StaffDiff
	}

	if !merged {
		if v := m.VoiceOf(active); v != nil && v.StartStaff != rookie.Staff {
			note("ds:%d ", w.NewInStaff)
			total += w.NewInStaff
		}
	}

	if !active.IsRest() && !rookie.IsRest() {
		note("dr:%d ", w.NotARest)
		total += w.NotARest
	}

	gap := scale.Fraction(math.Abs(active.HeadY - rookie.HeadY))
	dy := int(gap)
	note("dy:%d ", dy)
	total += dy
	if gap > w.MaxPitchGap {
		note("nofit:%d ", w.NoFit)
		total += w.NoFit
	}

	if active.Stem != rookie.Stem {
		ds := w.StemFactor * score.Abs(int(active.Stem)-int(rookie.Stem))
		note("stem:%d", ds)
		total += ds
	}

	return min(total, w.Incompatible-1)
}
