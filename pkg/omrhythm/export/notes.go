// Package export renders stored analyses as MIDI files, WAV auditions and
// spectrogram previews.
package export

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Note is one sounding key. Start and Duration are in whole notes from the
// start of the system.
type Note struct {
	Part     int
	Voice    int
	Key      int
	Start    rational.Rational
	Duration rational.Rational
}

func (n Note) End() rational.Rational { return n.Start.Plus(n.Duration) }

// Timeline lays the measures of the analysis end to end and returns every
// timed, pitched note in start order, plus the total length. Stacks last
// their expected duration, or their actual one when nothing was expected.
// Chords without a time are skipped.
func Timeline(a *models.Analysis) ([]Note, rational.Rational, error) {
	var notes []Note
	offset := rational.Zero

	for _, st := range a.Stacks {
		length, err := stackLength(st)
		if err != nil {
			return nil, rational.Zero, err
		}

		for _, m := range st.Measures {
			for _, c := range m.Chords {
				if c.Time == "" || len(c.Keys) == 0 {
					continue
				}
				start, err := rational.Parse(c.Time)
				if err != nil {
					return nil, rational.Zero, fmt.Errorf("stack %d chord %d time: %w", st.Index, c.ID, err)
				}
				dur, err := rational.Parse(c.Duration)
				if err != nil {
					return nil, rational.Zero, fmt.Errorf("stack %d chord %d duration: %w", st.Index, c.ID, err)
				}
				for _, key := range c.Keys {
					notes = append(notes, Note{
						Part:     m.Part,
						Voice:    c.Voice,
						Key:      key,
						Start:    offset.Plus(start),
						Duration: dur,
					})
				}
			}
		}
		offset = offset.Plus(length)
	}

	slices.SortStableFunc(notes, func(a, b Note) int {
		if c := a.Start.Cmp(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return notes, offset, nil
}

func stackLength(st models.StackResult) (rational.Rational, error) {
	for _, s := range []string{st.Expected, st.Actual} {
		if s == "" {
			continue
		}
		r, err := rational.Parse(s)
		if err != nil {
			return rational.Zero, fmt.Errorf("stack %d length %q: %w", st.Index, s, err)
		}
		return r, nil
	}
	return rational.Zero, nil
}
