package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

type TimeSignature struct {
	Num int `json:"num" yaml:"num" validate:"gt=0"`
	Den int `json:"den" yaml:"den" validate:"gt=0"`
}

// Value is the measure duration implied by the signature.
func (ts TimeSignature) Value() rational.Rational {
	return rational.New(int64(ts.Num), int64(ts.Den))
}

// BeatUnit is one denominator unit, 1/4 for 3/4.
func (ts TimeSignature) BeatUnit() rational.Rational {
	return rational.New(1, int64(ts.Den))
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Num, ts.Den)
}

// ParseTimeSignature reads the "num/den" form.
func ParseTimeSignature(s string) (TimeSignature, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return TimeSignature{}, fmt.Errorf("invalid time signature numerator %q", num)
	}
	d, err := strconv.Atoi(den)
	if err != nil || d <= 0 {
		return TimeSignature{}, fmt.Errorf("invalid time signature denominator %q", den)
	}
	return TimeSignature{Num: n, Den: d}, nil
}

// EmptyStaff records a staff left without any chord in a stack.
type EmptyStaff struct {
	Part  int
	Staff int
}

// Stack is the vertical column of measures, one per part, sharing barlines.
type Stack struct {
	Index    int
	TimeSig  *TimeSignature
	Expected *rational.Rational
	Measures []*Measure

	Actual      *rational.Rational
	Excess      *rational.Rational
	EmptyStaves []EmptyStaff

	abnormal bool
}

func (s *Stack) SetAbnormal(b bool) { s.abnormal = b }

// IsAbnormal is true when the stack itself or any of its measures is.
func (s *Stack) IsAbnormal() bool {
	if s.abnormal {
		return true
	}
	for _, m := range s.Measures {
		if m.IsAbnormal() {
			return true
		}
	}
	return false
}

// CheckDuration sets the actual duration and the excess over the expected one.
func (s *Stack) CheckDuration() {
	s.Actual, s.Excess = nil, nil
	for _, m := range s.Measures {
		if d := m.ActualDuration(); d != nil && (s.Actual == nil || s.Actual.Less(*d)) {
			s.Actual = d
		}
	}
	if s.Actual == nil || s.Expected == nil {
		return
	}
	if excess := s.Actual.Minus(*s.Expected); excess.Sign() > 0 {
		s.Excess = excess.Ptr()
		s.abnormal = true
	}
}

// System is one line of staves read from a sheet, split into stacks.
type System struct {
	Name      string
	Interline float64
	Merged    bool
	Stacks    []*Stack
}

// Measures lists every measure of the system, stack by stack.
func (sys *System) Measures() []*Measure {
	var out []*Measure
	for _, st := range sys.Stacks {
		out = append(out, st.Measures...)
	}
	return out
}
