package rhythm

import (
	"fmt"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// StackRhythm processes the measures of one stack and checks the stack as
// a whole: empty staves and overall duration.
type StackRhythm struct {
	stack *score.Stack
	opts  Options
	log   Logger
}

func NewStackRhythm(stack *score.Stack, opts Options) *StackRhythm {
	var log Logger = opts.Logger
	if log == nil {
		log = logger.GetLogger().WithPrefix(fmt.Sprintf("S%d", stack.Index))
	}
	return &StackRhythm{stack: stack, opts: opts, log: log}
}

// Process runs every measure of the stack, then the stack checks. The time
// signature, when known, gives the expected duration and beat unit of the
// measures that carry none.
func (sr *StackRhythm) Process() bool {
	st := sr.stack
	st.SetAbnormal(false)
	st.EmptyStaves = nil

	if st.Expected == nil && st.TimeSig != nil {
		st.Expected = st.TimeSig.Value().Ptr()
	}

	ok := true
	for _, m := range st.Measures {
		if m.Expected == nil {
			m.Expected = st.Expected
		}
		if m.BeatUnit.IsZero() {
			m.BeatUnit = rational.Quarter
			if st.TimeSig != nil {
				m.BeatUnit = st.TimeSig.BeatUnit()
			}
		}

		if !NewMeasureRhythm(m, sr.opts).Process() {
			sr.log.Infof("%v rhythm not resolved", m)
			ok = false
		}

		for _, staff := range m.EmptyStaves() {
			sr.log.Warnf("%v empty staff %d", m, staff)
			st.EmptyStaves = append(st.EmptyStaves, score.EmptyStaff{Part: m.Part, Staff: staff})
		}
	}

	if len(st.EmptyStaves) > 0 {
		st.SetAbnormal(true)
	}

	st.CheckDuration()
	if st.Excess != nil {
		sr.log.Warnf("duration %s exceeds expected %s by %s", st.Actual, st.Expected, st.Excess)
	}

	return ok && !st.IsAbnormal()
}
