package rhythm

import (
	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// Report summarizes a system run.
type Report struct {
	Stacks   int
	Measures int
	Abnormal []int // stack indexes
}

func (r Report) OK() bool { return len(r.Abnormal) == 0 }

// SystemRhythm processes the stacks of a system in order, carrying the time
// signature forward from stack to stack.
type SystemRhythm struct {
	sys  *score.System
	opts Options
	log  Logger
}

func NewSystemRhythm(sys *score.System, opts Options) *SystemRhythm {
	var log Logger = opts.Logger
	if log == nil {
		log = logger.GetLogger().WithPrefix(sys.Name)
	}
	return &SystemRhythm{sys: sys, opts: opts, log: log}
}

func (sr *SystemRhythm) Process() Report {
	var report Report
	var current *score.TimeSignature

	for _, st := range sr.sys.Stacks {
		if st.TimeSig != nil {
			current = st.TimeSig
		} else if current != nil && st.Expected == nil {
			st.TimeSig = current
		}

		for _, m := range st.Measures {
			m.Stack = st.Index
			if sr.sys.Merged {
				m.MergedStaves = true
			}
			if m.Scale.Interline == 0 {
				m.Scale.Interline = sr.sys.Interline
			}
		}

		report.Stacks++
		report.Measures += len(st.Measures)
		if !NewStackRhythm(st, sr.opts).Process() {
			report.Abnormal = append(report.Abnormal, st.Index)
		}
	}

	sr.log.Infof("%d stacks, %d measures, %d abnormal", report.Stacks, report.Measures, len(report.Abnormal))
	return report
}
