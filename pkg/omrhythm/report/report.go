// Package report turns processed score structures into the serializable
// models shared by storage, exports and the HTTP/WASM surfaces.
package report

import (
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// FromSystem converts a processed system. ID and CreatedAt are left to the
// caller.
func FromSystem(sys *score.System, name, source string) *models.Analysis {
	if name == "" {
		name = sys.Name
	}
	a := &models.Analysis{
		Name:   name,
		Source: source,
		Stacks: make([]models.StackResult, 0, len(sys.Stacks)),
	}
	for _, st := range sys.Stacks {
		sr := FromStack(st)
		if sr.Abnormal {
			a.Abnormal = true
		}
		a.Stacks = append(a.Stacks, sr)
	}
	return a
}

func FromStack(st *score.Stack) models.StackResult {
	sr := models.StackResult{
		Index:    st.Index,
		Expected: rational.String(st.Expected),
		Actual:   rational.String(st.Actual),
		Excess:   rational.String(st.Excess),
		Abnormal: st.IsAbnormal(),
		Measures: make([]models.MeasureResult, 0, len(st.Measures)),
	}
	if st.TimeSig != nil {
		sr.TimeSignature = st.TimeSig.String()
	}
	for _, es := range st.EmptyStaves {
		sr.EmptyStaves = append(sr.EmptyStaves, models.EmptyStaff{Part: es.Part, Staff: es.Staff})
	}
	for _, m := range st.Measures {
		sr.Measures = append(sr.Measures, FromMeasure(m))
	}
	return sr
}

func FromMeasure(m *score.Measure) models.MeasureResult {
	mr := models.MeasureResult{
		Stack:    m.Stack,
		Part:     m.Part,
		Expected: rational.String(m.Expected),
		Abnormal: m.IsAbnormal(),
		Slots:    make([]models.SlotResult, 0, len(m.Slots)),
		Voices:   make([]models.VoiceResult, 0, len(m.Voices)),
		Chords:   make([]models.ChordResult, 0, len(m.Chords)),
	}

	for _, cs := range m.Slots {
		mr.Slots = append(mr.Slots, models.SlotResult{
			ID:         cs.ID,
			Time:       rational.String(cs.Time()),
			XOffset:    slotOffset(m, cs),
			Chords:     cs.Chords(),
			Suspicious: cs.Suspicious,
		})
	}

	for _, v := range m.Voices {
		vr := models.VoiceResult{
			ID:          v.ID,
			Family:      v.Family.String(),
			Chords:      append([]int(nil), v.Chords...),
			MeasureRest: v.MeasureRest,
			Termination: rational.String(v.Termination),

			Duration:           rational.String(v.Duration(m)),
			DurationSansTuplet: rational.String(v.DurationSansTuplet(m)),
			Strip:              v.Strip(m),
		}
		for _, f := range v.Forwards(m, m.Expected) {
			vr.Forwards = append(vr.Forwards, models.Forward{
				After:    f.After,
				Start:    f.Start.String(),
				Duration: f.Duration.String(),
			})
		}
		if ts := v.InferredTimeSignature(m); ts != nil {
			vr.TimeSignature = ts.String()
		}
		mr.Voices = append(mr.Voices, vr)
	}

	for _, c := range m.Chords {
		mr.Chords = append(mr.Chords, models.ChordResult{
			ID:       c.ID,
			Kind:     c.Kind.String(),
			Staff:    c.Staff,
			Voice:    c.Voice,
			Slot:     c.Slot,
			Time:     rational.String(c.Time),
			Duration: c.Duration().String(),
			Tuplet:   c.Tuplet,
			Keys:     KeysOf(m, c),
		})
	}

	for _, t := range m.Tuplets {
		mr.Tuplets = append(mr.Tuplets, models.TupletResult{
			ID:       t.ID,
			Shape:    t.Shape.String(),
			Implicit: t.Implicit,
			Chords:   append([]int(nil), t.Chords...),
			X:        t.Bounds.X,
			Y:        t.Bounds.Y,
			W:        t.Bounds.W,
			H:        t.Bounds.H,
		})
	}
	return mr
}

// slotOffset is the mean head abscissa of the slot, relative to the measure start.
func slotOffset(m *score.Measure, cs *score.CompoundSlot) float64 {
	chords := m.ChordsOf(cs.Chords())
	if len(chords) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chords {
		sum += c.HeadX
	}
	return sum/float64(len(chords)) - m.Left
}
