//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"time"

	"github.com/himanishpuri/omrhythm/pkg/models"
)

type Analysis struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Name         string `gorm:"index:idx_analysis_name"`
	Source       string
	Abnormal     bool `gorm:"index:idx_analysis_abnormal"`
	StackCount   int
	MeasureCount int
	CreatedAt    time.Time `gorm:"index:idx_analysis_created"`

	Stacks   []Stack   `gorm:"foreignKey:AnalysisID"`
	Measures []Measure `gorm:"foreignKey:AnalysisID"`
}

func (Analysis) TableName() string { return "analyses" }

type Stack struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	AnalysisID    string `gorm:"type:varchar(36);index:idx_stack_analysis"`
	Index         int `gorm:"column:stack_index"`
	TimeSignature string
	Expected      string
	Actual        string
	Excess        string
	Abnormal      bool
	EmptyStaves   []models.EmptyStaff `gorm:"serializer:json"`
}

type Measure struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AnalysisID string `gorm:"type:varchar(36);index:idx_measure_analysis"`
	Stack      int
	Part       int
	Expected   string
	Abnormal   bool

	Slots   []Slot   `gorm:"foreignKey:MeasureID"`
	Voices  []Voice  `gorm:"foreignKey:MeasureID"`
	Chords  []Chord  `gorm:"foreignKey:MeasureID"`
	Tuplets []Tuplet `gorm:"foreignKey:MeasureID"`
}

type Slot struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	MeasureID  uint `gorm:"index:idx_slot_measure"`
	SlotID     int
	Time       string
	XOffset    float64
	Chords     []int `gorm:"serializer:json"`
	Suspicious bool
}

type Voice struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	MeasureID     uint `gorm:"index:idx_voice_measure"`
	VoiceID       int
	Family        string
	Chords        []int `gorm:"serializer:json"`
	MeasureRest   int
	Termination   string
	TimeSignature string

	Duration           string
	DurationSansTuplet string
	Forwards           []models.Forward `gorm:"serializer:json"`
	Strip              string
}

type Chord struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	MeasureID uint `gorm:"index:idx_chord_measure"`
	ChordID   int
	Kind      string
	Staff     int
	Voice     int
	Slot      int
	Time      string
	Duration  string
	Tuplet    int
	Keys      []int `gorm:"serializer:json"`
}

type Tuplet struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	MeasureID uint `gorm:"index:idx_tuplet_measure"`
	TupletID  int
	Shape     string
	Implicit  bool
	Chords    []int `gorm:"serializer:json"`
	X, Y      float64
	W, H      float64
}

func toRecord(a *models.Analysis) *Analysis {
	rec := &Analysis{
		ID:        a.ID,
		Name:      a.Name,
		Source:    a.Source,
		Abnormal:  a.Abnormal,
		CreatedAt: a.CreatedAt,
	}
	for _, st := range a.Stacks {
		rec.StackCount++
		rec.Stacks = append(rec.Stacks, Stack{
			Index:         st.Index,
			TimeSignature: st.TimeSignature,
			Expected:      st.Expected,
			Actual:        st.Actual,
			Excess:        st.Excess,
			Abnormal:      st.Abnormal,
			EmptyStaves:   st.EmptyStaves,
		})
		for _, m := range st.Measures {
			rec.MeasureCount++
			rec.Measures = append(rec.Measures, measureRecord(m))
		}
	}
	return rec
}

func measureRecord(m models.MeasureResult) Measure {
	mr := Measure{Stack: m.Stack, Part: m.Part, Expected: m.Expected, Abnormal: m.Abnormal}
	for _, s := range m.Slots {
		mr.Slots = append(mr.Slots, Slot{SlotID: s.ID, Time: s.Time, XOffset: s.XOffset, Chords: s.Chords, Suspicious: s.Suspicious})
	}
	for _, v := range m.Voices {
		mr.Voices = append(mr.Voices, Voice{
			VoiceID:       v.ID,
			Family:        v.Family,
			Chords:        v.Chords,
			MeasureRest:   v.MeasureRest,
			Termination:   v.Termination,
			TimeSignature: v.TimeSignature,

			Duration:           v.Duration,
			DurationSansTuplet: v.DurationSansTuplet,
			Forwards:           v.Forwards,
			Strip:              v.Strip,
		})
	}
	for _, c := range m.Chords {
		mr.Chords = append(mr.Chords, Chord{
			ChordID:  c.ID,
			Kind:     c.Kind,
			Staff:    c.Staff,
			Voice:    c.Voice,
			Slot:     c.Slot,
			Time:     c.Time,
			Duration: c.Duration,
			Tuplet:   c.Tuplet,
			Keys:     c.Keys,
		})
	}
	for _, t := range m.Tuplets {
		mr.Tuplets = append(mr.Tuplets, Tuplet{
			TupletID: t.ID,
			Shape:    t.Shape,
			Implicit: t.Implicit,
			Chords:   t.Chords,
			X:        t.X, Y: t.Y, W: t.W, H: t.H,
		})
	}
	return mr
}

func (rec *Analysis) toModel() *models.Analysis {
	a := &models.Analysis{
		ID:        rec.ID,
		Name:      rec.Name,
		Source:    rec.Source,
		Abnormal:  rec.Abnormal,
		CreatedAt: rec.CreatedAt,
		Stacks:    make([]models.StackResult, 0, len(rec.Stacks)),
	}
	byStack := make(map[int][]models.MeasureResult)
	for _, m := range rec.Measures {
		byStack[m.Stack] = append(byStack[m.Stack], m.toModel())
	}
	for _, st := range rec.Stacks {
		a.Stacks = append(a.Stacks, models.StackResult{
			Index:         st.Index,
			TimeSignature: st.TimeSignature,
			Expected:      st.Expected,
			Actual:        st.Actual,
			Excess:        st.Excess,
			Abnormal:      st.Abnormal,
			EmptyStaves:   st.EmptyStaves,
			Measures:      byStack[st.Index],
		})
	}
	return a
}

func (m *Measure) toModel() models.MeasureResult {
	mr := models.MeasureResult{
		Stack:    m.Stack,
		Part:     m.Part,
		Expected: m.Expected,
		Abnormal: m.Abnormal,
		Slots:    make([]models.SlotResult, 0, len(m.Slots)),
		Voices:   make([]models.VoiceResult, 0, len(m.Voices)),
		Chords:   make([]models.ChordResult, 0, len(m.Chords)),
	}
	for _, s := range m.Slots {
		mr.Slots = append(mr.Slots, models.SlotResult{ID: s.SlotID, Time: s.Time, XOffset: s.XOffset, Chords: s.Chords, Suspicious: s.Suspicious})
	}
	for _, v := range m.Voices {
		mr.Voices = append(mr.Voices, models.VoiceResult{
			ID:            v.VoiceID,
			Family:        v.Family,
			Chords:        v.Chords,
			MeasureRest:   v.MeasureRest,
			Termination:   v.Termination,
			TimeSignature: v.TimeSignature,

			Duration:           v.Duration,
			DurationSansTuplet: v.DurationSansTuplet,
			Forwards:           v.Forwards,
			Strip:              v.Strip,
		})
	}
	for _, c := range m.Chords {
		mr.Chords = append(mr.Chords, models.ChordResult{
			ID:       c.ChordID,
			Kind:     c.Kind,
			Staff:    c.Staff,
			Voice:    c.Voice,
			Slot:     c.Slot,
			Time:     c.Time,
			Duration: c.Duration,
			Tuplet:   c.Tuplet,
			Keys:     c.Keys,
		})
	}
	for _, t := range m.Tuplets {
		mr.Tuplets = append(mr.Tuplets, models.TupletResult{
			ID:       t.TupletID,
			Shape:    t.Shape,
			Implicit: t.Implicit,
			Chords:   t.Chords,
			X:        t.X, Y: t.Y, W: t.W, H: t.H,
		})
	}
	return mr
}

func (rec *Analysis) summary() models.AnalysisSummary {
	return models.AnalysisSummary{
		ID:        rec.ID,
		Name:      rec.Name,
		Source:    rec.Source,
		Stacks:    rec.StackCount,
		Measures:  rec.MeasureCount,
		Abnormal:  rec.Abnormal,
		CreatedAt: rec.CreatedAt,
	}
}
