package models

import "time"

// Analysis is the rhythm result of one system, as stored and served.
// Rational values are written in their "n/d" form, empty when unknown.
type Analysis struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Source    string        `json:"source"`
	Abnormal  bool          `json:"abnormal"`
	CreatedAt time.Time     `json:"created_at"`
	Stacks    []StackResult `json:"stacks"`
}

// Measures flattens the measures of every stack.
func (a *Analysis) Measures() []MeasureResult {
	var out []MeasureResult
	for _, st := range a.Stacks {
		out = append(out, st.Measures...)
	}
	return out
}

type StackResult struct {
	Index         int             `json:"index"`
	TimeSignature string          `json:"time_signature,omitempty"`
	Expected      string          `json:"expected,omitempty"`
	Actual        string          `json:"actual,omitempty"`
	Excess        string          `json:"excess,omitempty"`
	Abnormal      bool            `json:"abnormal"`
	EmptyStaves   []EmptyStaff    `json:"empty_staves,omitempty"`
	Measures      []MeasureResult `json:"measures"`
}

type EmptyStaff struct {
	Part  int `json:"part"`
	Staff int `json:"staff"`
}

type MeasureResult struct {
	Stack    int            `json:"stack"`
	Part     int            `json:"part"`
	Expected string         `json:"expected,omitempty"`
	Abnormal bool           `json:"abnormal"`
	Slots    []SlotResult   `json:"slots"`
	Voices   []VoiceResult  `json:"voices"`
	Chords   []ChordResult  `json:"chords"`
	Tuplets  []TupletResult `json:"tuplets,omitempty"`
}

type SlotResult struct {
	ID         int     `json:"id"`
	Time       string  `json:"time,omitempty"`
	XOffset    float64 `json:"x_offset"`
	Chords     []int   `json:"chords"`
	Suspicious bool    `json:"suspicious,omitempty"`
}

type VoiceResult struct {
	ID            int    `json:"id"`
	Family        string `json:"family"`
	Chords        []int  `json:"chords"`
	MeasureRest   int    `json:"measure_rest,omitempty"`
	Termination   string `json:"termination,omitempty"`
	TimeSignature string `json:"time_signature,omitempty"`

	Duration           string    `json:"duration,omitempty"`
	DurationSansTuplet string    `json:"duration_sans_tuplet,omitempty"`
	Forwards           []Forward `json:"forwards,omitempty"`
	Strip              string    `json:"strip,omitempty"`
}

// Forward is a span where the voice is silent without any rest drawn.
type Forward struct {
	After    int    `json:"after"`
	Start    string `json:"start"`
	Duration string `json:"duration"`
}

type ChordResult struct {
	ID       int    `json:"id"`
	Kind     string `json:"kind"`
	Staff    int    `json:"staff"`
	Voice    int    `json:"voice"`
	Slot     int    `json:"slot"`
	Time     string `json:"time,omitempty"`
	Duration string `json:"duration"`
	Tuplet   int    `json:"tuplet,omitempty"`
	Keys     []int  `json:"keys,omitempty"`
}

type TupletResult struct {
	ID       int     `json:"id"`
	Shape    string  `json:"shape"`
	Implicit bool    `json:"implicit"`
	Chords   []int   `json:"chords"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
}
