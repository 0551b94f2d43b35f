// Package loader reads recognized systems from YAML or JSON documents and
// builds the score structures the rhythm engine works on.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension, YAML by default.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, validates and builds the system stored at path.
func Load(path string) (*score.System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open system file: %w", err)
	}
	defer f.Close()

	sys, err := Decode(f, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sys.Name == "" {
		sys.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sys, nil
}

// Parse is Decode over a byte slice.
func Parse(data []byte, format Format) (*score.System, error) {
	return Decode(bytes.NewReader(data), format)
}

// Decode reads one document and builds its system.
func Decode(r io.Reader, format Format) (*score.System, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSystem, err)
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return Build(&doc)
}

// Build converts a validated document.
func Build(doc *Document) (*score.System, error) {
	sys := &score.System{
		Name:      doc.Name,
		Interline: doc.Interline,
		Merged:    doc.Merged,
		Stacks:    make([]*score.Stack, 0, len(doc.Stacks)),
	}

	for _, sd := range doc.Stacks {
		st := &score.Stack{Index: sd.Index}
		if sd.TimeSignature != "" {
			ts, err := score.ParseTimeSignature(sd.TimeSignature)
			if err != nil {
				return nil, fmt.Errorf("%w: stack %d: %v", ErrInvalidSystem, sd.Index, err)
			}
			st.TimeSig = &ts
		}
		expected, err := rational.ParsePtr(sd.Expected)
		if err != nil {
			return nil, fmt.Errorf("%w: stack %d expected: %v", ErrInvalidSystem, sd.Index, err)
		}
		st.Expected = expected

		for _, md := range sd.Measures {
			m, err := buildMeasure(sd.Index, md, doc)
			if err != nil {
				return nil, fmt.Errorf("%w: stack %d part %d: %v", ErrInvalidSystem, sd.Index, md.Part, err)
			}
			st.Measures = append(st.Measures, m)
		}
		sys.Stacks = append(sys.Stacks, st)
	}
	return sys, nil
}

func buildMeasure(stack int, md MeasureDocument, doc *Document) (*score.Measure, error) {
	m := &score.Measure{
		Stack:        stack,
		Part:         md.Part,
		Left:         md.Left,
		Staves:       append([]int(nil), md.Staves...),
		MergedStaves: md.Merged || doc.Merged,
		Scale:        score.Scale{Interline: doc.Interline},
	}

	var err error
	if m.Expected, err = rational.ParsePtr(md.Expected); err != nil {
		return nil, err
	}
	if md.BeatUnit != "" {
		if m.BeatUnit, err = rational.Parse(md.BeatUnit); err != nil {
			return nil, err
		}
	}

	for _, cd := range md.Chords {
		c, err := buildChord(md.Part, cd)
		if err != nil {
			return nil, err
		}
		m.Chords = append(m.Chords, c)
	}

	for _, ld := range md.Links {
		kind, err := score.ParseLinkKind(ld.Kind)
		if err != nil {
			return nil, err
		}
		m.Links = append(m.Links, score.Link{From: ld.From, To: ld.To, Kind: kind})
	}

	for _, td := range md.Tuplets {
		shape, err := score.ParseShape(td.Shape)
		if err != nil {
			return nil, err
		}
		m.AddTuplet(&score.Tuplet{
			ID:     td.ID,
			Shape:  shape,
			Chords: append([]int(nil), td.Chords...),
			Bounds: rect(td.Box),
		})
	}
	return m, nil
}

func buildChord(part int, cd ChordDocument) (*score.Chord, error) {
	kind, err := score.ParseKind(cd.Kind)
	if err != nil {
		return nil, err
	}
	value, err := rational.Parse(cd.Value)
	if err != nil {
		return nil, fmt.Errorf("chord %d value: %w", cd.ID, err)
	}

	c := &score.Chord{
		ID:       cd.ID,
		Kind:     kind,
		Staff:    cd.Staff,
		Part:     part,
		Box:      rect(cd.Box),
		HeadX:    cd.Head.X,
		HeadY:    cd.Head.Y,
		StemID:   cd.StemID,
		RootStem: cd.RootStem,
		Heads:    append([]int(nil), cd.Heads...),
		Beam:     cd.Beam,
		CueBeam:  cd.CueBeam,
		Pitch:    cd.Pitch,
		Value:    value,
		Dots:     cd.Dots,
		TieTo:    cd.TieTo,
		Keys:     append([]int(nil), cd.Keys...),
	}
	switch cd.Stem {
	case "up":
		c.Stem = score.StemUp
	case "down":
		c.Stem = score.StemDown
	}

	// Recognizers may omit the head position of rests; use the box centre.
	if c.HeadX == 0 && c.HeadY == 0 {
		c.HeadX, c.HeadY = c.Box.CenterX(), c.Box.CenterY()
	}
	return c, nil
}

func rect(b BoxDocument) score.Rect {
	return score.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}
