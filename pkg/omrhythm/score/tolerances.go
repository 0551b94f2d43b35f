package score

// Tolerances are the geometric thresholds used by slot retrieval, expressed
// as fractions of the staff interline. They are tuned per recognition profile.
type Tolerances struct {
	MaxSlotDxHigh      float64 `yaml:"maxSlotDxHigh" json:"maxSlotDxHigh" validate:"gt=0"`
	MaxSlotDxLow       float64 `yaml:"maxSlotDxLow" json:"maxSlotDxLow" validate:"gt=0,ltefield=MaxSlotDxHigh"`
	MaxMergeDx         float64 `yaml:"maxMergeDx" json:"maxMergeDx" validate:"gt=0"`
	MaxAdjacencyXGap   float64 `yaml:"maxAdjacencyXGap" json:"maxAdjacencyXGap" validate:"gte=0"`
	MaxVerticalOverlap float64 `yaml:"maxVerticalOverlap" json:"maxVerticalOverlap" validate:"gte=0"`
}

// DefaultTolerances mirrors the values the recognizer was tuned with.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MaxSlotDxHigh:      1.1,
		MaxSlotDxLow:       0.5,
		MaxMergeDx:         1.0,
		MaxAdjacencyXGap:   0.4,
		MaxVerticalOverlap: 0.25,
	}
}

// Scale converts interline fractions to pixels.
type Scale struct {
	Interline float64
}

const defaultInterline = 20.0

func (s Scale) interline() float64 {
	if s.Interline <= 0 {
		return defaultInterline
	}
	return s.Interline
}

// Pixels converts an interline fraction to pixels.
func (s Scale) Pixels(fraction float64) float64 {
	return fraction * s.interline()
}

// Fraction converts a pixel distance to interline units.
func (s Scale) Fraction(pixels float64) float64 {
	return pixels / s.interline()
}
