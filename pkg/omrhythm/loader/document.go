package loader

// Document is the on-disk form of a recognized system, written by the
// recognizer as YAML or JSON. Rational values are "n/d" strings.
type Document struct {
	Name      string          `yaml:"name" json:"name" validate:"required"`
	Interline float64         `yaml:"interline" json:"interline" validate:"gte=0"`
	Merged    bool            `yaml:"merged" json:"merged"`
	Stacks    []StackDocument `yaml:"stacks" json:"stacks" validate:"required,min=1,dive"`
}

type StackDocument struct {
	Index         int               `yaml:"index" json:"index" validate:"gt=0"`
	TimeSignature string            `yaml:"timeSignature" json:"timeSignature" validate:"omitempty,timesig"`
	Expected      string            `yaml:"expected" json:"expected" validate:"omitempty,rational"`
	Measures      []MeasureDocument `yaml:"measures" json:"measures" validate:"required,min=1,dive"`
}

type MeasureDocument struct {
	Part     int              `yaml:"part" json:"part" validate:"gt=0"`
	Left     float64          `yaml:"left" json:"left"`
	Staves   []int            `yaml:"staves" json:"staves" validate:"required,min=1,unique,dive,gt=0"`
	Merged   bool             `yaml:"merged" json:"merged"`
	Expected string           `yaml:"expected" json:"expected" validate:"omitempty,rational"`
	BeatUnit string           `yaml:"beatUnit" json:"beatUnit" validate:"omitempty,rational"`
	Chords   []ChordDocument  `yaml:"chords" json:"chords" validate:"unique=ID,dive"`
	Links    []LinkDocument   `yaml:"links" json:"links" validate:"dive"`
	Tuplets  []TupletDocument `yaml:"tuplets" json:"tuplets" validate:"dive"`
}

type BoxDocument struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	W float64 `yaml:"w" json:"w" validate:"gte=0"`
	H float64 `yaml:"h" json:"h" validate:"gte=0"`
}

type PointDocument struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

type ChordDocument struct {
	ID       int           `yaml:"id" json:"id" validate:"gt=0"`
	Kind     string        `yaml:"kind" json:"kind" validate:"omitempty,oneof=head rest measure-rest whole-rest"`
	Staff    int           `yaml:"staff" json:"staff" validate:"gt=0"`
	Box      BoxDocument   `yaml:"box" json:"box"`
	Head     PointDocument `yaml:"head" json:"head"`
	Stem     string        `yaml:"stem" json:"stem" validate:"omitempty,oneof=up down none"`
	StemID   int           `yaml:"stemId" json:"stemId" validate:"gte=0"`
	RootStem int           `yaml:"rootStem" json:"rootStem" validate:"gte=0"`
	Heads    []int         `yaml:"heads" json:"heads"`
	Beam     int           `yaml:"beam" json:"beam" validate:"gte=0"`
	CueBeam  bool          `yaml:"cueBeam" json:"cueBeam"`
	Pitch    int           `yaml:"pitch" json:"pitch"`
	Value    string        `yaml:"value" json:"value" validate:"required,rational"`
	Dots     int           `yaml:"dots" json:"dots" validate:"gte=0,lte=3"`
	TieTo    int           `yaml:"tieTo" json:"tieTo" validate:"gte=0"`
	Keys     []int         `yaml:"keys" json:"keys" validate:"dive,gte=0,lte=127"`
}

type LinkDocument struct {
	From int    `yaml:"from" json:"from" validate:"gt=0"`
	To   int    `yaml:"to" json:"to" validate:"gt=0,nefield=From"`
	Kind string `yaml:"kind" json:"kind" validate:"required,oneof=same-voice separate-voice same-time separate-time"`
}

type TupletDocument struct {
	ID     int         `yaml:"id" json:"id" validate:"gte=0"`
	Shape  string      `yaml:"shape" json:"shape" validate:"required"`
	Chords []int       `yaml:"chords" json:"chords" validate:"required,min=2"`
	Box    BoxDocument `yaml:"box" json:"box"`
}
