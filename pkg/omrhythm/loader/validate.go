package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// ErrInvalidSystem wraps every decoding or validation failure of a document.
var ErrInvalidSystem = errors.New("invalid system document")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rational", func(fl validator.FieldLevel) bool {
		_, err := rational.Parse(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("timesig", func(fl validator.FieldLevel) bool {
		_, err := score.ParseTimeSignature(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints, then cross references within each
// measure: link, tie and tuplet targets must name chords of that measure.
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSystem, formatValidationError(err))
	}

	for _, st := range doc.Stacks {
		for _, md := range st.Measures {
			if err := checkReferences(st.Index, md); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidSystem, err)
			}
		}
	}
	return nil
}

func checkReferences(stack int, md MeasureDocument) error {
	ids := make(map[int]bool, len(md.Chords))
	for _, c := range md.Chords {
		ids[c.ID] = true
	}
	staves := make(map[int]bool, len(md.Staves))
	for _, s := range md.Staves {
		staves[s] = true
	}

	where := fmt.Sprintf("stack %d part %d", stack, md.Part)
	for _, c := range md.Chords {
		if !staves[c.Staff] {
			return fmt.Errorf("%s: chord %d on unknown staff %d", where, c.ID, c.Staff)
		}
		if c.TieTo != 0 && !ids[c.TieTo] {
			return fmt.Errorf("%s: chord %d tied to unknown chord %d", where, c.ID, c.TieTo)
		}
	}
	for _, l := range md.Links {
		if !ids[l.From] || !ids[l.To] {
			return fmt.Errorf("%s: %s link %d-%d names an unknown chord", where, l.Kind, l.From, l.To)
		}
	}
	for _, t := range md.Tuplets {
		if _, err := score.ParseShape(t.Shape); err != nil {
			return fmt.Errorf("%s: %v", where, err)
		}
		for _, id := range t.Chords {
			if !ids[id] {
				return fmt.Errorf("%s: tuplet %d names unknown chord %d", where, t.ID, id)
			}
		}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "rational":
		return fmt.Sprintf("%s: %q is not a fraction", field, e.Value())
	case "timesig":
		return fmt.Sprintf("%s: %q is not a time signature", field, e.Value())
	case "unique":
		return fmt.Sprintf("%s has duplicates", field)
	default:
		return fmt.Sprintf("%s failed %s", field, e.Tag())
	}
}
