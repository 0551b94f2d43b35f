// Package profile holds recognition profiles: the geometric tolerances and
// voice distance weights tuned for one family of scanned scores.
package profile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/mapper"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

var ErrInvalidProfile = errors.New("invalid profile")

var validate = validator.New()

type Profile struct {
	Name            string           `yaml:"name" validate:"required"`
	ImplicitTuplets bool             `yaml:"implicitTuplets"`
	Tolerances      score.Tolerances `yaml:"tolerances"`
	Weights         mapper.Weights   `yaml:"weights"`
}

// Default is the profile the engine was tuned with.
func Default() *Profile {
	return &Profile{
		Name:            "default",
		ImplicitTuplets: true,
		Tolerances:      score.DefaultTolerances(),
		Weights:         mapper.DefaultWeights(),
	}
}

// Load reads a YAML profile. Fields absent from the file keep their default.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%w: %s failed %s %s", ErrInvalidProfile, e.Namespace(), e.Tag(), e.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// Save writes the profile as YAML.
func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Options builds the rhythm options of the profile. The logger is left unset.
func (p *Profile) Options() rhythm.Options {
	return rhythm.Options{
		Tolerances:      p.Tolerances,
		Weights:         p.Weights,
		ImplicitTuplets: p.ImplicitTuplets,
	}
}
