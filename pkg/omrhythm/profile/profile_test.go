package profile

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsDefaults(t *testing.T) {
	p, err := Parse([]byte(`
name: dense
implicitTuplets: false
tolerances:
  maxSlotDxLow: 0.3
weights:
  noLink: 10
`))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "dense", p.Name)
	assert.False(t, p.ImplicitTuplets)
	assert.Equal(t, 0.3, p.Tolerances.MaxSlotDxLow)
	assert.Equal(t, def.Tolerances.MaxSlotDxHigh, p.Tolerances.MaxSlotDxHigh)
	assert.Equal(t, 10, p.Weights.NoLink)
	assert.Equal(t, def.Weights.NoFit, p.Weights.NoFit)

	opts := p.Options()
	assert.False(t, opts.ImplicitTuplets)
	assert.Equal(t, p.Weights, opts.Weights)
	assert.Nil(t, opts.Logger)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"low above high", "tolerances: {maxSlotDxLow: 2.0}"},
		{"tiers out of order", "weights: {noFit: 10}"},
		{"negative gap", "tolerances: {maxAdjacencyXGap: -1}"},
		{"empty name", "name: ''"},
		{"not yaml", "weights: [1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProfile), "got %v", err)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	p := Default()
	p.Name = "scan-300dpi"
	p.Tolerances.MaxMergeDx = 0.8
	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
