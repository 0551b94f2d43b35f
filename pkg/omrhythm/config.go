package omrhythm

import "github.com/himanishpuri/omrhythm/pkg/omrhythm/profile"

type Config struct {
	DBPath     string
	ExportDir  string
	SampleRate int
	Tempo      float64
	Logger     Logger
	Storage    Storage
	Profile    *profile.Profile

	implicitTuplets *bool
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithExportDir(dir string) Option {
	return func(c *Config) {
		c.ExportDir = dir
	}
}

// WithSampleRate sets the sample rate of WAV auditions.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithTempo sets the playback tempo of exports, in quarter notes per minute.
func WithTempo(bpm float64) Option {
	return func(c *Config) {
		c.Tempo = bpm
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithProfile(p *profile.Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

// WithImplicitTuplets overrides the profile setting.
func WithImplicitTuplets(enabled bool) Option {
	return func(c *Config) {
		c.implicitTuplets = &enabled
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:     "omrhythm.sqlite3",
		ExportDir:  "exports",
		SampleRate: 22050,
		Tempo:      120,
		Logger:     nil,
		Profile:    profile.Default(),
	}
}
