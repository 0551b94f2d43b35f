package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mjibson/go-dsp/window"

	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

const bitDepth = 16

type WAVOptions struct {
	SampleRate int
	Tempo      float64 // quarter notes per minute
	Amplitude  float64 // per note, before normalization
}

func DefaultWAVOptions() WAVOptions {
	return WAVOptions{SampleRate: 22050, Tempo: 120, Amplitude: 0.3}
}

func (o WAVOptions) withDefaults() WAVOptions {
	def := DefaultWAVOptions()
	if o.SampleRate <= 0 {
		o.SampleRate = def.SampleRate
	}
	if o.Tempo <= 0 {
		o.Tempo = def.Tempo
	}
	if o.Amplitude <= 0 {
		o.Amplitude = def.Amplitude
	}
	return o
}

// Seconds converts a whole-note position to seconds at the given tempo.
func (o WAVOptions) Seconds(r rational.Rational) float64 {
	return r.Float64() * 4 * 60 / o.Tempo
}

// KeyFrequency is the equal-tempered frequency of a MIDI key, A4 = 440 Hz.
func KeyFrequency(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}

// Render synthesizes the notes as Hann-shaped sine tones, mono, in [-1, 1].
func Render(notes []Note, length rational.Rational, opts WAVOptions) []float64 {
	opts = opts.withDefaults()
	rate := float64(opts.SampleRate)
	out := make([]float64, int(math.Ceil(opts.Seconds(length)*rate)))

	for _, n := range notes {
		first := int(opts.Seconds(n.Start) * rate)
		count := int(opts.Seconds(n.Duration) * rate)
		if count < 2 || first >= len(out) {
			continue
		}
		env := window.Hann(count)
		step := 2 * math.Pi * KeyFrequency(n.Key) / rate
		for i := 0; i < count && first+i < len(out); i++ {
			out[first+i] += opts.Amplitude * env[i] * math.Sin(step*float64(i))
		}
	}

	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 1 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// RenderAnalysis renders the whole analysis timeline.
func RenderAnalysis(a *models.Analysis, opts WAVOptions) ([]float64, error) {
	notes, length, err := Timeline(a)
	if err != nil {
		return nil, err
	}
	return Render(notes, length, opts), nil
}

// WriteWAV encodes mono samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)

	scale := float64(int(1)<<(bitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}
	return nil
}

// SaveWAV renders the analysis into a WAV file at path.
func SaveWAV(path string, a *models.Analysis, opts WAVOptions) error {
	opts = opts.withDefaults()
	samples, err := RenderAnalysis(a, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav file: %w", err)
	}
	if err := WriteWAV(f, samples, opts.SampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadWAV decodes a PCM WAV file, mixing channels down to mono in [-1, 1].
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading wav samples: %w", err)
	}

	chans := max(1, buf.Format.NumChannels)
	maxVal := float64(int(1) << (uint(dec.BitDepth) - 1))
	samples := make([]float64, len(buf.Data)/chans)
	for i := range samples {
		var sum float64
		for c := 0; c < chans; c++ {
			sum += float64(buf.Data[i*chans+c])
		}
		samples[i] = sum / float64(chans) / maxVal
	}
	return samples, buf.Format.SampleRate, nil
}
