package export

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

const maxFrame = 8192

// DominantFrequency estimates the strongest frequency of the samples from a
// Hamming-windowed FFT, refined by parabolic interpolation around the peak.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	n := 1
	for n*2 <= len(samples) && n*2 <= maxFrame {
		n *= 2
	}
	if n < 64 {
		return 0
	}

	// centre the frame in the segment
	off := (len(samples) - n) / 2
	frame := make([]float64, n)
	copy(frame, samples[off:off+n])
	window.Apply(frame, window.Hamming)

	spectrum := fft.FFTReal(frame)
	mag := make([]float64, n/2)
	for i := range mag {
		mag[i] = cmplx.Abs(spectrum[i])
	}

	peak := 1
	for i := 2; i < len(mag)-1; i++ {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	if mag[peak] == 0 {
		return 0
	}

	bin := float64(peak)
	if peak > 0 && peak < len(mag)-1 {
		a, b, c := mag[peak-1], mag[peak], mag[peak+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin * float64(sampleRate) / float64(n)
}

// FrequencyKey is the nearest MIDI key of a frequency.
func FrequencyKey(freq float64) int {
	if freq <= 0 {
		return 0
	}
	return int(math.Round(69 + 12*math.Log2(freq/440)))
}

// PitchMismatch is an onset whose rendered audio does not sound any of the
// keys written at that time.
type PitchMismatch struct {
	Start    rational.Rational `json:"start"`
	Expected []int             `json:"expected"`
	Heard    int               `json:"heard"`
}

// CheckPitches listens to the middle half of each onset of a rendering and
// reports the onsets where the dominant key is not among the written ones.
func CheckPitches(samples []float64, notes []Note, opts WAVOptions) []PitchMismatch {
	opts = opts.withDefaults()
	rate := float64(opts.SampleRate)

	var out []PitchMismatch
	for i := 0; i < len(notes); {
		j := i
		keys := []int{}
		shortest := notes[i].Duration
		for j < len(notes) && notes[j].Start == notes[i].Start {
			keys = append(keys, notes[j].Key)
			shortest = rational.Min(shortest, notes[j].Duration)
			j++
		}

		start := opts.Seconds(notes[i].Start)
		dur := opts.Seconds(shortest)
		from := int((start + dur/4) * rate)
		to := min(int((start+3*dur/4)*rate), len(samples))
		if from < to {
			heard := FrequencyKey(DominantFrequency(samples[from:to], opts.SampleRate))
			if !containsKey(keys, heard) {
				out = append(out, PitchMismatch{Start: notes[i].Start, Expected: keys, Heard: heard})
			}
		}
		i = j
	}
	return out
}

func containsKey(keys []int, k int) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
