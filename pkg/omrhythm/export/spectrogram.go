package export

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
)

// SaveSpectrogram draws a magnitude spectrogram of the samples to a PNG file.
func SaveSpectrogram(path string, samples []float64, sampleRate, width, height int) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to draw")
	}
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 256
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false, // hamming window
		false, // fft
		true,  // magnitude
		false, // linear scale
	)

	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving spectrogram: %w", err)
	}
	return nil
}
