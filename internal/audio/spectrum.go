package audio

import (
	"fmt"
	"math"

	"github.com/argusdusty/gofft"
)

// Spectrum returns the Hann-windowed magnitude spectrum of frame averaged
// into bands, lowest frequencies first. The frame is zero-padded to a
// power of two.
func Spectrum(frame []float64, bands int) ([]float64, error) {
	if bands <= 0 || len(frame) == 0 {
		return nil, nil
	}

	size := nextPow2(len(frame))
	windowed := make([]float64, size)
	copy(windowed, applyHann(frame))

	coeffs := gofft.Float64ToComplex128Array(windowed)
	if err := gofft.FFT(coeffs); err != nil {
		return nil, fmt.Errorf("failed to compute FFT: %w", err)
	}

	// Positive frequencies only
	half := size / 2
	if half == 0 {
		return nil, nil
	}
	bands = min(bands, half)
	binsPerBand := half / bands

	magnitudes := make([]float64, bands)
	for band := 0; band < bands; band++ {
		start := band * binsPerBand
		var sum float64
		for i := start; i < start+binsPerBand; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		magnitudes[band] = sum / float64(binsPerBand)
	}
	return magnitudes, nil
}

// applyHann applies a Hann window to the input data
func applyHann(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	if n == 1 {
		copy(windowed, data)
		return windowed
	}
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * window
	}
	return windowed
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
