package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/softsim/internal/sim"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Trace returns one coordinate of one particle across frames. Frames that
// do not contain the particle are skipped.
func Trace(frames []sim.Frame, body, particle int, axis Axis) []float64 {
	out := make([]float64, 0, len(frames))
	for _, f := range frames {
		if body >= len(f.Positions) || particle >= len(f.Positions[body]) {
			continue
		}
		out = append(out, f.Positions[body][particle][axis])
	}
	return out
}

// Times returns the timestamps of frames.
func Times(frames []sim.Frame) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.Time
	}
	return out
}

// PowerSpectrum returns the magnitudes of the first half of the spectrum
// of data with its mean removed.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest bin above
// DC, or 0 when data has no oscillation.
func DominantFrequency(data []float64, sampleDt float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || sampleDt <= 0 {
		return 0
	}
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	if ps[best] < 1e-12 {
		return 0
	}
	return float64(best) / (float64(len(data)) * sampleDt)
}

// PhaseTrace pairs each sample with its central-difference velocity. The
// end samples use one-sided differences.
func PhaseTrace(data []float64, sampleDt float64) (pos, vel []float64) {
	n := len(data)
	if n < 2 || sampleDt <= 0 {
		return nil, nil
	}
	pos = append([]float64(nil), data...)
	vel = make([]float64, n)
	vel[0] = (data[1] - data[0]) / sampleDt
	vel[n-1] = (data[n-1] - data[n-2]) / sampleDt
	for i := 1; i < n-1; i++ {
		vel[i] = (data[i+1] - data[i-1]) / (2 * sampleDt)
	}
	return pos, vel
}
