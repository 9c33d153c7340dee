package audio

import "math"

// ApplyGain returns a scaled copy of samples. Values are not clamped here so the
// silence check sees the true post-gain magnitude.
func ApplyGain(samples []float32, gain float64) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(float64(s) * gain)
	}
	return out
}

// Peak returns the maximum absolute sample value, or 0 for an empty slice.
func Peak(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	return peak
}
