package contact

import "github.com/chewxy/math32"

// minCompressionScale keeps a saturated filter able to recover.
const minCompressionScale = 1e-6

// CompressionFilter scales the tactor requests of one peripheral so that they stay within the
// travel of the hardware. The scale shrinks quickly while any request overshoots and grows back
// slowly once every request fits with room to spare.
type CompressionFilter struct {
	params CompressionParameters
	scale  float32
}

// NewCompressionFilter creates a filter with a scale of 1.
func NewCompressionFilter(params CompressionParameters) *CompressionFilter {
	if params.AttackRatio <= 0 || params.AttackRatio > 1 {
		params.AttackRatio = DefaultCompressionParameters().AttackRatio
	}
	if params.ReleaseRatio < 1 {
		params.ReleaseRatio = DefaultCompressionParameters().ReleaseRatio
	}
	params.Headroom = math32.Max(0, math32.Min(1, params.Headroom))
	return &CompressionFilter{params: params, scale: 1}
}

// Scale returns the current compression scale, in (0, 1].
func (f *CompressionFilter) Scale() float32 {
	return f.scale
}

// Apply updates the scale from this tick's raw requests and returns the compressed heights. raw and
// limits are parallel slices of requests and the maximum travel of the tactor making each request.
func (f *CompressionFilter) Apply(raw, limits []float32) []float32 {
	overshoot, comfortable := false, true
	for i, r := range raw {
		if r > limits[i] {
			overshoot = true
		}
		if r > limits[i]*(1-f.params.Headroom) {
			comfortable = false
		}
	}
	switch {
	case overshoot:
		f.scale = math32.Max(minCompressionScale, f.scale*f.params.AttackRatio)
	case comfortable:
		f.scale = math32.Min(1, f.scale*f.params.ReleaseRatio)
	}

	out := make([]float32, len(raw))
	for i, r := range raw {
		out[i] = math32.Max(0, math32.Min(r*f.scale, limits[i]))
	}
	return out
}

// Reset restores a scale of 1.
func (f *CompressionFilter) Reset() {
	f.scale = 1
}
