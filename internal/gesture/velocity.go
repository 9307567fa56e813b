package gesture

import "math"

// VelocityEstimator sizes dots from how far the gesture moved since the
// previous accepted position. One estimator is shared by every source.
type VelocityEstimator struct {
	baseRadius float64
	maxRadius  float64

	previous    Position
	hasPrevious bool
}

// NewVelocityEstimator returns an estimator whose radii stay within
// [baseRadius, maxRadius].
func NewVelocityEstimator(baseRadius, maxRadius float64) *VelocityEstimator {
	return &VelocityEstimator{baseRadius: baseRadius, maxRadius: maxRadius}
}

// Estimate returns the radius for current and remembers it for next time.
func (v *VelocityEstimator) Estimate(current Position) float64 {
	velocity := 1.0
	if v.hasPrevious {
		dist := math.Hypot(current.X-v.previous.X, current.Y-v.previous.Y)
		// log keeps large jumps from blowing up the radius
		velocity = math.Log(dist + 1)
	}
	v.previous = current
	v.hasPrevious = true

	radius := v.baseRadius + math.Pow(velocity, 1.2)*2
	return math.Max(v.baseRadius, math.Min(radius, v.maxRadius))
}
