package hxmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Lerp linearly interpolates between a and b.
func Lerp(a, b, alpha float64) float64 {
	return a + (b-a)*alpha
}

// LerpVec3 linearly interpolates between two vectors.
func LerpVec3(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(alpha))
}

// SlerpQuat spherically interpolates between two orientations along the shortest arc.
func SlerpQuat(a, b mgl64.Quat, alpha float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, alpha)
}

// ClampFloat clamps num to [min, max].
func ClampFloat(num, min, max float64) float64 {
	if num < min {
		return min
	}
	return math.Min(num, max)
}

// InverseLerp returns where v lies between a and b. It returns 0 when the range is empty.
func InverseLerp(a, b, v float64) float64 {
	if b-a <= 0 {
		return 0
	}
	return (v - a) / (b - a)
}

// AverageVec3 returns the centroid of the given points.
func AverageVec3(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// Retention returns the per-step retention factor of an exponential decay with time constant tau.
func Retention(dt, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	return math.Exp(-dt / tau)
}

// ApproxEqual reports whether a and b differ by no more than epsilon.
func ApproxEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Sum ...
func Sum(nums []float64) (result float64) {
	for _, v := range nums {
		result += v
	}
	return result
}

// Mean ...
func Mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	return Sum(nums) / float64(len(nums))
}
