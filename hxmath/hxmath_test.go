package hxmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestLerpVec3(t *testing.T) {
	got := LerpVec3(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 2, -4}, 0.5)
	if !got.ApproxEqual(mgl64.Vec3{0.5, 1, -2}) {
		t.Fatalf("unexpected lerp result %v", got)
	}
}

func TestSlerpQuatShortestArc(t *testing.T) {
	a := mgl64.QuatIdent()
	b := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	half := SlerpQuat(a, b, 0.5)
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	if !half.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("expected %v, got %v", want, half)
	}

	// The negated quaternion is the same rotation and must give the same midpoint.
	flipped := SlerpQuat(a, b.Scale(-1), 0.5)
	if !flipped.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("expected shortest arc %v, got %v", want, flipped)
	}
}

func TestClampFloat(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0},
		{0.25, 0.25},
		{3, 1},
	}
	for _, c := range cases {
		if got := ClampFloat(c.in, 0, 1); got != c.want {
			t.Fatalf("ClampFloat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRetention(t *testing.T) {
	if Retention(0.1, 0) != 0 {
		t.Fatalf("non-positive time constant must not retain")
	}
	r := Retention(1.0/90.0, 0.05)
	if r <= 0.79 || r >= 0.81 {
		t.Fatalf("unexpected retention %v", r)
	}
}

func TestAverageVec3(t *testing.T) {
	got := AverageVec3([]mgl64.Vec3{{0, 0, 0}, {2, 4, 6}})
	if !got.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("unexpected centroid %v", got)
	}
	if AverageVec3(nil) != (mgl64.Vec3{}) {
		t.Fatalf("empty centroid must be zero")
	}
}
