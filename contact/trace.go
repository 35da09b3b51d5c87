package contact

import (
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/ethaniccc/float32-cube/cube/trace"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hxnet/hxnet/registry"
)

// TactorRay is the sampling ray cast outward from a tactor.
type TactorRay struct {
	Peripheral PeripheralID
	Tactor     TactorID
	Origin     mgl32.Vec3
	// Direction must be normalised.
	Direction mgl32.Vec3
	Length    float32
}

// ObjectVolume is the box an object occupies in world space.
type ObjectVolume struct {
	Object registry.ID
	Box    cube.BBox
}

// TraceTactor casts a tactor ray against a set of volumes and returns a sample for the nearest one
// hit. A ray starting inside a volume yields a negative distance equal to its depth.
func TraceTactor(ray TactorRay, volumes []ObjectVolume) (Sample, bool) {
	var (
		best  Sample
		found bool
	)
	end := ray.Origin.Add(ray.Direction.Mul(ray.Length))
	for _, v := range volumes {
		var (
			point    mgl32.Vec3
			distance float32
		)
		if depth, inside := insideDepth(v.Box, ray.Origin); inside {
			point, distance = ray.Origin, -depth
		} else {
			result, ok := trace.BBoxIntercept(v.Box, ray.Origin, end)
			if !ok {
				continue
			}
			point = result.Position()
			distance = point.Sub(ray.Origin).Len()
		}
		if found && distance >= best.Distance {
			continue
		}
		best = Sample{
			Peripheral: ray.Peripheral,
			Tactor:     ray.Tactor,
			Direction:  ray.Direction,
			Object:     v.Object,
			Distance:   distance,
			HitPoint:   point,
			HitNormal:  faceNormal(v.Box, point),
			UV:         faceUV(v.Box, point),
		}
		found = true
	}
	return best, found
}

// Trace casts every ray against the volumes and records the resulting samples. It returns the
// number of samples recorded.
func (in *Interpreter) Trace(rays []TactorRay, volumes []ObjectVolume) int {
	n := 0
	for _, ray := range rays {
		s, ok := TraceTactor(ray, volumes)
		if !ok {
			continue
		}
		if err := in.AddSampleResult(s); err != nil {
			in.log.Debugf("dropping tactor sample: %v", err)
			continue
		}
		n++
	}
	return n
}

func insideDepth(bb cube.BBox, p mgl32.Vec3) (float32, bool) {
	lo, hi := bb.Min(), bb.Max()
	for i := 0; i < 3; i++ {
		if p[i] <= lo[i] || p[i] >= hi[i] {
			return 0, false
		}
	}
	depth := math32.Inf(1)
	for i := 0; i < 3; i++ {
		depth = math32.Min(depth, math32.Min(p[i]-lo[i], hi[i]-p[i]))
	}
	return depth, true
}

// faceNormal returns the outward normal of the face of bb closest to p.
func faceNormal(bb cube.BBox, p mgl32.Vec3) mgl32.Vec3 {
	lo, hi := bb.Min(), bb.Max()
	var (
		normal mgl32.Vec3
		best   = math32.Inf(1)
	)
	for i := 0; i < 3; i++ {
		if d := math32.Abs(p[i] - lo[i]); d < best {
			best = d
			normal = mgl32.Vec3{}
			normal[i] = -1
		}
		if d := math32.Abs(hi[i] - p[i]); d < best {
			best = d
			normal = mgl32.Vec3{}
			normal[i] = 1
		}
	}
	return normal
}

// faceUV maps p onto the two axes of its nearest face, each in [0, 1].
func faceUV(bb cube.BBox, p mgl32.Vec3) mgl32.Vec2 {
	lo, hi := bb.Min(), bb.Max()
	n := faceNormal(bb, p)
	var uv mgl32.Vec2
	j := 0
	for i := 0; i < 3 && j < 2; i++ {
		if n[i] != 0 {
			continue
		}
		if size := hi[i] - lo[i]; size > 0 {
			uv[j] = (p[i] - lo[i]) / size
		}
		j++
	}
	return uv
}
