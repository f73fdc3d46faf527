// Package lane implements fixed-width vectors of float32 and uint32 values
// that are operated on element-wise. Each vector holds [Width] values which map
// to a single SSE/NEON register. Operations are written as unrolled scalar
// loops which the compiler keeps in registers; there is no assembly, so the
// same code runs on every GOARCH.
package lane

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Width is the amount of scalar values in a lane.
const Width = 4

type (
	// F32 is a lane of float32 values.
	F32 [Width]float32
	// U32 is a lane of uint32 values.
	U32 [Width]uint32
	// Mask is the result of a lane-wise comparison.
	Mask [Width]bool
)

// Vec3 is a lane of 3D vectors stored as structure of arrays.
type Vec3 struct {
	X, Y, Z F32
}

// Splat returns a lane with all elements set to v.
func Splat(v float32) F32 { return F32{v, v, v, v} }

// SplatU returns a lane with all elements set to v.
func SplatU(v uint32) U32 { return U32{v, v, v, v} }

// SplatVec returns a lane with all elements set to v.
func SplatVec(v ms3.Vec) Vec3 {
	return Vec3{X: Splat(v.X), Y: Splat(v.Y), Z: Splat(v.Z)}
}

func Add(a, b F32) F32 {
	return F32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func Sub(a, b F32) F32 {
	return F32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func Mul(a, b F32) F32 {
	return F32{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Scale multiplies every element of a by k.
func Scale(k float32, a F32) F32 {
	return F32{k * a[0], k * a[1], k * a[2], k * a[3]}
}

// AddScalar adds k to every element of a.
func AddScalar(k float32, a F32) F32 {
	return F32{a[0] + k, a[1] + k, a[2] + k, a[3] + k}
}

func Neg(a F32) F32 {
	return F32{-a[0], -a[1], -a[2], -a[3]}
}

func Abs(a F32) F32 {
	return F32{math32.Abs(a[0]), math32.Abs(a[1]), math32.Abs(a[2]), math32.Abs(a[3])}
}

func Min(a, b F32) F32 {
	return F32{minf(a[0], b[0]), minf(a[1], b[1]), minf(a[2], b[2]), minf(a[3], b[3])}
}

func Max(a, b F32) F32 {
	return F32{maxf(a[0], b[0]), maxf(a[1], b[1]), maxf(a[2], b[2]), maxf(a[3], b[3])}
}

// MinScalar returns the element-wise minimum of a and k.
func MinScalar(a F32, k float32) F32 {
	return F32{minf(a[0], k), minf(a[1], k), minf(a[2], k), minf(a[3], k)}
}

// MaxScalar returns the element-wise maximum of a and k.
func MaxScalar(a F32, k float32) F32 {
	return F32{maxf(a[0], k), maxf(a[1], k), maxf(a[2], k), maxf(a[3], k)}
}

func Sqrt(a F32) F32 {
	return F32{math32.Sqrt(a[0]), math32.Sqrt(a[1]), math32.Sqrt(a[2]), math32.Sqrt(a[3])}
}

// Hypot returns sqrt(a*a+b*b) element-wise.
func Hypot(a, b F32) F32 {
	return Sqrt(Add(Mul(a, a), Mul(b, b)))
}

// LessEq returns a mask set where a<=b.
func LessEq(a, b F32) Mask {
	return Mask{a[0] <= b[0], a[1] <= b[1], a[2] <= b[2], a[3] <= b[3]}
}

// Inside returns a mask set where d<=0. The boundary is classified as inside.
func Inside(d F32) Mask {
	return Mask{d[0] <= 0, d[1] <= 0, d[2] <= 0, d[3] <= 0}
}

// Select returns a where m is set and b elsewhere.
func Select(m Mask, a, b F32) F32 {
	var r F32
	for i := range r {
		if m[i] {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// SelectU returns a where m is set and b elsewhere.
func SelectU(m Mask, a, b U32) U32 {
	var r U32
	for i := range r {
		if m[i] {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// MaxU returns the element-wise maximum of a and b.
func MaxU(a, b U32) U32 {
	return U32{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2]), max(a[3], b[3])}
}

// Any reports whether any element of m is set.
func (m Mask) Any() bool { return m[0] || m[1] || m[2] || m[3] }

// All reports whether all elements of m are set.
func (m Mask) All() bool { return m[0] && m[1] && m[2] && m[3] }

// Map applies fn to every element of a. Used for functions with no
// lane-wise implementation, such as trigonometric functions.
func Map(a F32, fn func(float32) float32) F32 {
	return F32{fn(a[0]), fn(a[1]), fn(a[2]), fn(a[3])}
}

func AddVec(a, b Vec3) Vec3 {
	return Vec3{X: Add(a.X, b.X), Y: Add(a.Y, b.Y), Z: Add(a.Z, b.Z)}
}

func SubVec(a, b Vec3) Vec3 {
	return Vec3{X: Sub(a.X, b.X), Y: Sub(a.Y, b.Y), Z: Sub(a.Z, b.Z)}
}

// MulVec multiplies every vector in v by the lane k.
func MulVec(k F32, v Vec3) Vec3 {
	return Vec3{X: Mul(k, v.X), Y: Mul(k, v.Y), Z: Mul(k, v.Z)}
}

// ScaleVec multiplies every vector in v by k.
func ScaleVec(k float32, v Vec3) Vec3 {
	return Vec3{X: Scale(k, v.X), Y: Scale(k, v.Y), Z: Scale(k, v.Z)}
}

// AbsVec returns the element-wise absolute value of v.
func AbsVec(v Vec3) Vec3 {
	return Vec3{X: Abs(v.X), Y: Abs(v.Y), Z: Abs(v.Z)}
}

// Dot returns the dot product of every vector pair in a and b.
func Dot(a, b Vec3) F32 {
	return Add(Add(Mul(a.X, b.X), Mul(a.Y, b.Y)), Mul(a.Z, b.Z))
}

// Norm2 returns the squared length of every vector in v.
func Norm2(v Vec3) F32 { return Dot(v, v) }

// Norm returns the length of every vector in v.
func Norm(v Vec3) F32 { return Sqrt(Dot(v, v)) }

// At returns the i'th vector of v.
func (v *Vec3) At(i int) ms3.Vec {
	return ms3.Vec{X: v.X[i], Y: v.Y[i], Z: v.Z[i]}
}

// Set sets the i'th vector of v.
func (v *Vec3) Set(i int, p ms3.Vec) {
	v.X[i] = p.X
	v.Y[i] = p.Y
	v.Z[i] = p.Z
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
