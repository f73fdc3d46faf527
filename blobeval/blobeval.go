// Package blobeval evaluates compiled BlobTrees ([blobsdf.SoA]) over batches
// of points laid out in lanes, and derives normals, ambient occlusion and
// surface projections from repeated evaluations.
package blobeval

import (
	"errors"

	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
)

const (
	// MaxPackets is the maximum amount of lanes in a [Batch].
	MaxPackets = 256
	// MaxPoints is the maximum amount of points evaluated in a single call.
	MaxPoints = MaxPackets * lane.Width
	// DistanceInfinite is the distance of points that no shape has been evaluated at.
	DistanceInfinite float32 = 1e20
)

var (
	ErrNilTree      = errors.New("nil compiled tree")
	ErrEmptyTree    = errors.New("empty compiled tree")
	ErrBatchSize    = errors.New("point count out of range")
	ErrInvalidQuery = errors.New("invalid query box")
	ErrNilResult    = errors.New("nil result")
	ErrShortBuffer  = errors.New("output buffer shorter than batch")

	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// Batch is a structure of arrays of up to [MaxPoints] points.
// Point i lives in lane i/[lane.Width], element i%[lane.Width].
type Batch struct {
	X, Y, Z [MaxPackets]lane.F32
	// Count is the amount of valid points.
	Count int
}

// Packets returns the amount of lanes holding valid points.
func (b *Batch) Packets() int {
	return (b.Count + lane.Width - 1) / lane.Width
}

// At returns the i'th point.
func (b *Batch) At(i int) ms3.Vec {
	p, e := i/lane.Width, i%lane.Width
	return ms3.Vec{X: b.X[p][e], Y: b.Y[p][e], Z: b.Z[p][e]}
}

// Set sets the i'th point. It does not modify Count.
func (b *Batch) Set(i int, v ms3.Vec) {
	p, e := i/lane.Width, i%lane.Width
	b.X[p][e] = v.X
	b.Y[p][e] = v.Y
	b.Z[p][e] = v.Z
}

// Append adds a point to the batch. It returns false if the batch is full.
func (b *Batch) Append(v ms3.Vec) bool {
	if b.Count >= MaxPoints {
		return false
	}
	b.Set(b.Count, v)
	b.Count++
	return true
}

// SetPoints replaces the contents of the batch with pts.
func (b *Batch) SetPoints(pts []ms3.Vec) error {
	if len(pts) > MaxPoints {
		return ErrBatchSize
	}
	for i, p := range pts {
		b.Set(i, p)
	}
	b.Count = len(pts)
	return nil
}

// Reset empties the batch.
func (b *Batch) Reset() { b.Count = 0 }

// packet returns the i'th lane of points.
func (b *Batch) packet(i int) lane.Vec3 {
	return lane.Vec3{X: b.X[i], Y: b.Y[i], Z: b.Z[i]}
}

func (b *Batch) setPacket(i int, v lane.Vec3) {
	b.X[i], b.Y[i], b.Z[i] = v.X, v.Y, v.Z
}

// copyFrom copies the points of src into b.
func (b *Batch) copyFrom(src *Batch) {
	np := src.Packets()
	copy(b.X[:np], src.X[:np])
	copy(b.Y[:np], src.Y[:np])
	copy(b.Z[:np], src.Z[:np])
	b.Count = src.Count
}

// pad fills unused elements of the last lane with the last valid point so
// that every element of every active lane evaluates to finite values.
func (b *Batch) pad() {
	if b.Count%lane.Width == 0 {
		return
	}
	last := b.At(b.Count - 1)
	for i := b.Count; i%lane.Width != 0; i++ {
		b.Set(i, last)
	}
}

// Result holds the distances and materials resulting from evaluating a [Batch].
// It shares the lane layout of the batch.
type Result struct {
	Dist [MaxPackets]lane.F32
	Mat  [MaxPackets]lane.U32
}

// Distance returns the distance of the i'th point.
func (r *Result) Distance(i int) float32 {
	return r.Dist[i/lane.Width][i%lane.Width]
}

// Material returns the material of the i'th point.
func (r *Result) Material(i int) blobsdf.Material {
	return blobsdf.Material(r.Mat[i/lane.Width][i%lane.Width])
}

// validQuery reports whether q is a non-inverted box. Comparisons with NaN are false.
func validQuery(q ms3.Box) bool {
	return q.Min.X <= q.Max.X && q.Min.Y <= q.Max.Y && q.Min.Z <= q.Max.Z
}

func checkArgs(tree *blobsdf.SoA, query ms3.Box, pts *Batch) error {
	switch {
	case tree == nil:
		return ErrNilTree
	case tree.Len() == 0:
		return ErrEmptyTree
	case pts == nil || pts.Count <= 0 || pts.Count > MaxPoints:
		return ErrBatchSize
	case !validQuery(query):
		return ErrInvalidQuery
	}
	return nil
}
