package blobeval

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/blobsdf"
	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized form.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length.  Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

var _ SDF3 = (*TreeSDF)(nil)

// TreeSDF adapts a compiled tree to the [SDF3] interface so it can be consumed
// by code working on plain position slices. Slices of any length are split into
// batches of [MaxPoints]. TreeSDF is not safe for concurrent use.
type TreeSDF struct {
	tree  *blobsdf.SoA
	query ms3.Box
	eval  Evaluator
	batch Batch
	res   Result
}

// NewTreeSDF returns a TreeSDF that evaluates tree within query. Nodes whose
// bounds lie outside of query are not evaluated.
func NewTreeSDF(tree *blobsdf.SoA, query ms3.Box) (*TreeSDF, error) {
	if tree == nil {
		return nil, ErrNilTree
	} else if tree.Len() == 0 {
		return nil, ErrEmptyTree
	} else if !validQuery(query) {
		return nil, ErrInvalidQuery
	}
	return &TreeSDF{tree: tree, query: query}, nil
}

// Evaluate implements the [SDF3] interface.
func (t *TreeSDF) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return t.evaluate(pos, dist, nil)
}

// EvaluateMaterials is like Evaluate but also stores the material of every point in mat.
func (t *TreeSDF) EvaluateMaterials(pos []ms3.Vec, dist []float32, mat []blobsdf.Material) error {
	if len(mat) != len(pos) {
		return errMismatchBufferLength
	}
	return t.evaluate(pos, dist, mat)
}

func (t *TreeSDF) evaluate(pos []ms3.Vec, dist []float32, mat []blobsdf.Material) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	for start := 0; start < len(pos); start += MaxPoints {
		end := min(start+MaxPoints, len(pos))
		err := t.batch.SetPoints(pos[start:end])
		if err != nil {
			return err
		}
		err = t.eval.Evaluate(t.tree, t.query, &t.batch, &t.res)
		if err != nil {
			return err
		}
		for i := 0; i < end-start; i++ {
			dist[start+i] = t.res.Distance(i)
			if mat != nil {
				mat[start+i] = t.res.Material(i)
			}
		}
	}
	return nil
}

// Bounds returns the bounds of the tree's root node clipped to the query box.
func (t *TreeSDF) Bounds() ms3.Box {
	root := t.tree.Bounds()
	return ms3.Box{
		Min: ms3.MaxElem(root.Min, t.query.Min),
		Max: ms3.MinElem(root.Max, t.query.Max),
	}
}

// VecPool returns the scratch buffers of the underlying evaluator so that a
// TreeSDF may be passed as userData.
func (t *TreeSDF) VecPool() *VecPool { return t.eval.VecPool() }

// Evaluator returns the evaluator used by t, which exposes evaluation statistics.
func (t *TreeSDF) Evaluator() *Evaluator { return &t.eval }

// NormalsCentralDiff estimates unit normals of s at pos by sampling s at
// pos ± step/2 along each axis. Both samples of an axis are evaluated in a
// single call to s. Where the gradient vanishes the normal is the zero vector.
// userData must provide a [VecPool], see [GetVecPool].
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	switch {
	case s == nil:
		return errors.New("nil SDF3")
	case !(step > 0):
		return fmt.Errorf("%w: normal step must be positive, got %g", ErrInvalidConfig, step)
	case len(pos) != len(normals):
		return errMismatchBufferLength
	case len(pos) == 0:
		return errEmptyBuffers
	}
	vp, err := GetVecPool(userData)
	if err != nil {
		return fmt.Errorf("VecPool required for normal calculation: %w", err)
	}
	n := len(pos)
	samples := vp.V3.Acquire(2 * n)
	dist := vp.Float.Acquire(2 * n)
	defer vp.V3.Release(samples)
	defer vp.Float.Release(dist)
	h := step / 2
	for axis := 0; axis < 3; axis++ {
		var off ms3.Vec
		setAxis(&off, axis, h)
		for i, p := range pos {
			samples[i] = ms3.Add(p, off)
			samples[n+i] = ms3.Sub(p, off)
		}
		err = s.Evaluate(samples, dist, userData)
		if err != nil {
			return err
		}
		for i := range normals {
			setAxis(&normals[i], axis, dist[i]-dist[n+i])
		}
	}
	for i := range normals {
		normals[i] = NormalizeGuarded(normals[i])
	}
	return nil
}

func setAxis(v *ms3.Vec, axis int, x float32) {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
}

// NormalizeGuarded returns v scaled to unit length, or the zero vector if v has
// zero or non-finite length.
func NormalizeGuarded(v ms3.Vec) ms3.Vec {
	n2 := ms3.Dot(v, v)
	if !(n2 > 0) || math32.IsInf(n2, 1) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/math32.Sqrt(n2), v)
}
