package blobeval

import (
	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
)

// Evaluator evaluates compiled trees over point batches. It owns the scratch
// buffers used during evaluation so it is not safe for concurrent use. A
// compiled tree is read-only and may be evaluated by many Evaluators at once.
// The zero value is ready to use.
type Evaluator struct {
	vp VecPool
	ws *workspace
	// Statistics.
	evals  uint64
	culled uint64
}

// workspace holds buffers for the estimators, which evaluate perturbed copies of a batch.
type workspace struct {
	aux    Batch
	cand   Batch
	r0, r1 Result
	cur    Result
	grads  [MaxPackets]lane.Vec3
	active [MaxPackets]lane.Mask
}

func (e *Evaluator) workspace() *workspace {
	if e.ws == nil {
		e.ws = new(workspace)
	}
	return e.ws
}

// VecPool exposes the Evaluator's scratch buffers.
func (e *Evaluator) VecPool() *VecPool { return &e.vp }

// Evaluations returns total points evaluated successfully during the Evaluator's lifetime.
// Estimators count every evaluation they perform.
func (e *Evaluator) Evaluations() uint64 { return e.evals }

// Culled returns the total amount of nodes skipped due to their bounding box
// not intersecting the query box.
func (e *Evaluator) Culled() uint64 { return e.culled }

// Evaluate computes distance and material of the tree at every point of pts and stores them in out.
// Nodes whose bounding box does not intersect query are not evaluated, so points
// should lie within query. Points outside of every evaluated shape have
// material [blobsdf.MaterialEmpty] and distance [DistanceInfinite].
//
// Evaluate may write to unused elements of the last lane of pts.
func (e *Evaluator) Evaluate(tree *blobsdf.SoA, query ms3.Box, pts *Batch, out *Result) error {
	err := checkArgs(tree, query, pts)
	if err != nil {
		return err
	} else if out == nil {
		return ErrNilResult
	}
	e.evaluate(tree, query, pts, out)
	return nil
}

// evaluate is Evaluate without argument checking.
func (e *Evaluator) evaluate(tree *blobsdf.SoA, query ms3.Box, pts *Batch, out *Result) {
	pts.pad()
	np := pts.Packets()
	dist, mat := out.Dist[:np], out.Mat[:np]
	initLanes(dist, mat)
	e.evaluateR(tree, query, 0, pts, dist, mat)
	e.evals += uint64(pts.Count)
}

func initLanes(dist []lane.F32, mat []lane.U32) {
	inf := lane.Splat(DistanceInfinite)
	empty := lane.SplatU(uint32(blobsdf.MaterialEmpty))
	for i := range dist {
		dist[i] = inf
		mat[i] = empty
	}
}

func (e *Evaluator) evaluateR(tree *blobsdf.SoA, query ms3.Box, idx int, pts *Batch, dist []lane.F32, mat []lane.U32) {
	if !blobsdf.Overlaps(tree.AABBs[idx], query) {
		e.culled++
		return
	}
	w := tree.Types[idx]
	kind := w.Kind()
	if !kind.IsOperator() {
		evalShape(kind, tree.Params[w.ParamOffset():], pts, dist, mat)
		return
	}
	// Children accumulate into their own buffers so they never see this node's results.
	np := len(dist)
	ldist, lmat := e.vp.Dist.Acquire(np), e.vp.Mat.Acquire(np)
	rdist, rmat := e.vp.Dist.Acquire(np), e.vp.Mat.Acquire(np)
	defer e.vp.Dist.Release(ldist)
	defer e.vp.Mat.Release(lmat)
	defer e.vp.Dist.Release(rdist)
	defer e.vp.Mat.Release(rmat)
	initLanes(ldist, lmat)
	initLanes(rdist, rmat)
	e.evaluateR(tree, query, w.Left(), pts, ldist, lmat)
	e.evaluateR(tree, query, w.Right(), pts, rdist, rmat)

	switch kind {
	case blobsdf.KindUnion:
		for i := range dist {
			dist[i] = lane.Min(ldist[i], rdist[i])
			mat[i] = lane.MaxU(lmat[i], rmat[i])
		}
	case blobsdf.KindDifference:
		empty := lane.SplatU(uint32(blobsdf.MaterialEmpty))
		for i := range dist {
			d := lane.Max(ldist[i], lane.Neg(rdist[i]))
			dist[i] = d
			mat[i] = lane.SelectU(lane.Inside(d), lmat[i], empty)
		}
	case blobsdf.KindIntersection:
		empty := lane.SplatU(uint32(blobsdf.MaterialEmpty))
		def := lane.SplatU(uint32(blobsdf.MaterialDefault))
		for i := range dist {
			d := lane.Max(ldist[i], rdist[i])
			dist[i] = d
			mat[i] = lane.SelectU(lane.Inside(d), def, empty)
		}
	}
}
