package blobeval_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/blobeval"
	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalsSphere(t *testing.T) {
	center := ms3.Vec{X: 1, Y: 2, Z: 3}
	const r = 2
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(center, r, 1) })
	axes := []ms3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {X: -1}, {Y: -1}, {Z: -1}}
	var b blobeval.Batch
	for _, axis := range axes {
		b.Append(ms3.Add(center, ms3.Scale(r, axis)))
	}
	var e blobeval.Evaluator
	normals := make([]lane.Vec3, b.Packets())
	query := ms3.Box{Min: ms3.Sub(center, ms3.Vec{X: 3, Y: 3, Z: 3}), Max: ms3.Add(center, ms3.Vec{X: 3, Y: 3, Z: 3})}
	require.NoError(t, e.Normals(tree, query, &b, 1e-2, normals))
	for i, axis := range axes {
		n := normals[i/lane.Width].At(i % lane.Width)
		assert.InDelta(t, 1, ms3.Norm(n), 1e-5)
		assert.Greater(t, ms3.Dot(n, axis), float32(math.Cos(0.01)), "normal %v at %v", n, axis)
	}
	assert.Equal(t, uint64(6*len(axes)), e.Evaluations())
	assert.NoError(t, e.VecPool().AssertAllReleased())
}

func TestGradientsUnnormalized(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.NewPlane(ms3.Vec{X: 1}, 0, 1)
	})
	var b blobeval.Batch
	b.Append(ms3.Vec{X: 0.25, Y: 1})
	var e blobeval.Evaluator
	grads := make([]lane.Vec3, 1)
	const eps = 0.5
	require.NoError(t, e.Gradients(tree, blobsdf.Everywhere(), &b, eps, grads))
	g := grads[0].At(0)
	assert.InDelta(t, 2*eps, g.X, 1e-6)
	assert.Zero(t, g.Y)
	assert.Zero(t, g.Z)
}

func TestNormalsZeroGradient(t *testing.T) {
	// Every central difference cancels at the center of a sphere.
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(ms3.Vec{}, 1, 1) })
	var b blobeval.Batch
	b.Append(ms3.Vec{})
	var e blobeval.Evaluator
	normals := make([]lane.Vec3, 1)
	require.NoError(t, e.Normals(tree, blobsdf.Everywhere(), &b, 1e-3, normals))
	n := normals[0].At(0)
	assert.Equal(t, ms3.Vec{}, n)
	assert.False(t, math32.IsNaN(n.X) || math32.IsInf(n.X, 0))
}

func TestEstimatorArgs(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(ms3.Vec{}, 1, 1) })
	var e blobeval.Evaluator
	var b blobeval.Batch
	all := blobsdf.Everywhere()
	for i := 0; i < 9; i++ {
		b.Append(ms3.Vec{X: float32(i)})
	}
	assert.ErrorIs(t, e.Gradients(tree, all, &b, 0.1, make([]lane.Vec3, 2)), blobeval.ErrShortBuffer)
	assert.ErrorIs(t, e.Gradients(tree, all, &b, 0, make([]lane.Vec3, 3)), blobeval.ErrInvalidConfig)
	assert.ErrorIs(t, e.Normals(nil, all, &b, 0.1, make([]lane.Vec3, 3)), blobeval.ErrNilTree)

	ao := blobeval.AOConfig{Steps: 4, StepSize: 0.1}
	occ := make([]lane.F32, 3)
	assert.ErrorIs(t, e.AmbientOcclusion(tree, all, &b, make([]lane.Vec3, 1), ao, occ), blobeval.ErrShortBuffer)
	assert.ErrorIs(t, e.AmbientOcclusion(tree, all, &b, make([]lane.Vec3, 3), blobeval.AOConfig{}, occ), blobeval.ErrInvalidConfig)

	_, err := e.ProjectOntoSurface(tree, all, &b, blobeval.ProjectConfig{Iterations: 1, Damping: 1.5, Epsilon: 0.1}, nil)
	assert.ErrorIs(t, err, blobeval.ErrInvalidConfig)

	cfg := blobeval.DefaultEstimatorConfig()
	assert.NoError(t, cfg.Validate())
	cfg.Epsilon = float32(math.Inf(1))
	assert.ErrorIs(t, cfg.Validate(), blobeval.ErrInvalidConfig)
	cfg = blobeval.DefaultEstimatorConfig()
	cfg.AO.Steps = 0
	assert.ErrorIs(t, cfg.Validate(), blobeval.ErrInvalidConfig)
}

func TestAmbientOcclusion(t *testing.T) {
	floor := func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewPlane(ms3.Vec{Z: 1}, 0, 1) }
	cfg := blobeval.AOConfig{Steps: 5, StepSize: 0.25}
	var b blobeval.Batch
	b.Append(ms3.Vec{})
	b.Append(ms3.Vec{X: 10})
	normals := []lane.Vec3{lane.SplatVec(ms3.Vec{Z: 1})}
	occ := make([]lane.F32, 1)
	var e blobeval.Evaluator

	open := compile(t, floor)
	require.NoError(t, e.AmbientOcclusion(open, blobsdf.Everywhere(), &b, normals, cfg, occ))
	assert.InDelta(t, 0, occ[0][0], 1e-6, "unoccluded floor")
	assert.Equal(t, float32(1), blobeval.OcclusionFactor(occ[0][0], 1))

	// A ball hovering right above the first point occludes it.
	covered := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.Union(floor(bld), bld.NewSphere(ms3.Vec{Z: 1.25}, 0.5, 2))
	})
	require.NoError(t, e.AmbientOcclusion(covered, blobsdf.Everywhere(), &b, normals, cfg, occ))
	assert.Greater(t, occ[0][0], float32(0.1))
	assert.InDelta(t, 0, occ[0][1], 1e-6, "point far from the ball")

	// Step 2 at z=0.75 is on the ball surface, steps 3 and 4 are inside it.
	var want float64
	for i := 0; i < cfg.Steps; i++ {
		z := float64(i+1) * float64(cfg.StepSize)
		d := math.Min(z, math.Abs(z-1.25)-0.5)
		want += math.Max(z-d, 0) / math.Pow(2, float64(i))
	}
	assert.InDelta(t, want, occ[0][0], 1e-5)
	factor := blobeval.OcclusionFactor(occ[0][0], 0.5)
	assert.Less(t, factor, float32(1))
	assert.GreaterOrEqual(t, factor, float32(0))
	assert.Equal(t, float32(0), blobeval.OcclusionFactor(100, 1))
}

func TestProjectOntoSphere(t *testing.T) {
	const r = 2
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(ms3.Vec{}, r, 1) })
	rng := rand.New(rand.NewSource(10))
	var b blobeval.Batch
	for i := 0; i < 100; i++ {
		dir := randomDirection(rng)
		offset := float32(0.5)
		if i%2 == 1 {
			offset = -0.5
		}
		b.Append(ms3.Scale(r+offset, dir))
	}
	query := ms3.Box{Min: ms3.Vec{X: -3, Y: -3, Z: -3}, Max: ms3.Vec{X: 3, Y: 3, Z: 3}}
	cfg := blobeval.ProjectConfig{Iterations: 1, Damping: 0.7, Epsilon: 1e-3}
	var e blobeval.Evaluator
	var res blobeval.Result
	prev := make([]float32, b.Count)
	for i := range prev {
		prev[i] = 0.5
	}
	for iter := 0; iter < 12; iter++ {
		stats, err := e.ProjectOntoSurface(tree, query, &b, cfg, &res)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Iterations)
		for i := range prev {
			d := math32.Abs(res.Distance(i))
			require.LessOrEqual(t, d, prev[i], "iteration %d point %d", iter, i)
			prev[i] = d
		}
	}
	for i := range prev {
		assert.InDelta(t, r, ms3.Norm(b.At(i)), 1e-3)
		if res.Distance(i) <= 0 {
			assert.Equal(t, blobsdf.Material(1), res.Material(i))
		}
	}
	assert.NoError(t, e.VecPool().AssertAllReleased())
}

func TestProjectMonotonicSharpFeatures(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.Difference(
			bld.Union(
				bld.NewBox(ms3.Vec{}, ms3.Vec{X: 1, Y: 1, Z: 1}, 1),
				bld.NewSphere(ms3.Vec{X: 1, Y: 1}, 0.75, 2),
			),
			bld.NewInfCylinder(-0.5, 0, 0.4, 3),
		)
	})
	rng := rand.New(rand.NewSource(11))
	query := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	var b blobeval.Batch
	require.NoError(t, b.SetPoints(randomPoints(rng, 257, query)))
	var e blobeval.Evaluator
	var res blobeval.Result
	require.NoError(t, e.Evaluate(tree, blobsdf.Expand(query, 10), &b, &res))
	prev := make([]float32, b.Count)
	for i := range prev {
		prev[i] = math32.Abs(res.Distance(i))
	}
	cfg := blobeval.ProjectConfig{Iterations: 1, Damping: 0.7, Epsilon: 1e-3}
	for iter := 0; iter < 8; iter++ {
		_, err := e.ProjectOntoSurface(tree, query, &b, cfg, &res)
		require.NoError(t, err)
		for i := range prev {
			d := math32.Abs(res.Distance(i))
			require.LessOrEqual(t, d, prev[i]+1e-6, "iteration %d point %d", iter, i)
			prev[i] = d
		}
	}
}

func TestProjectTolerance(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(ms3.Vec{}, 1, 1) })
	var b blobeval.Batch
	b.Append(ms3.Vec{X: 1.5})
	b.Append(ms3.Vec{Y: 0.5})
	cfg := blobeval.DefaultEstimatorConfig().Project
	cfg.Iterations = 100
	cfg.Tolerance = 1e-3
	var e blobeval.Evaluator
	stats, err := e.ProjectOntoSurface(tree, blobsdf.Everywhere(), &b, cfg, nil)
	require.NoError(t, err)
	assert.Less(t, stats.Iterations, 100)
	assert.LessOrEqual(t, stats.MaxDistance, cfg.Tolerance)
	assert.InDelta(t, 1, b.At(0).X, 1e-3)
	assert.InDelta(t, 1, b.At(1).Y, 1e-3)
}

func TestProjectSkipsFarPoints(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID { return bld.NewSphere(ms3.Vec{}, 1, 1) })
	far := ms3.Vec{X: 100, Y: 100, Z: 100}
	query := ms3.Box{Min: ms3.Sub(far, ms3.Vec{X: 1, Y: 1, Z: 1}), Max: ms3.Add(far, ms3.Vec{X: 1, Y: 1, Z: 1})}
	var b blobeval.Batch
	b.Append(far)
	var e blobeval.Evaluator
	var res blobeval.Result
	stats, err := e.ProjectOntoSurface(tree, query, &b, blobeval.DefaultEstimatorConfig().Project, &res)
	require.NoError(t, err)
	assert.Equal(t, far, b.At(0))
	assert.Zero(t, stats.MaxDistance)
	assert.Zero(t, stats.Rejected)
	assert.Equal(t, blobeval.DistanceInfinite, res.Distance(0))
}

func TestProjectIgnoresShapesOutsideQuery(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.Union(bld.NewSphere(ms3.Vec{}, 1, 1), bld.NewSphere(ms3.Vec{X: 50}, 1, 2))
	})
	query := ms3.Box{Min: ms3.Vec{X: -2, Y: -2, Z: -2}, Max: ms3.Vec{X: 2, Y: 2, Z: 2}}
	outside := ms3.Vec{X: 45}
	var b blobeval.Batch
	b.Append(ms3.Vec{X: 1.5})
	b.Append(outside)
	// Grown query box reaches the second sphere.
	cfg := blobeval.ProjectConfig{Iterations: 200, Damping: 0.5, Epsilon: 1e-3, Tolerance: 1e-4}
	var e blobeval.Evaluator
	stats, err := e.ProjectOntoSurface(tree, query, &b, cfg, nil)
	require.NoError(t, err)
	assert.Less(t, stats.Iterations, cfg.Iterations)
	assert.InDelta(t, 1, b.At(0).X, 1e-3)
	assert.Equal(t, outside, b.At(1))
	assert.LessOrEqual(t, stats.MaxDistance, cfg.Tolerance)
}

// randomDirection returns a random unit vector.
func randomDirection(rng *rand.Rand) ms3.Vec {
	for {
		v := ms3.Vec{X: rng.Float32()*2 - 1, Y: rng.Float32()*2 - 1, Z: rng.Float32()*2 - 1}
		n := ms3.Norm(v)
		if n > 0.1 && n <= 1 {
			return ms3.Scale(1/n, v)
		}
	}
}
