package blobeval_test

import (
	"math/rand"
	"testing"

	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/blobeval"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSDFBatches(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.Union(
			bld.NewTorus(ms3.Vec{}, 2, 0.5, 3),
			bld.NewSphere(ms3.Vec{Z: 1}, 1, 4),
		)
	})
	query := ms3.Box{Min: ms3.Vec{X: -3, Y: -3, Z: -3}, Max: ms3.Vec{X: 3, Y: 3, Z: 3}}
	sdf, err := blobeval.NewTreeSDF(tree, query)
	require.NoError(t, err)
	bb := sdf.Bounds()
	assert.Equal(t, ms3.Vec{X: -2.5, Y: -2.5, Z: -0.5}, bb.Min)
	assert.Equal(t, ms3.Vec{X: 2.5, Y: 2.5, Z: 2}, bb.Max)

	rng := rand.New(rand.NewSource(20))
	pts := randomPoints(rng, 2*blobeval.MaxPoints+17, query)
	dist := make([]float32, len(pts))
	mats := make([]blobsdf.Material, len(pts))
	require.NoError(t, sdf.EvaluateMaterials(pts, dist, mats))
	var e blobeval.Evaluator
	for start := 0; start < len(pts); start += blobeval.MaxPoints {
		end := min(start+blobeval.MaxPoints, len(pts))
		want, wantMat := evalPoints(t, &e, tree, query, pts[start:end])
		assert.Equal(t, want, dist[start:end])
		assert.Equal(t, wantMat, mats[start:end])
	}
	assert.Equal(t, uint64(len(pts)), sdf.Evaluator().Evaluations())

	assert.Error(t, sdf.Evaluate(pts, dist[:3], nil))
	assert.Error(t, sdf.Evaluate(nil, nil, nil))
	_, err = blobeval.NewTreeSDF(nil, query)
	assert.ErrorIs(t, err, blobeval.ErrNilTree)
}

func TestNormalsCentralDiff(t *testing.T) {
	tree := compile(t, func(bld *blobsdf.Builder) blobsdf.NodeID {
		return bld.NewSphere(ms3.Vec{}, 1, 1)
	})
	sdf, err := blobeval.NewTreeSDF(tree, blobsdf.Everywhere())
	require.NoError(t, err)
	pos := []ms3.Vec{{X: 1}, {Y: -1}, {Z: 1}, {}}
	normals := make([]ms3.Vec, len(pos))
	require.NoError(t, blobeval.NormalsCentralDiff(sdf, pos, normals, 1e-3, sdf))
	for i, p := range pos[:3] {
		assert.InDelta(t, 1, ms3.Dot(p, normals[i]), 1e-4)
	}
	assert.Equal(t, ms3.Vec{}, normals[3], "zero gradient must not produce NaN")
	assert.NoError(t, sdf.VecPool().AssertAllReleased())

	_, err = blobeval.GetVecPool(42)
	assert.Error(t, err)
	assert.Error(t, blobeval.NormalsCentralDiff(sdf, pos, normals, 1e-3, nil))
	assert.Error(t, blobeval.NormalsCentralDiff(sdf, pos, normals[:1], 1e-3, sdf))
	assert.ErrorIs(t, blobeval.NormalsCentralDiff(sdf, pos, normals, 0, sdf), blobeval.ErrInvalidConfig)
}

func TestNormalizeGuarded(t *testing.T) {
	assert.Equal(t, ms3.Vec{}, blobeval.NormalizeGuarded(ms3.Vec{}))
	assert.Equal(t, ms3.Vec{Y: 1}, blobeval.NormalizeGuarded(ms3.Vec{Y: 3}))
}
