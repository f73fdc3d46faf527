package blobchunk

import "github.com/soypat/geometry/ms3"

const sqrt3 = 1.73205080757

// icube is an octree cube of a chunk addressed by the integer position of its
// minimum corner in cell units. A cube of level lvl spans 1<<lvl cells along each axis.
type icube struct {
	i, j, k int
	lvl     int
}

// cells returns the amount of cells the cube spans along each axis.
func (c icube) cells() int { return 1 << c.lvl }

// size returns the edge length of the cube.
func (c icube) size(res float32) float32 { return float32(c.cells()) * res }

// center returns the position of the cube's center.
func (c icube) center(origin ms3.Vec, res float32) ms3.Vec {
	half := float32(c.cells()) / 2
	return ms3.Add(origin, ms3.Vec{
		X: (float32(c.i) + half) * res,
		Y: (float32(c.j) + half) * res,
		Z: (float32(c.k) + half) * res,
	})
}

// halfDiagonal returns the distance from the cube's center to its corners.
func (c icube) halfDiagonal(res float32) float32 {
	return c.size(res) * (sqrt3 / 2)
}

// octree returns the 8 sub-cubes of c. c must be of level 1 or greater.
func (c icube) octree() [8]icube {
	lvl := c.lvl - 1
	if lvl < 0 {
		panic("octree of smallest cube")
	}
	s := 1 << lvl
	return [8]icube{
		{i: c.i, j: c.j, k: c.k, lvl: lvl},
		{i: c.i + s, j: c.j, k: c.k, lvl: lvl},
		{i: c.i + s, j: c.j + s, k: c.k, lvl: lvl},
		{i: c.i, j: c.j + s, k: c.k, lvl: lvl},
		{i: c.i, j: c.j, k: c.k + s, lvl: lvl},
		{i: c.i + s, j: c.j, k: c.k + s, lvl: lvl},
		{i: c.i + s, j: c.j + s, k: c.k + s, lvl: lvl},
		{i: c.i, j: c.j + s, k: c.k + s, lvl: lvl},
	}
}

// prunable reports whether a cube whose center is at distance d from the
// surface lies entirely in empty space. Points exactly on the surface count as
// solid, so a cube touching the surface at a corner is not prunable. Solid cubes
// are never pruned since they may hold nested solids of other materials.
func prunable(d, halfDiagonal float32) bool {
	return d > halfDiagonal
}

// boundEstimate returns a positive distance at a point distToCenter away from
// the center of a pruned cube that does not exceed the true distance for
// 1-Lipschitz fields.
func boundEstimate(centerDist, distToCenter float32) float32 {
	return centerDist - distToCenter
}
