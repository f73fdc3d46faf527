// Package blobchunk samples compiled BlobTrees over regular voxel chunks. It is
// the reference consumer of the evaluator's query box contract: every chunk is
// evaluated with its own bounds as query box so that shapes far from the chunk
// are culled early.
package blobchunk

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/soypat/blobsdf"
	"github.com/soypat/geometry/ms3"
)

var (
	ErrBadChunk = errors.New("invalid chunk")
)

// Chunk is a cubic grid of Cells^3 voxels of edge length Resolution with its
// minimum corner at Origin. A chunk is sampled at the corners of its voxels.
type Chunk struct {
	Origin     ms3.Vec
	Resolution float32
	// Cells is the amount of voxels along each axis. Must be a power of two.
	Cells int
}

// Validate returns a non-nil error if the chunk can not be sampled.
func (c Chunk) Validate() error {
	if !(c.Resolution > 0) {
		return fmt.Errorf("%w: resolution must be positive, got %g", ErrBadChunk, c.Resolution)
	} else if c.Cells <= 0 || c.Cells&(c.Cells-1) != 0 {
		return fmt.Errorf("%w: cells must be a power of two, got %d", ErrBadChunk, c.Cells)
	} else if c.Cells > 256 {
		return fmt.Errorf("%w: %d cells exceeds maximum of 256", ErrBadChunk, c.Cells)
	}
	return nil
}

// Samples returns the amount of samples along each axis of the chunk.
func (c Chunk) Samples() int { return c.Cells + 1 }

// Size returns the edge length of the chunk.
func (c Chunk) Size() float32 { return float32(c.Cells) * c.Resolution }

// Bounds returns the box enclosing every sample of the chunk.
func (c Chunk) Bounds() ms3.Box {
	sz := c.Size()
	return ms3.Box{Min: c.Origin, Max: ms3.Add(c.Origin, ms3.Vec{X: sz, Y: sz, Z: sz})}
}

// Sample returns the position of sample (i,j,k).
func (c Chunk) Sample(i, j, k int) ms3.Vec {
	return ms3.Add(c.Origin, ms3.Vec{
		X: float32(i) * c.Resolution,
		Y: float32(j) * c.Resolution,
		Z: float32(k) * c.Resolution,
	})
}

// levels returns the octree depth of the chunk, such that 1<<levels == Cells.
func (c Chunk) levels() int {
	return bits.TrailingZeros(uint(c.Cells))
}

// ChunkAt returns the chunk of the chunk grid with the given cell count and
// resolution that contains index (x,y,z). Chunk (0,0,0) has its origin at the origin.
func ChunkAt(x, y, z, cells int, res float32) Chunk {
	sz := float32(cells) * res
	return Chunk{
		Origin:     ms3.Vec{X: float32(x) * sz, Y: float32(y) * sz, Z: float32(z) * sz},
		Resolution: res,
		Cells:      cells,
	}
}

// Field holds the sampled distance and material at every sample of a chunk.
// Samples are stored x-major: index = (k*N + j)*N + i.
type Field struct {
	Chunk Chunk
	// N is the amount of samples along each axis.
	N    int
	Dist []float32
	Mat  []blobsdf.Material
	// Exact marks samples that were evaluated. Samples within pruned
	// cubes are empty and hold a conservative positive distance estimate.
	Exact []bool
}

// reset sizes the field for chunk c reusing its buffers.
func (f *Field) reset(c Chunk) {
	n := c.Samples()
	total := n * n * n
	f.Chunk = c
	f.N = n
	f.Dist = resize(f.Dist, total)
	f.Mat = resize(f.Mat, total)
	f.Exact = resize(f.Exact, total)
	clear(f.Exact)
}

func resize[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}

// Index returns the index of sample (i,j,k) in the field's buffers.
func (f *Field) Index(i, j, k int) int {
	return (k*f.N+j)*f.N + i
}

// Solid reports whether sample (i,j,k) is inside the surface.
func (f *Field) Solid(i, j, k int) bool {
	return f.Dist[f.Index(i, j, k)] <= 0
}

// Material returns the material at sample (i,j,k).
func (f *Field) Material(i, j, k int) blobsdf.Material {
	return f.Mat[f.Index(i, j, k)]
}

// CountSolid returns the amount of samples inside the surface.
func (f *Field) CountSolid() (n int) {
	for _, d := range f.Dist {
		if d <= 0 {
			n++
		}
	}
	return n
}

// HasSurface reports whether the field contains both solid and empty samples,
// meaning a mesher would produce geometry for the chunk.
func (f *Field) HasSurface() bool {
	solid := f.CountSolid()
	return solid > 0 && solid < len(f.Dist)
}
