package blobchunk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/blobeval"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/sync/errgroup"
)

// SampleStats reports the work done sampling a chunk.
type SampleStats struct {
	// Evaluated is the amount of samples evaluated exactly.
	Evaluated int
	// Estimated is the amount of samples filled from a pruned cube.
	Estimated int
	// CubesPruned is the amount of octree cubes found to contain no surface.
	CubesPruned int
	// NodesCulled is the amount of tree nodes skipped by the evaluator.
	NodesCulled uint64
}

// Sampler samples chunks of a compiled tree. It is not safe for concurrent use.
// The zero value samples every point of a chunk exactly.
type Sampler struct {
	// Prune enables octree pruning of empty cubes that contain no surface.
	Prune bool
	// MinPruneLevel is the smallest cube level evaluated for pruning. Values below 1 are treated as 1.
	MinPruneLevel int
	// Metrics, if not nil, receives statistics of every sampled chunk.
	Metrics *Metrics

	eval  blobeval.Evaluator
	batch blobeval.Batch
	res   blobeval.Result
	// idx holds the field index of every point in batch.
	idx   [blobeval.MaxPoints]int
	known []bool
	cubes []icube
	next  []icube
	field Field
}

// NewSampler returns a Sampler configured by cfg.
func NewSampler(cfg Config, m *Metrics) *Sampler {
	return &Sampler{
		Prune:         cfg.Prune,
		MinPruneLevel: cfg.MinPruneLevel,
		Metrics:       m,
	}
}

// Evaluator returns the evaluator used by the sampler.
func (s *Sampler) Evaluator() *blobeval.Evaluator { return &s.eval }

// Sample evaluates tree at every sample of chunk c and stores the result in dst.
// The chunk bounds are used as query box.
func (s *Sampler) Sample(tree *blobsdf.SoA, c Chunk, dst *Field) (stats SampleStats, err error) {
	err = c.Validate()
	if err != nil {
		return stats, err
	} else if tree == nil {
		return stats, blobeval.ErrNilTree
	}
	start := time.Now()
	culledStart := s.eval.Culled()
	dst.reset(c)
	s.known = resize(s.known, len(dst.Dist))
	clear(s.known)
	query := c.Bounds()

	minLvl := max(s.MinPruneLevel, 1)
	if s.Prune && c.levels() >= minLvl {
		err = s.prune(tree, query, dst, minLvl, &stats)
		if err != nil {
			return stats, err
		}
	}

	// Evaluate every sample not filled by pruning.
	n := 0
	N := dst.N
	for idx := range dst.Dist {
		if s.known[idx] {
			continue
		}
		i, j, k := idx%N, (idx/N)%N, idx/(N*N)
		s.batch.Set(n, c.Sample(i, j, k))
		s.idx[n] = idx
		n++
		if n == blobeval.MaxPoints {
			err = s.flush(tree, query, dst, n)
			if err != nil {
				return stats, err
			}
			stats.Evaluated += n
			n = 0
		}
	}
	if n > 0 {
		err = s.flush(tree, query, dst, n)
		if err != nil {
			return stats, err
		}
		stats.Evaluated += n
	}
	stats.NodesCulled = s.eval.Culled() - culledStart
	elapsed := time.Since(start)
	s.Metrics.observe(stats, elapsed)
	blobsdf.Logger().Debug("blobchunk: sampled chunk",
		"origin", c.Origin, "cells", c.Cells, "evaluated", stats.Evaluated,
		"estimated", stats.Estimated, "pruned", stats.CubesPruned, "elapsed", elapsed)
	return stats, nil
}

// flush evaluates the first n points of the batch and stores them in dst.
func (s *Sampler) flush(tree *blobsdf.SoA, query ms3.Box, dst *Field, n int) error {
	s.batch.Count = n
	err := s.eval.Evaluate(tree, query, &s.batch, &s.res)
	if err != nil {
		return err
	}
	for m, idx := range s.idx[:n] {
		dst.Dist[idx] = s.res.Distance(m)
		dst.Mat[idx] = s.res.Material(m)
		dst.Exact[idx] = true
		s.known[idx] = true
	}
	return nil
}

// prune walks the chunk's octree breadth first evaluating one sample at the
// center of each cube. Cubes lying in empty space far enough from the surface
// are filled with estimates; the rest are decomposed until level minLvl.
func (s *Sampler) prune(tree *blobsdf.SoA, query ms3.Box, dst *Field, minLvl int, stats *SampleStats) error {
	c := dst.Chunk
	s.cubes = append(s.cubes[:0], icube{lvl: c.levels()})
	for len(s.cubes) > 0 {
		s.next = s.next[:0]
		for start := 0; start < len(s.cubes); start += blobeval.MaxPoints {
			cubes := s.cubes[start:min(start+blobeval.MaxPoints, len(s.cubes))]
			for i, cube := range cubes {
				s.batch.Set(i, cube.center(c.Origin, c.Resolution))
			}
			s.batch.Count = len(cubes)
			err := s.eval.Evaluate(tree, query, &s.batch, &s.res)
			if err != nil {
				return err
			}
			for i, cube := range cubes {
				d := s.res.Distance(i)
				if prunable(d, cube.halfDiagonal(c.Resolution)) {
					stats.CubesPruned++
					stats.Estimated += s.fill(dst, cube, d)
				} else if cube.lvl > minLvl {
					sub := cube.octree()
					s.next = append(s.next, sub[:]...)
				}
			}
		}
		s.cubes, s.next = s.next, s.cubes
	}
	return nil
}

// fill marks every unknown sample of the empty cube as empty with a distance
// bound estimated from the distance at the cube's center. It returns the amount of samples filled.
func (s *Sampler) fill(dst *Field, cube icube, centerDist float32) (filled int) {
	c := dst.Chunk
	center := cube.center(c.Origin, c.Resolution)
	hd := cube.halfDiagonal(c.Resolution)
	sz := cube.cells()
	for k := cube.k; k <= cube.k+sz; k++ {
		for j := cube.j; j <= cube.j+sz; j++ {
			for i := cube.i; i <= cube.i+sz; i++ {
				idx := dst.Index(i, j, k)
				if s.known[idx] {
					continue
				}
				r := min(ms3.Norm(ms3.Sub(c.Sample(i, j, k), center)), hd)
				dst.Dist[idx] = boundEstimate(centerDist, r)
				dst.Mat[idx] = blobsdf.MaterialEmpty
				s.known[idx] = true
				filled++
			}
		}
	}
	return filled
}

// SampleAll samples chunks concurrently using up to cfg.Workers goroutines.
// fn is called from the sampling goroutine with the index of the chunk and its
// field, which is reused once fn returns. Sampling stops at the first error
// returned by fn or when ctx is cancelled.
func SampleAll(ctx context.Context, tree *blobsdf.SoA, chunks []Chunk, cfg Config, m *Metrics, fn func(idx int, f *Field) error) error {
	err := cfg.Validate()
	if err != nil {
		return err
	} else if tree == nil {
		return blobeval.ErrNilTree
	}
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	samplers := sync.Pool{New: func() any { return NewSampler(cfg, m) }}
	for i := range chunks {
		i := i
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := samplers.Get().(*Sampler)
			defer samplers.Put(s)
			_, err := s.Sample(tree, chunks[i], &s.field)
			if err != nil {
				return fmt.Errorf("chunk %d at %v: %w", i, chunks[i].Origin, err)
			}
			return fn(i, &s.field)
		})
	}
	err = g.Wait()
	if err != nil {
		return err
	}
	return parent.Err()
}
