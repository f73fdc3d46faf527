package blobeval

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// ErrInvalidConfig is returned by estimators when given an unusable configuration.
var ErrInvalidConfig = errors.New("invalid estimator configuration")

// EstimatorConfig groups the parameters of the estimators built on the [Evaluator].
type EstimatorConfig struct {
	// Epsilon is the central difference step used to estimate gradients.
	Epsilon float32       `toml:"epsilon"`
	AO      AOConfig      `toml:"ao"`
	Project ProjectConfig `toml:"project"`
}

// DefaultEstimatorConfig returns the configuration used by the terrain pipeline.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Epsilon: 0.01,
		AO: AOConfig{
			Steps:    5,
			StepSize: 0.2,
		},
		Project: ProjectConfig{
			Iterations: 8,
			Damping:    0.7,
			Epsilon:    0.01,
		},
	}
}

// Validate returns a non-nil error if any field is out of range.
func (cfg EstimatorConfig) Validate() error {
	err := validEpsilon(cfg.Epsilon)
	if err != nil {
		return err
	}
	err = cfg.AO.Validate()
	if err != nil {
		return err
	}
	return cfg.Project.Validate()
}

func validEpsilon(eps float32) error {
	if !(eps > 0) || math32.IsInf(eps, 1) {
		return fmt.Errorf("%w: epsilon must be positive and finite, got %g", ErrInvalidConfig, eps)
	}
	return nil
}

// AOConfig configures the ambient occlusion ray march.
type AOConfig struct {
	// Steps is the amount of samples taken along the normal.
	Steps int `toml:"steps"`
	// StepSize is the distance between consecutive samples.
	StepSize float32 `toml:"step_size"`
}

// Validate returns a non-nil error if any field is out of range.
func (cfg AOConfig) Validate() error {
	if cfg.Steps <= 0 || cfg.Steps > 32 {
		return fmt.Errorf("%w: ao steps must be in 1..32, got %d", ErrInvalidConfig, cfg.Steps)
	} else if !(cfg.StepSize > 0) || math32.IsInf(cfg.StepSize, 1) {
		return fmt.Errorf("%w: ao step size must be positive, got %g", ErrInvalidConfig, cfg.StepSize)
	}
	return nil
}

// ProjectConfig configures [Evaluator.ProjectOntoSurface].
type ProjectConfig struct {
	// Iterations is the maximum amount of relaxation steps.
	Iterations int `toml:"iterations"`
	// Damping scales each step to avoid overshooting curved surfaces. Must be in (0,1].
	Damping float32 `toml:"damping"`
	// Epsilon is the central difference step of the gradient.
	Epsilon float32 `toml:"epsilon"`
	// Tolerance, when positive, ends projection once every point is within
	// Tolerance of the surface.
	Tolerance float32 `toml:"tolerance"`
}

// Validate returns a non-nil error if any field is out of range.
func (cfg ProjectConfig) Validate() error {
	switch {
	case cfg.Iterations < 0:
		return fmt.Errorf("%w: negative projection iterations", ErrInvalidConfig)
	case !(cfg.Damping > 0 && cfg.Damping <= 1):
		return fmt.Errorf("%w: projection damping must be in (0,1], got %g", ErrInvalidConfig, cfg.Damping)
	case cfg.Tolerance < 0:
		return fmt.Errorf("%w: negative projection tolerance", ErrInvalidConfig)
	}
	return validEpsilon(cfg.Epsilon)
}

// ProjectStats reports the outcome of a surface projection.
type ProjectStats struct {
	// Iterations performed. May be less than configured if Tolerance was reached.
	Iterations int
	// Rejected counts candidate moves that would have increased a point's distance to the surface.
	Rejected int
	// MaxDistance is the largest absolute distance to the surface after projection,
	// ignoring points far from every shape.
	MaxDistance float32
}

// Gradients estimates the unnormalized gradient of the distance field at every
// point of pts using central differences of step eps and stores them in dst,
// which must hold at least pts.Packets() elements.
func (e *Evaluator) Gradients(tree *blobsdf.SoA, query ms3.Box, pts *Batch, eps float32, dst []lane.Vec3) error {
	err := checkArgs(tree, query, pts)
	if err != nil {
		return err
	}
	err = validEpsilon(eps)
	if err != nil {
		return err
	} else if len(dst) < pts.Packets() {
		return ErrShortBuffer
	}
	pts.pad()
	e.gradients(tree, blobsdf.Expand(query, eps), pts, eps, dst[:pts.Packets()])
	return nil
}

// Normals estimates surface normals at every point of pts. Where the gradient
// vanishes, such as on sharp seams between shapes, the normal is the zero vector.
func (e *Evaluator) Normals(tree *blobsdf.SoA, query ms3.Box, pts *Batch, eps float32, dst []lane.Vec3) error {
	err := e.Gradients(tree, query, pts, eps, dst)
	if err != nil {
		return err
	}
	for i := range dst[:pts.Packets()] {
		dst[i] = normalizeLanes(dst[i])
	}
	return nil
}

// gradients expects pts to be padded and query to already include the eps margin.
func (e *Evaluator) gradients(tree *blobsdf.SoA, query ms3.Box, pts *Batch, eps float32, dst []lane.Vec3) {
	ws := e.workspace()
	for axis := 0; axis < 3; axis++ {
		ws.aux.copyFrom(pts)
		ws.aux.offsetAxis(axis, eps)
		e.evaluate(tree, query, &ws.aux, &ws.r0)
		ws.aux.copyFrom(pts)
		ws.aux.offsetAxis(axis, -eps)
		e.evaluate(tree, query, &ws.aux, &ws.r1)
		for i := range dst {
			diff := lane.Sub(ws.r0.Dist[i], ws.r1.Dist[i])
			switch axis {
			case 0:
				dst[i].X = diff
			case 1:
				dst[i].Y = diff
			case 2:
				dst[i].Z = diff
			}
		}
	}
}

// offsetAxis adds k to the axis coordinate of every active lane.
func (b *Batch) offsetAxis(axis int, k float32) {
	np := b.Packets()
	var c []lane.F32
	switch axis {
	case 0:
		c = b.X[:np]
	case 1:
		c = b.Y[:np]
	default:
		c = b.Z[:np]
	}
	for i := range c {
		c[i] = lane.AddScalar(k, c[i])
	}
}

// normalizeLanes normalizes each element of v. Zero length elements are
// returned as the zero vector without computing a reciprocal.
func normalizeLanes(v lane.Vec3) lane.Vec3 {
	n2 := lane.Norm2(v)
	var inv lane.F32
	for e := range n2 {
		if n2[e] > 0 && !math32.IsInf(n2[e], 1) {
			inv[e] = 1 / math32.Sqrt(n2[e])
		}
	}
	return lane.MulVec(inv, v)
}

// AmbientOcclusion marches cfg.Steps samples along the normals from every
// point of pts and accumulates how much closer the scene is than the distance
// marched. Step i (starting at zero) samples at (i+1)*StepSize and is weighted
// by 2^-i. The accumulated result is stored in occ unnormalized; see [OcclusionFactor].
func (e *Evaluator) AmbientOcclusion(tree *blobsdf.SoA, query ms3.Box, pts *Batch, normals []lane.Vec3, cfg AOConfig, occ []lane.F32) error {
	err := checkArgs(tree, query, pts)
	if err != nil {
		return err
	}
	err = cfg.Validate()
	if err != nil {
		return err
	}
	np := pts.Packets()
	if len(normals) < np || len(occ) < np {
		return ErrShortBuffer
	}
	pts.pad()
	ws := e.workspace()
	q := blobsdf.Expand(query, float32(cfg.Steps)*cfg.StepSize)
	occ = occ[:np]
	for i := range occ {
		occ[i] = lane.F32{}
	}
	weight := float32(1)
	for step := 0; step < cfg.Steps; step++ {
		stepDist := float32(step+1) * cfg.StepSize
		ws.aux.copyFrom(pts)
		for i := 0; i < np; i++ {
			p := lane.AddVec(ws.aux.packet(i), lane.ScaleVec(stepDist, normals[i]))
			ws.aux.setPacket(i, p)
		}
		e.evaluate(tree, q, &ws.aux, &ws.r0)
		for i := range occ {
			contrib := lane.MaxScalar(lane.AddScalar(stepDist, lane.Neg(ws.r0.Dist[i])), 0)
			occ[i] = lane.Add(occ[i], lane.Scale(weight, contrib))
		}
		weight *= 0.5
	}
	return nil
}

// OcclusionFactor maps an accumulated occlusion value to a light factor in [0,1],
// where 1 means unoccluded.
func OcclusionFactor(acc, strength float32) float32 {
	return 1 - ms1.Clamp(acc*strength, 0, 1)
}

// ProjectOntoSurface moves the points of pts toward the zero isosurface by
// repeatedly stepping against the estimated normal by the damped distance.
// A point's move is only accepted if it does not increase its absolute distance,
// so the distance of every point is non-increasing across iterations. Points
// far from every shape within query (distance [DistanceInfinite]) are not moved.
// Each step is at most Damping times the largest finite distance seen under
// query, which bounds how far any point travels.
// If out is not nil the final distances and materials are stored in it.
func (e *Evaluator) ProjectOntoSurface(tree *blobsdf.SoA, query ms3.Box, pts *Batch, cfg ProjectConfig, out *Result) (stats ProjectStats, err error) {
	err = checkArgs(tree, query, pts)
	if err != nil {
		return stats, err
	}
	err = cfg.Validate()
	if err != nil {
		return stats, err
	}
	ws := e.workspace()
	np := pts.Packets()
	pts.pad()

	// Only points near a shape within query move. Steps are clamped to
	// Damping*maxAbs so no point leaves the grown query box.
	e.evaluate(tree, query, pts, &ws.cur)
	far := lane.Splat(DistanceInfinite * 0.5)
	active := ws.active[:np]
	var maxAbs float32
	for i := range active {
		active[i] = lane.LessEq(lane.Abs(ws.cur.Dist[i]), far)
		for el, d := range lane.Abs(ws.cur.Dist[i]) {
			if active[i][el] {
				maxAbs = max(maxAbs, d)
			}
		}
	}
	box := blobsdf.Expand(query, cfg.Epsilon+float32(cfg.Iterations)*cfg.Damping*maxAbs)
	e.evaluate(tree, box, pts, &ws.cur)
	for i := range active {
		inBox := lane.LessEq(lane.Abs(ws.cur.Dist[i]), far)
		for el := range active[i] {
			active[i][el] = active[i][el] && inBox[el]
		}
	}
	grads := ws.grads[:np]
	for stats.Iterations < cfg.Iterations {
		if cfg.Tolerance > 0 && withinTolerance(ws.cur.Dist[:np], active, cfg.Tolerance) {
			break
		}
		e.gradients(tree, box, pts, cfg.Epsilon, grads)
		ws.cand.copyFrom(pts)
		for i := 0; i < np; i++ {
			n := normalizeLanes(grads[i])
			d := lane.MaxScalar(lane.MinScalar(ws.cur.Dist[i], maxAbs), -maxAbs)
			step := lane.Scale(-cfg.Damping, d)
			p := pts.packet(i)
			c := lane.AddVec(p, lane.MulVec(step, n))
			ws.cand.setPacket(i, selectVec(active[i], c, p))
		}
		e.evaluate(tree, box, &ws.cand, &ws.r0)
		for i := 0; i < np; i++ {
			d, dc := ws.cur.Dist[i], ws.r0.Dist[i]
			accept := lane.LessEq(lane.Abs(dc), lane.Abs(d))
			for el := range accept {
				accept[el] = accept[el] && active[i][el]
				if active[i][el] && !accept[el] && el+i*lane.Width < pts.Count {
					stats.Rejected++
				}
			}
			pts.setPacket(i, selectVec(accept, ws.cand.packet(i), pts.packet(i)))
			ws.cur.Dist[i] = lane.Select(accept, dc, d)
			ws.cur.Mat[i] = lane.SelectU(accept, ws.r0.Mat[i], ws.cur.Mat[i])
		}
		stats.Iterations++
	}
	for i := 0; i < pts.Count; i++ {
		if active[i/lane.Width][i%lane.Width] {
			stats.MaxDistance = max(stats.MaxDistance, math32.Abs(ws.cur.Distance(i)))
		}
	}
	if out != nil {
		copy(out.Dist[:np], ws.cur.Dist[:np])
		copy(out.Mat[:np], ws.cur.Mat[:np])
	}
	return stats, nil
}

func withinTolerance(dist []lane.F32, active []lane.Mask, tol float32) bool {
	tl := lane.Splat(tol)
	for i := range dist {
		ok := lane.LessEq(lane.Abs(dist[i]), tl)
		for el := range ok {
			ok[el] = ok[el] || !active[i][el]
		}
		if !ok.All() {
			return false
		}
	}
	return true
}

func selectVec(m lane.Mask, a, b lane.Vec3) lane.Vec3 {
	return lane.Vec3{
		X: lane.Select(m, a.X, b.X),
		Y: lane.Select(m, a.Y, b.Y),
		Z: lane.Select(m, a.Z, b.Z),
	}
}
