package blobeval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/lane"
)

// evalShape evaluates the primitive of kind k with compiled parameters params
// over the first len(dist) lanes of pts. Distances are overwritten. The material
// is set where the point is inside the primitive and left untouched elsewhere.
func evalShape(k blobsdf.Kind, params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	switch k {
	case blobsdf.KindPlane:
		evalPlane(params, pts, dist, mat)
	case blobsdf.KindSphere:
		evalSphere(params, pts, dist, mat)
	case blobsdf.KindBox:
		evalBox(params, pts, dist, mat)
	case blobsdf.KindInfCylinder:
		evalInfCylinder(params, pts, dist, mat)
	case blobsdf.KindTorus:
		evalTorus(params, pts, dist, mat)
	case blobsdf.KindSineWave:
		evalSineWave(params, pts, dist, mat)
	case blobsdf.KindGyroid:
		evalGyroid(params, pts, dist, mat)
	default:
		// Compile rejects unknown kinds.
		panic("blobeval: unexpected kind " + k.String())
	}
}

// shade stores d and marks the inside of the primitive with material m.
func shade(dist []lane.F32, mat []lane.U32, i int, d lane.F32, m lane.U32) {
	dist[i] = d
	if inside := lane.Inside(d); inside.Any() {
		mat[i] = lane.SelectU(inside, m, mat[i])
	}
}

func matLane(bits float32) lane.U32 {
	return lane.SplatU(math32.Float32bits(bits))
}

func evalPlane(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	n := lane.Vec3{X: lane.Splat(params[0][0]), Y: lane.Splat(params[0][1]), Z: lane.Splat(params[0][2])}
	off := params[0][3]
	m := matLane(params[1][0])
	for i := range dist {
		d := lane.AddScalar(off, lane.Dot(n, pts.packet(i)))
		shade(dist, mat, i, d, m)
	}
}

func evalSphere(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	c := lane.Vec3{X: lane.Splat(params[0][0]), Y: lane.Splat(params[0][1]), Z: lane.Splat(params[0][2])}
	r := params[0][3]
	m := matLane(params[1][0])
	for i := range dist {
		d := lane.AddScalar(-r, lane.Norm(lane.SubVec(pts.packet(i), c)))
		shade(dist, mat, i, d, m)
	}
}

// evalBox computes the exact euclidean distance to a box.
func evalBox(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	c := lane.Vec3{X: lane.Splat(params[0][0]), Y: lane.Splat(params[0][1]), Z: lane.Splat(params[0][2])}
	m := matLane(params[0][3])
	h := lane.Vec3{X: lane.Splat(params[1][0]), Y: lane.Splat(params[1][1]), Z: lane.Splat(params[1][2])}
	for i := range dist {
		q := lane.SubVec(lane.AbsVec(lane.SubVec(pts.packet(i), c)), h)
		outside := lane.Norm(lane.Vec3{X: lane.MaxScalar(q.X, 0), Y: lane.MaxScalar(q.Y, 0), Z: lane.MaxScalar(q.Z, 0)})
		inside := lane.MinScalar(lane.Max(q.X, lane.Max(q.Y, q.Z)), 0)
		shade(dist, mat, i, lane.Add(outside, inside), m)
	}
}

func evalInfCylinder(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	ox, oy := lane.Splat(params[0][0]), lane.Splat(params[0][1])
	r := params[0][2]
	m := matLane(params[0][3])
	for i := range dist {
		d := lane.AddScalar(-r, lane.Hypot(lane.Sub(pts.X[i], ox), lane.Sub(pts.Y[i], oy)))
		shade(dist, mat, i, d, m)
	}
}

func evalTorus(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	cx, cy, cz := lane.Splat(params[0][0]), lane.Splat(params[0][1]), lane.Splat(params[0][2])
	major := params[0][3]
	minor := params[1][0]
	m := matLane(params[1][1])
	for i := range dist {
		qx := lane.AddScalar(-major, lane.Hypot(lane.Sub(pts.X[i], cx), lane.Sub(pts.Y[i], cy)))
		qz := lane.Sub(pts.Z[i], cz)
		shade(dist, mat, i, lane.AddScalar(-minor, lane.Hypot(qx, qz)), m)
	}
}

// The periodic shapes have no lane-wise trigonometric functions to build on
// so they are evaluated one element at a time.

func evalSineWave(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	sx, sy, sz := params[0][0], params[0][1], params[0][2]
	m := matLane(params[0][3])
	for i := range dist {
		d := lane.Add(lane.Map(lane.Scale(sx, pts.X[i]), math32.Sin), lane.Map(lane.Scale(sy, pts.Y[i]), math32.Sin))
		d = lane.Add(d, lane.Map(lane.Scale(sz, pts.Z[i]), math32.Sin))
		shade(dist, mat, i, d, m)
	}
}

func evalGyroid(params []lane.F32, pts *Batch, dist []lane.F32, mat []lane.U32) {
	sx, sy, sz := params[0][0], params[0][1], params[0][2]
	m := matLane(params[0][3])
	for i := range dist {
		var d lane.F32
		for e := range d {
			sinx, cosx := math32.Sincos(sx * pts.X[i][e])
			siny, cosy := math32.Sincos(sy * pts.Y[i][e])
			sinz, cosz := math32.Sincos(sz * pts.Z[i][e])
			d[e] = sinx*cosy + siny*cosz + sinz*cosx
		}
		shade(dist, mat, i, d, m)
	}
}
