package blobsdf

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// NewPlane creates a half-space bounded by the plane dot(normal,p)+offset = 0. The solid
// region lies opposite to normal. normal is normalized.
func (bld *Builder) NewPlane(normal ms3.Vec, offset float32, mat Material) NodeID {
	l := ms3.Norm(normal)
	if l < epstol || math32.IsNaN(l) || math32.IsInf(l, 0) {
		bld.shapeErrorf("bad plane normal %v", normal)
		normal, l = ms3.Vec{Z: 1}, 1
	}
	id, n := bld.alloc(KindPlane, mat)
	n.setVec(0, ms3.Scale(1/l, normal))
	n.args[3] = offset / l
	return id
}

// NewSphere creates a sphere at center of radius r.
func (bld *Builder) NewSphere(center ms3.Vec, r float32, mat Material) NodeID {
	if !(r > 0) {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	id, n := bld.alloc(KindSphere, mat)
	n.setVec(0, center)
	n.args[3] = r
	return id
}

// NewBox creates an axis aligned box at center with half dimensions halfExtent.
func (bld *Builder) NewBox(center, halfExtent ms3.Vec, mat Material) NodeID {
	if !(halfExtent.X > 0 && halfExtent.Y > 0 && halfExtent.Z > 0) {
		bld.shapeErrorf("zero or negative box dimension")
	}
	id, n := bld.alloc(KindBox, mat)
	n.setVec(0, center)
	n.setVec(3, halfExtent)
	return id
}

// NewInfCylinder creates a cylinder of radius r and infinite length along the z axis
// whose axis goes through (x,y).
func (bld *Builder) NewInfCylinder(x, y, r float32, mat Material) NodeID {
	if !(r > 0) {
		bld.shapeErrorf("zero or negative cylinder radius")
	}
	id, n := bld.alloc(KindInfCylinder, mat)
	n.args[0], n.args[1], n.args[2] = x, y, r
	return id
}

// NewTorus creates a torus lying on the XY plane at center. major is the
// distance from center to the tube center line and minor the tube radius.
func (bld *Builder) NewTorus(center ms3.Vec, major, minor float32, mat Material) NodeID {
	if !(minor > 0) || !(major > 0) {
		bld.shapeErrorf("zero or negative torus radius")
	} else if minor >= major {
		bld.shapeErrorf("torus minor radius %v must be less than major radius %v", minor, major)
	}
	id, n := bld.alloc(KindTorus, mat)
	n.setVec(0, center)
	n.args[3], n.args[4] = major, minor
	return id
}

// NewSineWave creates an unbounded periodic field sin(sx*x)+sin(sy*y)+sin(sz*z).
func (bld *Builder) NewSineWave(scale ms3.Vec, mat Material) NodeID {
	bld.checkScale(scale, "sine wave")
	id, n := bld.alloc(KindSineWave, mat)
	n.setVec(0, scale)
	return id
}

// NewGyroid creates an unbounded gyroid field with coordinates scaled per axis by scale.
func (bld *Builder) NewGyroid(scale ms3.Vec, mat Material) NodeID {
	bld.checkScale(scale, "gyroid")
	id, n := bld.alloc(KindGyroid, mat)
	n.setVec(0, scale)
	return id
}

func (bld *Builder) checkScale(scale ms3.Vec, name string) {
	if scale.X == 0 && scale.Y == 0 && scale.Z == 0 {
		bld.shapeErrorf("zero %s scale", name)
	}
}

// everywhere is the box of unbounded shapes.
var everywhere = ms3.Box{
	Min: ms3.Vec{X: -largenum, Y: -largenum, Z: -largenum},
	Max: ms3.Vec{X: largenum, Y: largenum, Z: largenum},
}

// Everywhere returns the bounding box spanning the full representable range.
func Everywhere() ms3.Box { return everywhere }

// shapeBounds returns the closed form bounding box of a shape node.
func shapeBounds(n *Node) ms3.Box {
	switch n.kind {
	case KindSphere:
		s := n.Sphere()
		return centeredBox(s.Center, ms3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius})
	case KindBox:
		b := n.Box()
		return centeredBox(b.Center, b.HalfExtent)
	case KindInfCylinder:
		c := n.InfCylinder()
		return ms3.Box{
			Min: ms3.Vec{X: c.OriginX - c.Radius, Y: c.OriginY - c.Radius, Z: -largenum},
			Max: ms3.Vec{X: c.OriginX + c.Radius, Y: c.OriginY + c.Radius, Z: largenum},
		}
	case KindTorus:
		t := n.Torus()
		r := t.Major + t.Minor
		return centeredBox(t.Center, ms3.Vec{X: r, Y: r, Z: t.Minor})
	}
	return everywhere
}

func centeredBox(center, half ms3.Vec) ms3.Box {
	return ms3.Box{Min: ms3.Sub(center, half), Max: ms3.Add(center, half)}
}
