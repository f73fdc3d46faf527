package blobsdf

import "github.com/soypat/geometry/ms3"

// Union joins the solid regions of a and b.
func (bld *Builder) Union(a, b NodeID) NodeID {
	return bld.binary(KindUnion, a, b)
}

// UnionAll joins all shapes. It left-folds the arguments into a chain of unions.
func (bld *Builder) UnionAll(shapes ...NodeID) NodeID {
	if len(shapes) == 0 {
		panic("need at least one argument to UnionAll")
	}
	u := shapes[0]
	for _, s := range shapes[1:] {
		u = bld.Union(u, s)
	}
	return u
}

// Difference removes the solid region of b from a.
func (bld *Builder) Difference(a, b NodeID) NodeID {
	return bld.binary(KindDifference, a, b)
}

// Intersection keeps the region that is solid in both a and b.
func (bld *Builder) Intersection(a, b NodeID) NodeID {
	return bld.binary(KindIntersection, a, b)
}

func (bld *Builder) binary(kind Kind, a, b NodeID) NodeID {
	bld.mustNode(a, kind.String()+" first argument")
	bld.mustNode(b, kind.String()+" second argument")
	id, n := bld.alloc(kind, MaterialEmpty)
	n.left, n.right = a, b
	return id
}

// Overlaps reports whether the closed boxes a and b share at least one point.
// An empty box overlaps nothing.
func Overlaps(a, b ms3.Box) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return false
	}
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// IsEmpty reports whether box is inverted along any axis, as results from
// intersecting disjoint boxes.
func IsEmpty(box ms3.Box) bool {
	return box.Min.X > box.Max.X || box.Min.Y > box.Max.Y || box.Min.Z > box.Max.Z
}

// Contains reports whether p lies inside or on the boundary of box.
func Contains(box ms3.Box, p ms3.Vec) bool {
	return p.X >= box.Min.X && p.X <= box.Max.X &&
		p.Y >= box.Min.Y && p.Y <= box.Max.Y &&
		p.Z >= box.Min.Z && p.Z <= box.Max.Z
}

// Expand grows box by d in every direction. Coordinates saturate at the representable range.
func Expand(box ms3.Box, d float32) ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: satAdd(box.Min.X, -d), Y: satAdd(box.Min.Y, -d), Z: satAdd(box.Min.Z, -d)},
		Max: ms3.Vec{X: satAdd(box.Max.X, d), Y: satAdd(box.Max.Y, d), Z: satAdd(box.Max.Z, d)},
	}
}

func satAdd(a, b float32) float32 {
	c := a + b
	if c > largenum {
		return largenum
	} else if c < -largenum {
		return -largenum
	}
	return c
}

func boxUnion(a, b ms3.Box) ms3.Box {
	if IsEmpty(a) {
		return b
	} else if IsEmpty(b) {
		return a
	}
	return ms3.Box{Min: ms3.MinElem(a.Min, b.Min), Max: ms3.MaxElem(a.Max, b.Max)}
}

// boxIntersect returns the intersection of a and b. Disjoint boxes result in an
// inverted box which overlaps nothing.
func boxIntersect(a, b ms3.Box) ms3.Box {
	return ms3.Box{Min: ms3.MaxElem(a.Min, b.Min), Max: ms3.MinElem(a.Max, b.Max)}
}
