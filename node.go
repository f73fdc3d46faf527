package blobsdf

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Kind is the node discriminant. Operator kinds are numerically below all
// shape kinds so that classification is a single comparison, see [Kind.IsOperator].
type Kind uint8

const (
	// KindInvalid is the zero value of a node that was allocated but never set.
	KindInvalid Kind = iota
	KindUnion
	KindDifference
	KindIntersection
	KindPlane // First shape kind.
	KindSphere
	KindBox
	KindInfCylinder
	KindTorus
	KindSineWave
	KindGyroid
	kindEnd
)

const firstShape = KindPlane

// IsOperator reports whether k is a binary CSG operator.
// KindInvalid wraps around to 255 and is never an operator.
func (k Kind) IsOperator() bool { return k-1 < firstShape-1 }

// IsShape reports whether k is a primitive shape.
func (k Kind) IsShape() bool { return k >= firstShape && k < kindEnd }

// IsValid reports whether k is a known operator or shape.
func (k Kind) IsValid() bool { return k > KindInvalid && k < kindEnd }

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnion:
		return "union"
	case KindDifference:
		return "difference"
	case KindIntersection:
		return "intersection"
	case KindPlane:
		return "plane"
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindInfCylinder:
		return "infcylinder"
	case KindTorus:
		return "torus"
	case KindSineWave:
		return "sinewave"
	case KindGyroid:
		return "gyroid"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// paramSlots returns the amount of parameter lanes a shape occupies in compiled form.
// It returns 0 for non-shape kinds.
func (k Kind) paramSlots() int {
	switch k {
	case KindPlane, KindSphere, KindBox, KindInfCylinder, KindTorus:
		return 2
	case KindSineWave, KindGyroid:
		return 1
	}
	return 0
}

// Material identifies the substance of solid space. Materials are opaque ids.
type Material uint32

const (
	// MaterialEmpty is the material of points outside of all shapes.
	MaterialEmpty Material = 0
	// MaterialDefault is assigned to the solid region of an intersection.
	MaterialDefault Material = 1
)

// NodeID references a node inside the [Pool] that allocated it.
type NodeID uint32

// NoNode is an invalid node reference.
const NoNode NodeID = ^NodeID(0)

// Node is a tagged union of a CSG operator or primitive shape. Payloads
// are read through accessors that check the discriminant first.
type Node struct {
	kind Kind
	mat  Material
	// left and right are only meaningful for operators.
	left, right NodeID
	args        [8]float32
}

type (
	// Binary is the payload of operator nodes.
	Binary struct {
		Left, Right NodeID
	}
	// Plane is the payload of a plane: points p with dot(Normal,p)+Offset <= 0 are inside.
	Plane struct {
		Normal ms3.Vec
		Offset float32
	}
	// Sphere is the payload of a sphere.
	Sphere struct {
		Center ms3.Vec
		Radius float32
	}
	// Box is the payload of an axis aligned box.
	Box struct {
		Center     ms3.Vec
		HalfExtent ms3.Vec
	}
	// InfCylinder is the payload of a z-axis aligned cylinder of infinite length.
	InfCylinder struct {
		OriginX, OriginY float32
		Radius           float32
	}
	// Torus is the payload of a torus lying on the XY plane.
	Torus struct {
		Center ms3.Vec
		// Major is the distance from the center to the tube's center line.
		Major float32
		// Minor is the tube radius.
		Minor float32
	}
	// Periodic is the payload of the sine wave and gyroid shapes.
	Periodic struct {
		Scale ms3.Vec
	}
)

// Kind returns the node's discriminant.
func (n *Node) Kind() Kind { return n.kind }

// Material returns the material of a shape node. Operators have no material of their own.
func (n *Node) Material() Material { return n.mat }

func (n *Node) Binary() Binary {
	if !n.kind.IsOperator() {
		n.kindPanic("operator")
	}
	return Binary{Left: n.left, Right: n.right}
}

func (n *Node) Plane() Plane {
	n.mustKind(KindPlane)
	return Plane{Normal: n.vec(0), Offset: n.args[3]}
}

func (n *Node) Sphere() Sphere {
	n.mustKind(KindSphere)
	return Sphere{Center: n.vec(0), Radius: n.args[3]}
}

func (n *Node) Box() Box {
	n.mustKind(KindBox)
	return Box{Center: n.vec(0), HalfExtent: n.vec(3)}
}

func (n *Node) InfCylinder() InfCylinder {
	n.mustKind(KindInfCylinder)
	return InfCylinder{OriginX: n.args[0], OriginY: n.args[1], Radius: n.args[2]}
}

func (n *Node) Torus() Torus {
	n.mustKind(KindTorus)
	return Torus{Center: n.vec(0), Major: n.args[3], Minor: n.args[4]}
}

// Periodic returns the payload of a sine wave or gyroid node.
func (n *Node) Periodic() Periodic {
	if n.kind != KindSineWave && n.kind != KindGyroid {
		n.kindPanic("sinewave or gyroid")
	}
	return Periodic{Scale: n.vec(0)}
}

func (n *Node) vec(i int) ms3.Vec {
	return ms3.Vec{X: n.args[i], Y: n.args[i+1], Z: n.args[i+2]}
}

func (n *Node) setVec(i int, v ms3.Vec) {
	n.args[i], n.args[i+1], n.args[i+2] = v.X, v.Y, v.Z
}

func (n *Node) mustKind(k Kind) {
	if n.kind != k {
		n.kindPanic(k.String())
	}
}

func (n *Node) kindPanic(want string) {
	panic("blobsdf: access of " + want + " payload on " + n.kind.String() + " node")
}
