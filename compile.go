package blobsdf

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
)

// Compile linearizes the tree rooted at root into a new [SoA].
// The pool is not modified and no references to it are retained.
func Compile(pool *Pool, root NodeID) (*SoA, error) {
	soa := new(SoA)
	err := CompileInto(soa, pool, root)
	if err != nil {
		return nil, err
	}
	return soa, nil
}

// CompileInto linearizes the tree rooted at root into dst, reusing dst's
// buffer if it is large enough. On error dst is left empty.
func CompileInto(dst *SoA, pool *Pool, root NodeID) error {
	if pool == nil {
		return ErrNilPool
	}
	var c compiler
	c.pool = pool
	err := c.analyze(root)
	if err != nil {
		dst.reset()
		return err
	}
	numNodes := c.ops + c.prims
	dst.layout(numNodes, c.params)
	dst.NumOperators = c.ops
	dst.NumPrimitives = c.prims
	dst.NumParams = c.params
	c.dst = dst
	_, err = c.linearize(root)
	if err != nil {
		// Analysis validates the tree so this is only reachable if the pool
		// was modified during compilation.
		dst.reset()
		return err
	}
	if c.nextNode != numNodes || c.nextParam != c.params {
		panic("blobsdf: linearization did not match analysis")
	}
	Logger().Debug("blobsdf: compiled tree",
		"operators", c.ops, "primitives", c.prims, "params", c.params, "bytes", len(dst.buf)*4)
	return nil
}

func (s *SoA) reset() {
	*s = SoA{buf: s.buf[:0]}
}

type compiler struct {
	pool *Pool
	dst  *SoA
	// Analysis counts.
	ops, prims, params int
	// Linearization cursors.
	nextNode, nextParam int
}

// node returns the node referenced by id with structural checks.
// parent is the index of the referencing node in the pool or NoNode for the root.
func (c *compiler) node(id, parent NodeID) (*Node, error) {
	if !c.pool.Contains(id) {
		return nil, fmt.Errorf("%w: node %d not in pool", ErrInvalidNode, id)
	} else if parent != NoNode && id >= parent {
		// Builders always create children before parents, which rules out cycles.
		return nil, fmt.Errorf("%w: child %d does not precede parent %d", ErrInvalidNode, id, parent)
	}
	return c.pool.Node(id), nil
}

func (c *compiler) analyze(root NodeID) error {
	return c.analyzeR(root, NoNode)
}

func (c *compiler) analyzeR(id, parent NodeID) error {
	n, err := c.node(id, parent)
	if err != nil {
		return err
	}
	if c.ops+c.prims >= MaxNodes {
		return ErrTooManyNodes
	}
	switch {
	case n.kind.IsOperator():
		c.ops++
		err = c.analyzeR(n.left, id)
		if err != nil {
			return err
		}
		return c.analyzeR(n.right, id)
	case n.kind.IsShape():
		c.prims++
		c.params += n.kind.paramSlots()
		if c.params >= maxParams {
			return ErrTooManyNodes
		}
		return nil
	}
	return fmt.Errorf("%w: %s at node %d", ErrInvalidNodeType, n.kind, id)
}

// linearize writes the node referenced by id and its children in pre-order
// and returns the node's index in the compiled tree.
func (c *compiler) linearize(id NodeID) (int, error) {
	n := c.pool.Node(id)
	idx := c.nextNode
	c.nextNode++
	dst := c.dst
	kind := n.kind
	if kind.IsOperator() {
		left, err := c.linearize(n.left)
		if err != nil {
			return 0, err
		}
		right, err := c.linearize(n.right)
		if err != nil {
			return 0, err
		}
		dst.Types[idx] = makeOpWord(kind, left, right)
		lbb, rbb := dst.AABBs[left], dst.AABBs[right]
		switch kind {
		case KindUnion:
			dst.AABBs[idx] = boxUnion(lbb, rbb)
		case KindDifference:
			dst.AABBs[idx] = lbb
		case KindIntersection:
			dst.AABBs[idx] = boxIntersect(lbb, rbb)
		}
		return idx, nil
	}

	off := c.nextParam
	params := dst.Params[off : off+kind.paramSlots()]
	mat := math32.Float32frombits(uint32(n.mat))
	switch kind {
	case KindPlane:
		p := n.Plane()
		params[0] = lane.F32{p.Normal.X, p.Normal.Y, p.Normal.Z, p.Offset}
		params[1] = lane.F32{mat}
	case KindSphere:
		s := n.Sphere()
		params[0] = lane.F32{s.Center.X, s.Center.Y, s.Center.Z, s.Radius}
		params[1] = lane.F32{mat}
	case KindBox:
		b := n.Box()
		params[0] = lane.F32{b.Center.X, b.Center.Y, b.Center.Z, mat}
		params[1] = lane.F32{b.HalfExtent.X, b.HalfExtent.Y, b.HalfExtent.Z}
	case KindInfCylinder:
		cy := n.InfCylinder()
		params[0] = lane.F32{cy.OriginX, cy.OriginY, cy.Radius, mat}
	case KindTorus:
		t := n.Torus()
		params[0] = lane.F32{t.Center.X, t.Center.Y, t.Center.Z, t.Major}
		params[1] = lane.F32{t.Minor, mat}
	case KindSineWave, KindGyroid:
		p := n.Periodic()
		params[0] = lane.F32{p.Scale.X, p.Scale.Y, p.Scale.Z, mat}
	default:
		return 0, fmt.Errorf("%w: %s at node %d", ErrInvalidNodeType, kind, id)
	}
	c.nextParam += len(params)
	dst.Types[idx] = makeShapeWord(kind, off)
	dst.AABBs[idx] = shapeBounds(n)
	return idx, nil
}

// ShapeMaterial returns the material stored in a primitive's parameters.
func (s *SoA) ShapeMaterial(idx int) Material {
	w := s.Types[idx]
	if !w.Kind().IsShape() {
		return MaterialEmpty
	}
	p := s.Params[w.ParamOffset():]
	var bits float32
	switch w.Kind() {
	case KindPlane, KindSphere:
		bits = p[1][0]
	case KindBox, KindInfCylinder, KindSineWave, KindGyroid:
		bits = p[0][3]
	case KindTorus:
		bits = p[1][1]
	}
	return Material(math32.Float32bits(bits))
}

// NodeBounds returns the bounding box of the compiled node at idx.
func (s *SoA) NodeBounds(idx int) ms3.Box { return s.AABBs[idx] }
