// Package blobsdf builds CSG trees of implicit surface primitives and compiles
// them into a flat structure of arrays ([SoA]) that is evaluated in batches of
// points by package blobeval.
package blobsdf

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// largenum bounds the representable range used for unbounded shapes.
	largenum = math32.MaxFloat32
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization.
	epstol = 6e-7
)

var (
	// ErrInvalidNodeType is returned when compiling a node with an unknown discriminant.
	ErrInvalidNodeType = errors.New("invalid node type")
	// ErrInvalidNode is returned when a node references a node outside of the pool or
	// a child that does not precede its parent.
	ErrInvalidNode = errors.New("invalid node reference")
	// ErrTooManyNodes is returned when the linearized tree exceeds [MaxNodes] or
	// its parameters exceed the addressable parameter range.
	ErrTooManyNodes = errors.New("too many nodes in tree")
	// ErrNilPool is returned when compiling without a pool.
	ErrNilPool = errors.New("nil node pool")
)

// Flags modify [Builder] behavior.
type Flags uint64

const (
	// FlagNoDimensionPanic makes the Builder accumulate dimension errors
	// instead of panicking. Errors are retrieved via [Builder.Err].
	FlagNoDimensionPanic Flags = 1 << iota
)

// Builder creates nodes in a [Pool]. The zero value allocates its own pool on first use.
// Provides error handling strategies with panics or error accumulation during shape generation.
type Builder struct {
	pool      *Pool
	flags     Flags
	accumErrs []error
}

// NewBuilder returns a Builder that allocates nodes in pool.
func NewBuilder(pool *Pool) *Builder {
	if pool == nil {
		panic("blobsdf: nil pool")
	}
	return &Builder{pool: pool}
}

// Pool returns the pool nodes are allocated in.
func (bld *Builder) Pool() *Pool {
	if bld.pool == nil {
		bld.pool = new(Pool)
	}
	return bld.pool
}

// Flags returns the Builder's flags.
func (bld *Builder) Flags() Flags { return bld.flags }

// SetFlags sets the Builder's flags.
func (bld *Builder) SetFlags(flags Flags) { bld.flags = flags }

// Err returns all accumulated errors joined, or nil if there are none.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated errors.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if bld.flags&FlagNoDimensionPanic == 0 {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (bld *Builder) mustNode(id NodeID, msg string) {
	if !bld.Pool().Contains(id) {
		panic("invalid node argument: " + msg)
	}
}

func (bld *Builder) alloc(kind Kind, mat Material) (NodeID, *Node) {
	id, n := bld.Pool().Allocate()
	n.kind = kind
	n.mat = mat
	return id, n
}
