package blobsdf

import "strconv"

// PoolBlockSize is the amount of nodes allocated at a time by a [Pool].
const PoolBlockSize = 16

// Pool is an arena of nodes. Nodes are referenced by [NodeID] and live until
// the next call to [Pool.ReleaseAll]. Nodes are allocated in fixed size blocks
// so that pointers returned by [Pool.Allocate] stay valid as the pool grows.
//
// Pool is not safe for concurrent use.
type Pool struct {
	blocks []*[PoolBlockSize]Node
	n      int
}

// Allocate returns a new zero-valued node of kind [KindInvalid] and its id.
func (p *Pool) Allocate() (NodeID, *Node) {
	blk, off := p.n/PoolBlockSize, p.n%PoolBlockSize
	if blk == len(p.blocks) {
		p.blocks = append(p.blocks, new([PoolBlockSize]Node))
	}
	id := NodeID(p.n)
	p.n++
	node := &p.blocks[blk][off]
	*node = Node{}
	return id, node
}

// Node returns the node referenced by id. It panics if id was not allocated
// since the last [Pool.ReleaseAll].
func (p *Pool) Node(id NodeID) *Node {
	if !p.Contains(id) {
		panic("blobsdf: invalid or released node id " + strconv.FormatUint(uint64(id), 10))
	}
	return &p.blocks[id/PoolBlockSize][id%PoolBlockSize]
}

// Contains reports whether id references a live node of the pool.
func (p *Pool) Contains(id NodeID) bool {
	return id != NoNode && int(id) < p.n
}

// Len returns the amount of live nodes.
func (p *Pool) Len() int { return p.n }

// Blocks returns the amount of blocks allocated by the pool, including unused blocks kept after a reset.
func (p *Pool) Blocks() int { return len(p.blocks) }

// ReleaseAll invalidates every node allocated so far. The pool's blocks are kept for reuse.
// Callers must not use node ids or pointers obtained before the reset.
func (p *Pool) ReleaseAll() {
	p.n = 0
}
