package blobsdf

import (
	"bytes"
	"unsafe"

	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
)

// MaxNodes is the maximum amount of nodes in a compiled tree. Child indices
// are packed in 14 bits each in a [Word].
const MaxNodes = 1 << 14

const (
	kindBits  = 4
	kindMask  = 1<<kindBits - 1
	indexBits = 14
	indexMask = 1<<indexBits - 1
	// maxParams is the amount of parameter lanes addressable by a primitive Word.
	maxParams = 1 << (32 - kindBits)
)

// Word is a packed node descriptor of a compiled tree. The low 4 bits hold the
// [Kind]. Operators hold the left child index in the next 14 bits and the right
// child index in the upper 14 bits. Primitives hold their parameter offset in
// the upper 28 bits.
type Word uint32

func makeOpWord(k Kind, left, right int) Word {
	return Word(k) | Word(left&indexMask)<<kindBits | Word(right&indexMask)<<(kindBits+indexBits)
}

func makeShapeWord(k Kind, paramOffset int) Word {
	return Word(k) | Word(paramOffset)<<kindBits
}

// Kind returns the node discriminant.
func (w Word) Kind() Kind { return Kind(w & kindMask) }

// Left returns the left child index of an operator.
func (w Word) Left() int { return int(w>>kindBits) & indexMask }

// Right returns the right child index of an operator.
func (w Word) Right() int { return int(w>>(kindBits+indexBits)) & indexMask }

// ParamOffset returns the offset of a primitive's parameters in [SoA.Params].
func (w Word) ParamOffset() int { return int(w >> kindBits) }

// SoA is a compiled BlobTree: nodes are linearized in pre-order so node 0 is
// the root and every operator's children have greater indices than the operator.
// The three arrays are sub-slices of a single contiguous buffer.
//
// A SoA is read-only after compilation and safe for concurrent evaluation.
type SoA struct {
	// Types holds one packed descriptor per node.
	Types []Word
	// AABBs holds the conservative bounding box of each node, indexed like Types.
	AABBs []ms3.Box
	// Params holds primitive parameters, referenced by [Word.ParamOffset].
	Params []lane.F32

	NumOperators  int
	NumPrimitives int
	NumParams     int

	buf []uint32
}

// Len returns the amount of nodes in the compiled tree.
func (s *SoA) Len() int { return len(s.Types) }

// Bounds returns the bounding box of the root node.
func (s *SoA) Bounds() ms3.Box {
	if len(s.AABBs) == 0 {
		return ms3.Box{}
	}
	return s.AABBs[0]
}

// Bytes returns the raw contents of the backing buffer. The returned slice aliases the SoA.
func (s *SoA) Bytes() []byte {
	if len(s.buf) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s.buf[0])), len(s.buf)*4)
}

// Equal reports whether both compiled trees have identical layout and contents.
func (s *SoA) Equal(other *SoA) bool {
	return s.NumOperators == other.NumOperators && s.NumPrimitives == other.NumPrimitives &&
		s.NumParams == other.NumParams && bytes.Equal(s.Bytes(), other.Bytes())
}

const (
	wordsPerBox  = int(unsafe.Sizeof(ms3.Box{}) / 4)
	wordsPerLane = int(unsafe.Sizeof(lane.F32{}) / 4)
)

// alignWords rounds n up to a multiple of the lane width.
func alignWords(n int) int {
	return (n + wordsPerLane - 1) &^ (wordsPerLane - 1)
}

// layout sizes the backing buffer for the node and parameter counts and slices the sections.
func (s *SoA) layout(numNodes, numParams int) {
	typesOff := 0
	aabbOff := alignWords(typesOff + numNodes)
	paramOff := alignWords(aabbOff + numNodes*wordsPerBox)
	total := alignWords(paramOff + numParams*wordsPerLane)
	if cap(s.buf) < total {
		s.buf = make([]uint32, total)
	} else {
		s.buf = s.buf[:total]
		clear(s.buf)
	}
	base := unsafe.Pointer(unsafe.SliceData(s.buf))
	s.Types = unsafe.Slice((*Word)(base), numNodes)
	s.AABBs = unsafe.Slice((*ms3.Box)(unsafe.Add(base, aabbOff*4)), numNodes)
	s.Params = unsafe.Slice((*lane.F32)(unsafe.Add(base, paramOff*4)), numParams)
}
