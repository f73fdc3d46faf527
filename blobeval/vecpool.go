package blobeval

import (
	"errors"
	"fmt"

	"github.com/soypat/blobsdf/lane"
	"github.com/soypat/geometry/ms3"
)

// GetVecPool asserts the userData as a VecPool. If assert fails then
// an error is returned with information on what went wrong.
func GetVecPool(userData any) (*VecPool, error) {
	vp, ok := userData.(*VecPool)
	if !ok {
		vper, ok := userData.(interface{ VecPool() *VecPool })
		if !ok {
			return nil, fmt.Errorf("want userData type blobeval.VecPool for evaluations, got %T", userData)
		}
		vp = vper.VecPool()
		if vp == nil {
			return nil, fmt.Errorf("nil return value from VecPool method of %T", userData)
		}
	}
	return vp, nil
}

// VecPool serves as a pool of scratch buffers for evaluating SDFs
// while reducing garbage generation.
type VecPool struct {
	V3    bufPool[ms3.Vec]
	Float bufPool[float32]
	// Dist and Mat hold lane buffers used for operator child results.
	Dist bufPool[lane.F32]
	Mat  bufPool[lane.U32]
}

// AssertAllReleased checks all buffers are not in use. Should be called
// after ending a run to find memory leaks.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return err
	}
	err = vp.V3.assertAllReleased()
	if err != nil {
		return err
	}
	err = vp.Dist.assertAllReleased()
	if err != nil {
		return err
	}
	return vp.Mat.assertAllReleased()
}

type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a buffer of length minLength that is not in use.
func (bp *bufPool[T]) Acquire(minLength int) []T {
	for i, locked := range bp._acquired {
		if !locked && cap(bp._ins[i]) >= minLength {
			bp._acquired[i] = true
			return bp._ins[i][:minLength]
		}
	}
	newSlice := make([]T, max(minLength, 1))
	bp._ins = append(bp._ins, newSlice)
	bp._acquired = append(bp._acquired, true)
	return newSlice[:minLength]
}

// Release returns buf to the pool. buf must have been returned by Acquire.
func (bp *bufPool[T]) Release(buf []T) error {
	if cap(buf) == 0 {
		return errors.New("release of empty buffer")
	}
	for i, instance := range bp._ins {
		if &instance[:1][0] == &buf[:1][0] {
			if !bp._acquired[i] {
				return errors.New("release of unacquired resource")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("release of nonexistent resource")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for _, locked := range bp._acquired {
		if locked {
			return fmt.Errorf("locked %T resource found in blobeval.bufPool.assertAllReleased, memory leak?", *new(T))
		}
	}
	return nil
}
