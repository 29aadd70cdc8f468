package tensor

import (
	"runtime"
	"slices"
	"sync/atomic"
)

// storage is a reference-counted float64 buffer shared between tensors for
// copy-on-write semantics. Cloning a tensor only bumps refs; any write goes
// through solo(), which copies when refs > 1. The buffer itself is left to
// the garbage collector.
type storage struct {
	data []float64
	refs atomic.Int32
}

// newStorage allocates a zeroed buffer with refs = 1.
func newStorage(n int) *storage {
	return storageOf(make([]float64, n))
}

// storageOf wraps data (without copying) with refs = 1.
func storageOf(data []float64) *storage {
	st := &storage{data: data}
	st.refs.Store(1)
	return st
}

func (st *storage) addRef() {
	st.refs.Add(1)
}

func (st *storage) release() {
	st.refs.Add(-1)
}

// isUnique reports whether a single tensor references the buffer.
func (st *storage) isUnique() bool {
	return st.refs.Load() == 1
}

// owner holds one tensor's reference to its current storage. Each tensor
// gets exactly one owner and one cleanup, which drops the reference once
// the tensor is unreachable.
type owner struct {
	st      atomic.Pointer[storage]
	dropped atomic.Bool
}

func (o *owner) drop() {
	if st := o.st.Load(); st != nil && o.dropped.CompareAndSwap(false, true) {
		st.release()
	}
}

// swap makes st the owned storage and releases the previous one.
func (o *owner) swap(st *storage) {
	if old := o.st.Swap(st); old != nil {
		old.release()
	}
}

// claim returns t's owner, creating it on first use. A Tensor copied by
// value still points at the original's owner; claim detects that through
// self and gives the copy its own reference to the same buffer, so writes
// on either side copy first.
func (t *Tensor) claim() *owner {
	if t.self == t {
		return t.own
	}
	o := &owner{}
	if t.own != nil {
		st := t.own.st.Load()
		st.addRef()
		o.st.Store(st)
	}
	t.own, t.self = o, t
	runtime.AddCleanup(t, (*owner).drop, o)
	return o
}

// attach makes st the tensor's storage, consuming one reference of st.
func (t *Tensor) attach(st *storage) {
	t.claim().swap(st)
}

// share makes st the tensor's storage, adding a reference.
func (t *Tensor) share(st *storage) {
	st.addRef()
	t.attach(st)
}

// solo guarantees exclusive ownership of the buffer before a write.
func (t *Tensor) solo() {
	st := t.storage()
	if st.isUnique() {
		return
	}
	t.attach(storageOf(slices.Clone(st.data)))
}

// data returns the raw buffer. Callers must not write to it without solo().
func (t *Tensor) data() []float64 {
	return t.storage().data
}

// storage returns the shared buffer.
func (t *Tensor) storage() *storage {
	return t.claim().st.Load()
}
