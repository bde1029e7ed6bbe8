// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vector implements a growable array of T over pool-backed storage
// that keeps a defined state when an element operation fails.
//
// Operations that change the capacity build the new storage completely
// before retiring the old one, so a failure leaves the Vector exactly as it
// was. Operations that shift elements in place only keep every slot live.
//
// A Vector is not safe for concurrent use.
package vector

import (
	"fmt"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/common/mpool"
	"github.com/matrixorigin/advvec/pkg/container/lifecycle"
	"github.com/matrixorigin/advvec/pkg/container/rawmem"
)

// Vector is a growable array of T. The zero value is an empty Vector that
// allocates from the default pool.
type Vector[T any] struct {
	data rawmem.Storage[T]
	size int
	ops  *lifecycle.Ops[T]
	mp   *mpool.MPool
}

type options struct {
	mp *mpool.MPool
}

type Option func(*options)

// WithMPool makes the Vector allocate from mp instead of the default pool.
func WithMPool(mp *mpool.MPool) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// New returns an empty Vector without allocating.
func New[T any](opts ...Option) *Vector[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.mp == nil {
		o.mp = mpool.Default()
	}
	return &Vector[T]{
		ops: lifecycle.For[T](),
		mp:  o.mp,
	}
}

// lazyInit resolves the operations and pool of a zero Vector.
func (v *Vector[T]) lazyInit() {
	if v.ops == nil {
		v.ops = lifecycle.For[T]()
	}
	if v.mp == nil {
		v.mp = mpool.Default()
	}
}

// NewWithSize returns a Vector of n value-constructed elements and capacity
// n. If a construction fails the elements built so far are destroyed and no
// Vector is returned.
func NewWithSize[T any](n int, opts ...Option) (*Vector[T], error) {
	if n < 0 {
		return nil, moerr.NewInvalidArgNoCtx("vector size", n)
	}
	v := New[T](opts...)
	data, err := rawmem.New[T](v.mp, n)
	if err != nil {
		return nil, err
	}
	if err = lifecycle.ValueConstructN(v.ops, data.Slots(0, n)); err != nil {
		data.Release()
		return nil, err
	}
	v.data = data
	v.size = n
	return v, nil
}

// Clone returns a copy of v with capacity Len().
func (v *Vector[T]) Clone() (*Vector[T], error) {
	v.lazyInit()
	return v.clone(v.mp)
}

func (v *Vector[T]) clone(mp *mpool.MPool) (*Vector[T], error) {
	data, err := rawmem.New[T](mp, v.size)
	if err != nil {
		return nil, err
	}
	if err = lifecycle.UninitializedCopyN(v.ops, v.live(), data.Slots(0, v.size)); err != nil {
		data.Release()
		return nil, err
	}
	return &Vector[T]{
		data: data,
		size: v.size,
		ops:  v.ops,
		mp:   mp,
	}, nil
}

// Move transfers the content of v to a new Vector. v is left empty.
func (v *Vector[T]) Move() *Vector[T] {
	v.lazyInit()
	ret := &Vector[T]{
		data: v.data.Take(),
		size: v.size,
		ops:  v.ops,
		mp:   v.mp,
	}
	v.size = 0
	return ret
}

// Free destroys every element and releases the storage. The Vector stays
// usable.
func (v *Vector[T]) Free() {
	v.lazyInit()
	lifecycle.DestroyN(v.ops, v.live())
	v.size = 0
	v.data.Release()
}

func (v *Vector[T]) Len() int {
	return v.size
}

func (v *Vector[T]) Cap() int {
	return v.data.Capacity()
}

// At returns the element at i. It panics if i is not in [0, Len()).
func (v *Vector[T]) At(i int) *T {
	if i < 0 || i >= v.size {
		panic(moerr.NewOutOfRangeNoCtx("vector index", "%d not in [0, %d)", i, v.size))
	}
	return v.data.At(i)
}

// Slice returns the live elements. It is invalidated by any reallocation.
func (v *Vector[T]) Slice() []T {
	return v.live()
}

func (v *Vector[T]) live() []T {
	return v.data.Slots(0, v.size)
}

// MPool is the pool v allocates from.
func (v *Vector[T]) MPool() *mpool.MPool {
	v.lazyInit()
	return v.mp
}

// Reserve makes room for at least n elements. On failure v is unchanged.
func (v *Vector[T]) Reserve(n int) error {
	if n <= v.data.Capacity() {
		return nil
	}
	return v.reallocate(n)
}

// reallocate moves the live elements into a new storage of capacity n.
func (v *Vector[T]) reallocate(n int) error {
	v.lazyInit()
	data, err := rawmem.New[T](v.mp, n)
	if err != nil {
		return err
	}
	if err = lifecycle.UninitializedRelocateN(v.ops, v.live(), data.Slots(0, v.size)); err != nil {
		data.Release()
		return err
	}
	v.commit(&data)
	return nil
}

// commit destroys the current elements and adopts data, whose first
// v.size slots are already live.
func (v *Vector[T]) commit(data *rawmem.Storage[T]) {
	lifecycle.DestroyN(v.ops, v.live())
	v.data.Swap(data)
	data.Release()
}

// Resize changes Len() to n. Growing past Cap() reserves
// max(2*Cap(), n) first. If a new element fails to construct, the new
// elements are destroyed and Len() is unchanged, but the capacity keeps
// its growth.
func (v *Vector[T]) Resize(n int) error {
	if n < 0 {
		return moerr.NewInvalidArgNoCtx("vector size", n)
	}
	v.lazyInit()
	if n <= v.size {
		lifecycle.DestroyN(v.ops, v.data.Slots(n, v.size))
		v.size = n
		return nil
	}
	if n > v.data.Capacity() {
		if err := v.Reserve(max(2*v.data.Capacity(), n)); err != nil {
			return err
		}
	}
	if err := lifecycle.ValueConstructN(v.ops, v.data.Slots(v.size, n)); err != nil {
		return err
	}
	v.size = n
	return nil
}

// CopyAssign makes v a copy of rhs.
//
// When rhs fits in Cap() the storage is reused: the common prefix is copy
// assigned and the rest constructed or destroyed. A failure there leaves
// every element live but possibly only partly assigned. Otherwise a full
// copy of rhs is built first and swapped in, and a failure leaves v
// unchanged.
func (v *Vector[T]) CopyAssign(rhs *Vector[T]) error {
	if v == rhs {
		return nil
	}
	v.lazyInit()
	rhs.lazyInit()
	if rhs.size > v.data.Capacity() {
		tmp, err := rhs.clone(v.mp)
		if err != nil {
			return err
		}
		v.Swap(tmp)
		tmp.Free()
		return nil
	}

	common := min(v.size, rhs.size)
	for i := 0; i < common; i++ {
		if err := v.ops.CopyAssign(v.data.At(i), rhs.data.At(i)); err != nil {
			return err
		}
	}
	if v.size < rhs.size {
		err := lifecycle.UninitializedCopyN(v.ops, rhs.data.Slots(v.size, rhs.size), v.data.Slots(v.size, rhs.size))
		if err != nil {
			return err
		}
	} else {
		lifecycle.DestroyN(v.ops, v.data.Slots(rhs.size, v.size))
	}
	v.size = rhs.size
	return nil
}

// MoveAssign exchanges the contents of v and rhs. It never fails.
func (v *Vector[T]) MoveAssign(rhs *Vector[T]) {
	v.Swap(rhs)
}

// Swap exchanges storage, length and pool of v and other.
func (v *Vector[T]) Swap(other *Vector[T]) {
	v.lazyInit()
	other.lazyInit()
	v.data.Swap(&other.data)
	v.size, other.size = other.size, v.size
	v.mp, other.mp = other.mp, v.mp
}

func (v *Vector[T]) String() string {
	return fmt.Sprint(v.live())
}
