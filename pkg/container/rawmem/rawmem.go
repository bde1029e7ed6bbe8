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

// Package rawmem owns blocks of element slots drawn from a memory pool.
// It never runs element lifecycle hooks: a slot is live only if the caller
// constructed something there, and the caller must destroy live slots
// before releasing the block.
package rawmem

import (
	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/common/mpool"
)

// Allocate returns n zeroed slots from mp. n == 0 returns nil without
// touching the pool.
func Allocate[T any](mp *mpool.MPool, n int) ([]T, error) {
	if n < 0 {
		return nil, moerr.NewInvalidArgNoCtx("storage capacity", n)
	}
	if n == 0 {
		return nil, nil
	}
	return mpool.MakeSlice[T](mp, n)
}

// Deallocate returns buf to mp. A nil buf is a no-op.
func Deallocate[T any](mp *mpool.MPool, buf []T) {
	if buf == nil {
		return
	}
	mpool.FreeSlice(mp, buf)
}

// Storage is an exclusively owned block of slots. The zero value is an
// empty storage. Storage must not be copied; use Take to transfer it.
type Storage[T any] struct {
	buf []T
	mp  *mpool.MPool
}

// New allocates a storage of exactly capacity slots from mp.
func New[T any](mp *mpool.MPool, capacity int) (Storage[T], error) {
	buf, err := Allocate[T](mp, capacity)
	if err != nil {
		return Storage[T]{}, err
	}
	return Storage[T]{
		buf: buf,
		mp:  mp,
	}, nil
}

func (s *Storage[T]) Capacity() int {
	return len(s.buf)
}

// At returns slot i. i must be below Capacity.
func (s *Storage[T]) At(i int) *T {
	return &s.buf[i]
}

// Slots returns the window [lo,hi). Its capacity stops at hi.
func (s *Storage[T]) Slots(lo, hi int) []T {
	return s.buf[lo:hi:hi]
}

// Take moves ownership out of s, leaving s empty.
func (s *Storage[T]) Take() Storage[T] {
	ret := *s
	*s = Storage[T]{}
	return ret
}

// Swap exchanges the blocks of s and other without touching their slots.
func (s *Storage[T]) Swap(other *Storage[T]) {
	*s, *other = *other, *s
}

// Release deallocates the block and leaves s empty.
func (s *Storage[T]) Release() {
	if s.buf != nil {
		Deallocate(s.mp, s.buf)
	}
	*s = Storage[T]{}
}
