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

package vector

import (
	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/container/lifecycle"
	"github.com/matrixorigin/advvec/pkg/container/rawmem"
)

// Emplace constructs a new element at pos with ctor, shifting the elements
// at and after pos one to the right, and returns pos. A nil ctor value
// constructs the element. pos must be in [0, Len()].
//
// When Len() == Cap() the Vector grows to max(2*Cap(), 1). The new element
// is built in the new storage before any existing element is touched, and
// any failure leaves the Vector unchanged.
//
// With spare capacity, appending at Len() is also all or nothing. Inserting
// before Len() builds the element in a temporary, move-constructs the last
// element one slot further, which already counts it in Len(), and then
// move-assigns the others backward. If a move fails after that point every
// slot is still live, Len() is one larger and the order of the shifted
// elements is unspecified.
func (v *Vector[T]) Emplace(pos int, ctor func(*T) error) (int, error) {
	return v.emplace(pos, func(dst *T) error {
		return v.ops.Emplace(dst, ctor)
	})
}

// EmplaceBack is Emplace at Len(). It returns the new element.
func (v *Vector[T]) EmplaceBack(ctor func(*T) error) (*T, error) {
	pos, err := v.Emplace(v.size, ctor)
	if err != nil {
		return nil, err
	}
	return v.data.At(pos), nil
}

// PushBack appends a copy of *val. val may point into v.
func (v *Vector[T]) PushBack(val *T) error {
	_, err := v.Insert(v.size, val)
	return err
}

// PushBackMove appends *val by moving it.
func (v *Vector[T]) PushBackMove(val *T) error {
	_, err := v.InsertMove(v.size, val)
	return err
}

// Insert is Emplace with a copy of *val.
func (v *Vector[T]) Insert(pos int, val *T) (int, error) {
	return v.emplace(pos, func(dst *T) error {
		return v.ops.Copy(dst, val)
	})
}

// InsertMove is Emplace moving *val.
func (v *Vector[T]) InsertMove(pos int, val *T) (int, error) {
	return v.emplace(pos, func(dst *T) error {
		return v.ops.Move(dst, val)
	})
}

func (v *Vector[T]) emplace(pos int, build func(dst *T) error) (int, error) {
	if pos < 0 || pos > v.size {
		return 0, moerr.NewInvalidArgNoCtx("vector position", pos)
	}
	v.lazyInit()
	var err error
	if v.size == v.data.Capacity() {
		err = v.growInsert(pos, build)
	} else {
		err = v.insertInPlace(pos, build)
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}

func (v *Vector[T]) growInsert(pos int, build func(dst *T) error) error {
	data, err := rawmem.New[T](v.mp, max(2*v.data.Capacity(), 1))
	if err != nil {
		return err
	}
	if err = build(data.At(pos)); err != nil {
		data.Release()
		return err
	}
	if err = lifecycle.UninitializedRelocateN(v.ops, v.data.Slots(0, pos), data.Slots(0, pos)); err != nil {
		v.ops.Destroy(data.At(pos))
		data.Release()
		return err
	}
	if err = lifecycle.UninitializedRelocateN(v.ops, v.data.Slots(pos, v.size), data.Slots(pos+1, v.size+1)); err != nil {
		lifecycle.DestroyN(v.ops, data.Slots(0, pos+1))
		data.Release()
		return err
	}
	v.commit(&data)
	v.size++
	return nil
}

func (v *Vector[T]) insertInPlace(pos int, build func(dst *T) error) error {
	if pos == v.size {
		if err := build(v.data.At(v.size)); err != nil {
			return err
		}
		v.size++
		return nil
	}

	var tmp T
	if err := build(&tmp); err != nil {
		return err
	}
	defer v.ops.Destroy(&tmp)

	if err := v.ops.Move(v.data.At(v.size), v.data.At(v.size-1)); err != nil {
		return err
	}
	v.size++
	for i := v.size - 2; i > pos; i-- {
		if err := v.ops.MoveAssign(v.data.At(i), v.data.At(i-1)); err != nil {
			return err
		}
	}
	return v.ops.MoveAssign(v.data.At(pos), &tmp)
}

// Erase removes the element at pos, shifting the following elements left,
// and returns pos. pos must be in [0, Len()). The storage is kept.
//
// If a move assignment fails, Len() is unchanged and every slot is still
// live, but the elements from pos on may be partly shifted.
func (v *Vector[T]) Erase(pos int) (int, error) {
	if pos < 0 || pos >= v.size {
		return 0, moerr.NewInvalidArgNoCtx("vector position", pos)
	}
	for i := pos; i < v.size-1; i++ {
		if err := v.ops.MoveAssign(v.data.At(i), v.data.At(i+1)); err != nil {
			return 0, err
		}
	}
	v.ops.Destroy(v.data.At(v.size - 1))
	v.size--
	return pos, nil
}

// PopBack destroys the last element. It panics on an empty Vector.
func (v *Vector[T]) PopBack() {
	if v.size == 0 {
		panic(moerr.NewEmptyVectorNoCtx())
	}
	v.ops.Destroy(v.data.At(v.size - 1))
	v.size--
}
