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

package mpool

import (
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
)

var pointerFreeTypes sync.Map // reflect.Type -> bool

// PointerFree reports whether values of T hold no Go pointers, which is
// what allows them to live in allocator memory the GC does not scan.
func PointerFree[T any]() bool {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := pointerFreeTypes.Load(typ); ok {
		return v.(bool)
	}
	ret := !hasPointers(typ)
	pointerFreeTypes.Store(typ, ret)
	return ret
}

func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// MakeSlice returns n zero values of T charged to mp. Pointer-free types
// are carved out of the pool's allocator, anything else lives on the Go
// heap and is only accounted. The result must be returned with FreeSlice.
func MakeSlice[T any](mp *MPool, n int) ([]T, error) {
	if n < 0 {
		return nil, moerr.NewInvalidArgNoCtx("slice length", n)
	}
	if n == 0 {
		return nil, nil
	}
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if elemSize == 0 {
		return make([]T, n), nil
	}
	if uint64(n) > math.MaxInt64/uint64(elemSize) {
		return nil, moerr.NewOOMNoCtx()
	}
	sz := int64(elemSize) * int64(n)

	if PointerFree[T]() {
		bs, err := mp.Alloc(int(sz))
		if err != nil {
			return nil, err
		}
		ptr := unsafe.Pointer(unsafe.SliceData(bs))
		if uintptr(ptr)%unsafe.Alignof(zero) == 0 {
			return unsafe.Slice((*T)(ptr), n), nil
		}
		mp.Free(bs)
	}

	if err := mp.reserve(sz); err != nil {
		return nil, err
	}
	s := make([]T, n)
	mp.record(unsafe.Pointer(unsafe.SliceData(s)), sz, nil)
	return s, nil
}

// FreeSlice releases memory obtained from MakeSlice. s may be resliced
// but must keep its original base.
func FreeSlice[T any](mp *MPool, s []T) {
	var zero T
	if cap(s) == 0 || unsafe.Sizeof(zero) == 0 {
		return
	}
	mp.release(unsafe.Pointer(unsafe.SliceData(s)))
}
