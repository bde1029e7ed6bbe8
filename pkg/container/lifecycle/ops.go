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

package lifecycle

import (
	"reflect"
	"sync"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
)

// Ops is the resolved set of lifecycle operations of T. Every fallible
// operation converts a panicking hook into an error and leaves its
// destination zeroed on failure.
type Ops[T any] struct {
	name  string
	plain bool

	construct  func(dst *T) error
	copy       func(dst, src *T) error
	move       func(dst, src *T) error
	moveNoFail bool
	copyAssign func(dst, src *T) error
	moveAssign func(dst, src *T) error
	destroy    func(p *T)
}

var opsCache sync.Map // reflect.Type -> *Ops[T]

// For returns the operations of T, resolving them on first use.
func For[T any]() *Ops[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := opsCache.Load(typ); ok {
		return v.(*Ops[T])
	}
	v, _ := opsCache.LoadOrStore(typ, resolve[T](typ))
	return v.(*Ops[T])
}

func resolve[T any](typ reflect.Type) *Ops[T] {
	var ptr any = (*T)(nil)
	_, isCtor := ptr.(Constructor)
	_, isCopier := ptr.(Copier[T])
	_, isMover := ptr.(Mover[T])
	_, isRelocator := ptr.(Relocator[T])
	_, isCopyAssigner := ptr.(CopyAssigner[T])
	_, isMoveAssigner := ptr.(MoveAssigner[T])
	_, isDestroyer := ptr.(Destroyer)
	explicit := isCopier || isMover || isRelocator

	o := &Ops[T]{
		name: typ.String(),
		plain: !isCtor && !explicit && !isCopyAssigner &&
			!isMoveAssigner && !isDestroyer,
	}

	if isCtor {
		o.construct = func(dst *T) error {
			return any(dst).(Constructor).Construct()
		}
	} else {
		o.construct = func(dst *T) error {
			var zero T
			*dst = zero
			return nil
		}
	}

	switch {
	case isCopier:
		o.copy = func(dst, src *T) error {
			return any(dst).(Copier[T]).CopyFrom(src)
		}
	case !explicit:
		o.copy = func(dst, src *T) error {
			*dst = *src
			return nil
		}
	}

	switch {
	case isRelocator:
		o.moveNoFail = true
		o.move = func(dst, src *T) error {
			any(dst).(Relocator[T]).RelocateFrom(src)
			return nil
		}
	case isMover:
		o.move = func(dst, src *T) error {
			return any(dst).(Mover[T]).MoveFrom(src)
		}
	case isCopier:
		o.move = o.copy
	default:
		o.moveNoFail = true
		o.move = func(dst, src *T) error {
			var zero T
			*dst = *src
			*src = zero
			return nil
		}
	}

	if isDestroyer {
		o.destroy = func(p *T) {
			any(p).(Destroyer).Destroy()
			var zero T
			*p = zero
		}
	} else {
		o.destroy = func(p *T) {
			var zero T
			*p = zero
		}
	}

	if o.plain {
		assign := func(dst, src *T) error {
			*dst = *src
			return nil
		}
		o.copyAssign = assign
		o.moveAssign = assign
		return o
	}

	if isCopyAssigner {
		o.copyAssign = func(dst, src *T) error {
			return any(dst).(CopyAssigner[T]).CopyAssign(src)
		}
	} else if o.copy != nil {
		o.copyAssign = o.assignVia(o.copy)
	}

	if isMoveAssigner {
		o.moveAssign = func(dst, src *T) error {
			return any(dst).(MoveAssigner[T]).MoveAssign(src)
		}
	} else {
		o.moveAssign = o.assignVia(o.move)
	}

	return o
}

// assignVia builds a temporary with construct, then replaces the live
// destination with it. The destination is untouched if construct fails.
func (o *Ops[T]) assignVia(construct func(dst, src *T) error) func(dst, src *T) error {
	return func(dst, src *T) error {
		if dst == src {
			return nil
		}
		var tmp T
		if err := construct(&tmp, src); err != nil {
			return err
		}
		o.destroy(dst)
		*dst = tmp
		return nil
	}
}

// Name is the Go type name of T.
func (o *Ops[T]) Name() string {
	return o.name
}

// Plain reports whether T has no lifecycle hooks at all.
func (o *Ops[T]) Plain() bool {
	return o.plain
}

func (o *Ops[T]) Copyable() bool {
	return o.copy != nil
}

// NothrowMove reports whether moving T can never fail.
func (o *Ops[T]) NothrowMove() bool {
	return o.moveNoFail
}

// RelocateStrategy picks move when it cannot fail or when there is no
// other way, copy otherwise.
func (o *Ops[T]) RelocateStrategy() Strategy {
	if o.moveNoFail || o.copy == nil {
		return Move
	}
	return Copy
}

func guard[T any](dst *T, err *error) {
	if r := recover(); r != nil {
		*err = moerr.ConvertPanicError(moerr.Context(), r)
	}
	if *err != nil && dst != nil {
		var zero T
		*dst = zero
	}
}

// Construct value-constructs a zeroed slot.
func (o *Ops[T]) Construct(dst *T) (err error) {
	defer guard(dst, &err)
	return o.construct(dst)
}

// Emplace constructs a zeroed slot with ctor.
func (o *Ops[T]) Emplace(dst *T, ctor func(*T) error) (err error) {
	if ctor == nil {
		return o.Construct(dst)
	}
	defer guard(dst, &err)
	return ctor(dst)
}

// Copy copy-constructs a zeroed slot from src.
func (o *Ops[T]) Copy(dst, src *T) (err error) {
	if o.copy == nil {
		return moerr.NewNotSupportedNoCtx("copy construction of %s", o.name)
	}
	defer guard(dst, &err)
	return o.copy(dst, src)
}

// Move move-constructs a zeroed slot from src.
func (o *Ops[T]) Move(dst, src *T) (err error) {
	defer guard(dst, &err)
	return o.move(dst, src)
}

// Relocate constructs a zeroed slot from src with strategy s.
func (o *Ops[T]) Relocate(s Strategy, dst, src *T) error {
	if s == Copy {
		return o.Copy(dst, src)
	}
	return o.Move(dst, src)
}

// CopyAssign copy-assigns src to the live element dst.
func (o *Ops[T]) CopyAssign(dst, src *T) (err error) {
	if o.copyAssign == nil {
		return moerr.NewNotSupportedNoCtx("copy assignment of %s", o.name)
	}
	defer guard[T](nil, &err)
	return o.copyAssign(dst, src)
}

// MoveAssign move-assigns src to the live element dst.
func (o *Ops[T]) MoveAssign(dst, src *T) (err error) {
	defer guard[T](nil, &err)
	return o.moveAssign(dst, src)
}

// Destroy ends the life of the element at p and zeroes the slot.
func (o *Ops[T]) Destroy(p *T) {
	o.destroy(p)
}
