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

// The batch algorithms below construct into dst, a run of zeroed slots.
// When one construction fails, every element already constructed in dst is
// destroyed before the error is returned, so dst holds no live element.

// ValueConstructN value-constructs every slot of dst.
func ValueConstructN[T any](o *Ops[T], dst []T) error {
	if o.plain {
		clear(dst)
		return nil
	}
	for i := range dst {
		if err := o.Construct(&dst[i]); err != nil {
			DestroyN(o, dst[:i])
			return err
		}
	}
	return nil
}

// UninitializedCopyN copy-constructs dst[i] from src[i]. len(dst) must be
// at least len(src).
func UninitializedCopyN[T any](o *Ops[T], src []T, dst []T) error {
	if o.plain {
		copy(dst, src)
		return nil
	}
	dst = dst[:len(src)]
	for i := range src {
		if err := o.Copy(&dst[i], &src[i]); err != nil {
			DestroyN(o, dst[:i])
			return err
		}
	}
	return nil
}

// UninitializedMoveN move-constructs dst[i] from src[i]. Sources already
// moved stay moved if a later move fails.
func UninitializedMoveN[T any](o *Ops[T], src []T, dst []T) error {
	if o.plain {
		copy(dst, src)
		clear(src)
		return nil
	}
	dst = dst[:len(src)]
	for i := range src {
		if err := o.Move(&dst[i], &src[i]); err != nil {
			DestroyN(o, dst[:i])
			return err
		}
	}
	return nil
}

// UninitializedRelocateN transfers src into dst with the strategy of T.
func UninitializedRelocateN[T any](o *Ops[T], src []T, dst []T) error {
	if o.RelocateStrategy() == Copy {
		return UninitializedCopyN(o, src, dst)
	}
	return UninitializedMoveN(o, src, dst)
}

// DestroyN destroys every element of s.
func DestroyN[T any](o *Ops[T], s []T) {
	if o.plain {
		clear(s)
		return
	}
	for i := range s {
		o.destroy(&s[i])
	}
}
