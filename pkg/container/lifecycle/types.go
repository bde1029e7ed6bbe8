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

// Package lifecycle describes how elements of a type are constructed,
// copied, moved, assigned and destroyed inside container storage.
//
// A slot that holds no live element holds the zero value of its type.
// Element types opt into custom behavior by implementing the interfaces
// below on their pointer type. A type implementing none of them is a plain
// value: it is constructed as the zero value, copied by assignment, moved by
// assignment followed by zeroing the source, and destroyed by zeroing.
//
// A type implementing any of Copier, Mover or Relocator lists its
// construction capabilities explicitly. Without Copier it cannot be copied;
// without Mover or Relocator it is moved by copying.
//
// A hook that returns an error must leave its destination without a live
// element. Hooks that panic are treated as hooks that failed.
package lifecycle

// Constructor value-constructs the receiver, which is a zeroed slot.
type Constructor interface {
	Construct() error
}

// Copier copy-constructs the receiver, a zeroed slot, from src.
type Copier[T any] interface {
	CopyFrom(src *T) error
}

// Mover move-constructs the receiver, a zeroed slot, from src. It may fail.
// After a successful move src must still be destructible.
type Mover[T any] interface {
	MoveFrom(src *T) error
}

// Relocator is a move construction that never fails.
type Relocator[T any] interface {
	RelocateFrom(src *T)
}

// CopyAssigner copy-assigns src to the receiver, a live element.
type CopyAssigner[T any] interface {
	CopyAssign(src *T) error
}

// MoveAssigner move-assigns src to the receiver, a live element.
type MoveAssigner[T any] interface {
	MoveAssign(src *T) error
}

// Destroyer releases whatever the receiver owns. It must not fail.
type Destroyer interface {
	Destroy()
}

// Strategy is how a batch of elements is transferred to new storage.
type Strategy int

const (
	// Move relocates every element by move construction.
	Move Strategy = iota
	// Copy relocates every element by copy construction, leaving the
	// source untouched.
	Copy
)

func (s Strategy) String() string {
	switch s {
	case Move:
		return "move"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}
