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

package malloc

//go:generate mockgen -source=malloc.go -destination=test/mock_allocator.go -package=mock_malloc

const (
	B = 1 << (iota * 10)
	KB
	MB
	GB
)

// Hints tunes a single allocation or deallocation.
type Hints uint64

const (
	// NoClear skips zeroing the returned memory.
	NoClear Hints = 1 << iota
	// DoNotReuse asks the allocator not to cache the memory on deallocation.
	DoNotReuse
)

// Allocator hands out byte slices. Memory returned by an Allocator is not
// scanned by the garbage collector, so it must never hold Go pointers.
type Allocator interface {
	// Allocate returns a slice of len size. A zero size returns a nil
	// slice and a no-op Deallocator.
	Allocate(size uint64, hints Hints) ([]byte, Deallocator, error)
}

// Deallocator releases one allocation. It must be called at most once.
type Deallocator interface {
	Deallocate(hints Hints)
}

type DeallocatorFunc func(hints Hints)

func (f DeallocatorFunc) Deallocate(hints Hints) {
	f(hints)
}

var dumbDeallocator = DeallocatorFunc(func(Hints) {})

type chainDeallocator []Deallocator

func (c chainDeallocator) Deallocate(hints Hints) {
	for _, d := range c {
		d.Deallocate(hints)
	}
}

// ChainDeallocator runs the given deallocators in order.
func ChainDeallocator(dec1 Deallocator, dec2 Deallocator) Deallocator {
	if dec1 == nil {
		return dec2
	}
	if dec2 == nil {
		return dec1
	}
	return chainDeallocator{dec1, dec2}
}
