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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
)

func testAllocator(t *testing.T, allocator Allocator) {
	t.Run("zero", func(t *testing.T) {
		buf, dec, err := allocator.Allocate(0, 0)
		require.NoError(t, err)
		require.Nil(t, buf)
		dec.Deallocate(0)
	})

	t.Run("cleared", func(t *testing.T) {
		for i := 0; i < 64; i++ {
			size := uint64(i*97 + 1)
			buf, dec, err := allocator.Allocate(size, 0)
			require.NoError(t, err)
			require.Equal(t, int(size), len(buf))
			for _, b := range buf {
				require.Equal(t, byte(0), b)
			}
			for j := range buf {
				buf[j] = 0xA5
			}
			dec.Deallocate(0)
		}
	})

	t.Run("large", func(t *testing.T) {
		buf, dec, err := allocator.Allocate(16*MB, NoClear)
		require.NoError(t, err)
		require.Equal(t, 16*MB, len(buf))
		buf[len(buf)-1] = 1
		dec.Deallocate(DoNotReuse)
	})
}

func TestGoAllocator(t *testing.T) {
	testAllocator(t, NewGoAllocator())
}

func TestClassAllocator(t *testing.T) {
	testAllocator(t, NewClassAllocator(64*MB))
}

func TestMmapAllocator(t *testing.T) {
	testAllocator(t, NewMmapAllocator())
}

func TestClassAllocatorReuse(t *testing.T) {
	allocator := NewClassAllocator(64 * MB)

	buf, dec, err := allocator.Allocate(100, 0)
	require.NoError(t, err)
	buf[0] = 42
	dec.Deallocate(0)
	allocs, frees := allocator.Reused()
	require.Equal(t, int64(0), allocs)
	require.Equal(t, int64(1), frees)

	// same class, served from the cache and cleared
	buf, dec, err = allocator.Allocate(120, 0)
	require.NoError(t, err)
	require.Equal(t, byte(0), buf[0])
	allocs, _ = allocator.Reused()
	require.Equal(t, int64(1), allocs)

	dec.Deallocate(DoNotReuse)
	_, frees = allocator.Reused()
	require.Equal(t, int64(1), frees)
}

func TestClassAllocatorClasses(t *testing.T) {
	allocator := NewClassAllocator(64 * MB)
	require.Equal(t, 0, allocator.requestSizeToClass(1))
	require.Equal(t, 0, allocator.requestSizeToClass(minClassSize))
	require.Equal(t, 1, allocator.requestSizeToClass(minClassSize+1))
	require.Equal(t, -1, allocator.requestSizeToClass(maxClassSize+1))
	for i := 1; i < len(allocator.classSizes); i++ {
		require.Greater(t, allocator.classSizes[i], allocator.classSizes[i-1])
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaultValues()
	require.Equal(t, AllocatorClass, c.Allocator)
	require.Equal(t, uint64(defaultClassBufferSize), c.ClassBufferSize)
	require.NoError(t, c.Validate())

	c.Allocator = "jemalloc"
	err := c.Validate()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	_, err = NewAllocator(c)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	for _, name := range []string{AllocatorGo, AllocatorClass, AllocatorMmap} {
		allocator, err := NewAllocator(Config{Allocator: name, EnableMetrics: true})
		require.NoError(t, err)
		_, ok := allocator.(*MetricsAllocator[Allocator])
		require.True(t, ok)
	}
}

func TestDefaultAllocator(t *testing.T) {
	old := GetDefaultAllocator()
	defer SetDefaultAllocator(old)

	require.NotNil(t, old)
	class := NewClassAllocator(MB)
	SetDefaultAllocator(class)
	require.Equal(t, Allocator(class), GetDefaultAllocator())
	mmap := NewMmapAllocator()
	SetDefaultAllocator(mmap)
	require.Equal(t, mmap, GetDefaultAllocator())
}

func TestPeakInuseTracker(t *testing.T) {
	tracker := new(PeakInuseTracker)
	tracker.ptr.Store(&peakInuseValue{})
	tracker.Update(10)
	tracker.Update(5)
	n, at := tracker.Peak()
	require.Equal(t, uint64(10), n)
	require.False(t, at.IsZero())
	tracker.Update(11)
	n, _ = tracker.Peak()
	require.Equal(t, uint64(11), n)
}

func BenchmarkClassAllocateDeallocate(b *testing.B) {
	allocator := NewClassAllocator(64 * MB)
	for i := 0; i < b.N; i++ {
		_, dec, err := allocator.Allocate(4096, NoClear)
		if err != nil {
			b.Fatal(err)
		}
		dec.Deallocate(0)
	}
}

func BenchmarkParallelClassAllocateDeallocate(b *testing.B) {
	allocator := NewClassAllocator(64 * MB)
	b.RunParallel(func(pb *testing.PB) {
		for size := uint64(1); pb.Next(); size++ {
			_, dec, err := allocator.Allocate(size%65536, 0)
			if err != nil {
				b.Fatal(err)
			}
			dec.Deallocate(0)
		}
	})
}
