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

//go:build unix

package malloc

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/logutil"
)

// MmapAllocator maps anonymous private pages per allocation and unmaps them
// on deallocation. Fresh pages are always zero, so NoClear is implied.
type MmapAllocator struct {
	pageSize uint64
}

var _ Allocator = new(MmapAllocator)

func NewMmapAllocator() Allocator {
	return &MmapAllocator{
		pageSize: uint64(os.Getpagesize()),
	}
}

func (m *MmapAllocator) Allocate(size uint64, _ Hints) ([]byte, Deallocator, error) {
	if size == 0 {
		return nil, dumbDeallocator, nil
	}
	length := (size + m.pageSize - 1) / m.pageSize * m.pageSize
	data, err := unix.Mmap(
		-1, 0,
		int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		logutil.Warn("mmap failed",
			zap.Uint64("size", size),
			zap.Error(err),
		)
		return nil, nil, moerr.NewOOMNoCtx()
	}
	return data[:size], DeallocatorFunc(func(Hints) {
		if err := unix.Munmap(data); err != nil {
			panic(err)
		}
	}), nil
}
