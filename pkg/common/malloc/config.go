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
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/logutil"
)

const (
	AllocatorGo    = "go"
	AllocatorClass = "class"
	AllocatorMmap  = "mmap"

	defaultClassBufferSize = 64 * MB
)

type Config struct {
	// Allocator is one of go, class or mmap
	Allocator string `toml:"allocator" env:"ALLOCATOR"`
	// ClassBufferSize bounds the memory cached by the class allocator
	ClassBufferSize uint64 `toml:"class-buffer-size" env:"CLASS_BUFFER_SIZE"`
	// EnableMetrics wraps the allocator with prometheus counters
	EnableMetrics bool `toml:"enable-metrics" env:"ENABLE_METRICS"`
}

func (c *Config) SetDefaultValues() {
	if c.Allocator == "" {
		c.Allocator = AllocatorClass
	}
	if c.ClassBufferSize == 0 {
		c.ClassBufferSize = defaultClassBufferSize
	}
}

func (c *Config) Validate() error {
	switch c.Allocator {
	case AllocatorGo, AllocatorClass, AllocatorMmap:
	default:
		return moerr.NewBadConfigNoCtx("unknown allocator %q", c.Allocator)
	}
	return nil
}

// NewAllocator builds the allocator described by config.
func NewAllocator(config Config) (Allocator, error) {
	config.SetDefaultValues()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var allocator Allocator
	switch config.Allocator {
	case AllocatorGo:
		allocator = NewGoAllocator()
	case AllocatorClass:
		allocator = NewClassAllocator(config.ClassBufferSize)
	case AllocatorMmap:
		allocator = NewMmapAllocator()
	}

	if config.EnableMetrics {
		allocator = NewMetricsAllocator(
			allocator,
			allocateBytesCounter,
			inuseBytesGauge,
			allocateObjectsCounter,
			inuseObjectsGauge,
		)
	}

	logutil.Info("malloc: new allocator",
		zap.String("allocator", config.Allocator),
		zap.Uint64("class buffer size", config.ClassBufferSize),
		zap.Bool("metrics", config.EnableMetrics),
	)
	return allocator, nil
}

type allocatorHolder struct {
	allocator Allocator
}

var defaultAllocator atomic.Pointer[allocatorHolder]

func init() {
	defaultAllocator.Store(&allocatorHolder{
		allocator: NewGoAllocator(),
	})
}

// SetDefaultAllocator replaces the allocator used by pools created
// without an explicit one.
func SetDefaultAllocator(allocator Allocator) {
	defaultAllocator.Store(&allocatorHolder{
		allocator: allocator,
	})
}

func GetDefaultAllocator() Allocator {
	return defaultAllocator.Load().allocator
}
