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
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	allocateBytesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "advvec",
		Subsystem: "malloc",
		Name:      "allocate_bytes_total",
		Help:      "Total bytes handed out by the allocator.",
	})
	inuseBytesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "advvec",
		Subsystem: "malloc",
		Name:      "inuse_bytes",
		Help:      "Bytes allocated and not yet deallocated.",
	})
	allocateObjectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "advvec",
		Subsystem: "malloc",
		Name:      "allocate_objects_total",
		Help:      "Total allocations served.",
	})
	inuseObjectsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "advvec",
		Subsystem: "malloc",
		Name:      "inuse_objects",
		Help:      "Allocations not yet deallocated.",
	})
)

// RegisterMetrics registers the allocator collectors with reg. Registering
// twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		allocateBytesCounter,
		inuseBytesGauge,
		allocateObjectsCounter,
		inuseObjectsGauge,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

type MetricsAllocator[U Allocator] struct {
	upstream U

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge
}

// globalInuseBytes sums the in-use bytes of every MetricsAllocator and
// feeds GlobalPeakInuseTracker.
var globalInuseBytes atomic.Int64

// GlobalInuseBytes is the number of bytes allocated through any
// MetricsAllocator and not yet deallocated.
func GlobalInuseBytes() int64 {
	return globalInuseBytes.Load()
}

func NewMetricsAllocator[U Allocator](
	upstream U,
	allocateBytesCounter prometheus.Counter,
	inuseBytesGauge prometheus.Gauge,
	allocateObjectsCounter prometheus.Counter,
	inuseObjectsGauge prometheus.Gauge,
) *MetricsAllocator[U] {
	return &MetricsAllocator[U]{
		upstream:               upstream,
		allocateBytesCounter:   allocateBytesCounter,
		inuseBytesGauge:        inuseBytesGauge,
		allocateObjectsCounter: allocateObjectsCounter,
		inuseObjectsGauge:      inuseObjectsGauge,
	}
}

var _ Allocator = new(MetricsAllocator[Allocator])

func (m *MetricsAllocator[U]) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	ptr, dec, err := m.upstream.Allocate(size, hints)
	if err != nil {
		return nil, nil, err
	}
	if m.allocateBytesCounter != nil {
		m.allocateBytesCounter.Add(float64(size))
	}
	if m.inuseBytesGauge != nil {
		m.inuseBytesGauge.Add(float64(size))
	}
	if m.allocateObjectsCounter != nil {
		m.allocateObjectsCounter.Inc()
	}
	if m.inuseObjectsGauge != nil {
		m.inuseObjectsGauge.Inc()
	}
	GlobalPeakInuseTracker.Update(uint64(globalInuseBytes.Add(int64(size))))

	return ptr, ChainDeallocator(
		dec,
		DeallocatorFunc(func(Hints) {
			globalInuseBytes.Add(-int64(size))
			if m.inuseBytesGauge != nil {
				m.inuseBytesGauge.Sub(float64(size))
			}
			if m.inuseObjectsGauge != nil {
				m.inuseObjectsGauge.Dec()
			}
		}),
	), nil
}
