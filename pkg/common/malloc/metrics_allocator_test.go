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

package malloc_test

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/advvec/pkg/common/malloc"
	mock_malloc "github.com/matrixorigin/advvec/pkg/common/malloc/test"
	"github.com/matrixorigin/advvec/pkg/common/moerr"
)

func newCollectors() (prometheus.Counter, prometheus.Gauge, prometheus.Counter, prometheus.Gauge) {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "allocate_bytes"}),
		prometheus.NewGauge(prometheus.GaugeOpts{Name: "inuse_bytes"}),
		prometheus.NewCounter(prometheus.CounterOpts{Name: "allocate_objects"}),
		prometheus.NewGauge(prometheus.GaugeOpts{Name: "inuse_objects"})
}

func TestMetricsAllocator(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream := mock_malloc.NewMockAllocator(ctrl)
	dec := mock_malloc.NewMockDeallocator(ctrl)
	upstream.EXPECT().Allocate(uint64(100), malloc.Hints(0)).Return(make([]byte, 100), dec, nil)
	dec.EXPECT().Deallocate(malloc.Hints(0)).Times(1)

	allocBytes, inuseBytes, allocObjects, inuseObjects := newCollectors()
	allocator := malloc.NewMetricsAllocator(upstream, allocBytes, inuseBytes, allocObjects, inuseObjects)

	buf, d, err := allocator.Allocate(100, 0)
	require.NoError(t, err)
	require.Equal(t, 100, len(buf))
	require.Equal(t, float64(100), testutil.ToFloat64(allocBytes))
	require.Equal(t, float64(100), testutil.ToFloat64(inuseBytes))
	require.Equal(t, float64(1), testutil.ToFloat64(allocObjects))
	require.Equal(t, float64(1), testutil.ToFloat64(inuseObjects))

	d.Deallocate(0)
	require.Equal(t, float64(100), testutil.ToFloat64(allocBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(inuseBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(inuseObjects))

	peak, _ := malloc.GlobalPeakInuseTracker.Peak()
	require.GreaterOrEqual(t, peak, uint64(100))
}

func TestMetricsAllocatorSharedInuse(t *testing.T) {
	base := malloc.GlobalInuseBytes()
	newAllocator := func() *malloc.MetricsAllocator[*malloc.GoAllocator] {
		allocBytes, inuseBytes, allocObjects, inuseObjects := newCollectors()
		return malloc.NewMetricsAllocator(malloc.NewGoAllocator(), allocBytes, inuseBytes, allocObjects, inuseObjects)
	}
	a1 := newAllocator()
	a2 := newAllocator()

	_, d1, err := a1.Allocate(300, 0)
	require.NoError(t, err)
	_, d2, err := a2.Allocate(500, 0)
	require.NoError(t, err)
	require.Equal(t, base+800, malloc.GlobalInuseBytes())
	peak, _ := malloc.GlobalPeakInuseTracker.Peak()
	require.GreaterOrEqual(t, peak, uint64(base+800))

	d1.Deallocate(0)
	d2.Deallocate(0)
	require.Equal(t, base, malloc.GlobalInuseBytes())
}

func TestMetricsAllocatorUpstreamError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream := mock_malloc.NewMockAllocator(ctrl)
	upstream.EXPECT().Allocate(gomock.Any(), gomock.Any()).Return(nil, nil, moerr.NewOOMNoCtx())

	allocBytes, inuseBytes, allocObjects, inuseObjects := newCollectors()
	allocator := malloc.NewMetricsAllocator(upstream, allocBytes, inuseBytes, allocObjects, inuseObjects)

	_, _, err := allocator.Allocate(1, 0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Equal(t, float64(0), testutil.ToFloat64(allocBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(inuseObjects))
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, malloc.RegisterMetrics(reg))
	require.NoError(t, malloc.RegisterMetrics(reg))
}

func TestChainDeallocator(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d1 := mock_malloc.NewMockDeallocator(ctrl)
	d2 := mock_malloc.NewMockDeallocator(ctrl)
	gomock.InOrder(
		d1.EXPECT().Deallocate(malloc.DoNotReuse),
		d2.EXPECT().Deallocate(malloc.DoNotReuse),
	)
	malloc.ChainDeallocator(d1, d2).Deallocate(malloc.DoNotReuse)

	require.Equal(t, malloc.Deallocator(d1), malloc.ChainDeallocator(d1, nil))
	require.Equal(t, malloc.Deallocator(d2), malloc.ChainDeallocator(nil, d2))
}
