// Copyright 2022 Matrix Origin
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
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/matrixorigin/advvec/pkg/common/malloc"
	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/logutil"
)

// MaxAllocSize bounds a single allocation regardless of the pool cap.
const MaxAllocSize = 1 << 40

const (
	// DetailRecording tracks allocations per calling function.
	DetailRecording = 1 << iota
)

// MPoolStats are the counters of a pool. All fields are updated atomically.
type MPoolStats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumAllocBytes atomic.Int64
	NumFreeBytes  atomic.Int64
	NumCurrBytes  atomic.Int64
	HighWaterMark atomic.Int64
}

func (s *MPoolStats) recordAlloc(sz int64) int64 {
	curr := s.NumCurrBytes.Add(sz)
	s.countAlloc(sz, curr)
	return curr
}

// countAlloc records an allocation whose bytes are already in NumCurrBytes.
func (s *MPoolStats) countAlloc(sz int64, curr int64) {
	s.NumAlloc.Add(1)
	s.NumAllocBytes.Add(sz)
	for {
		hw := s.HighWaterMark.Load()
		if curr <= hw || s.HighWaterMark.CompareAndSwap(hw, curr) {
			break
		}
	}
}

func (s *MPoolStats) recordFree(sz int64) int64 {
	s.NumFree.Add(1)
	s.NumFreeBytes.Add(sz)
	return s.NumCurrBytes.Add(-sz)
}

func (s *MPoolStats) Report(tab string) string {
	if s.HighWaterMark.Load() == 0 {
		return ""
	}
	ret := ""
	ret += fmt.Sprintf("%s allocations : %d\n", tab, s.NumAlloc.Load())
	ret += fmt.Sprintf("%s frees : %d\n", tab, s.NumFree.Load())
	ret += fmt.Sprintf("%s alloc bytes : %d\n", tab, s.NumAllocBytes.Load())
	ret += fmt.Sprintf("%s free bytes : %d\n", tab, s.NumFreeBytes.Load())
	ret += fmt.Sprintf("%s current bytes : %d\n", tab, s.NumCurrBytes.Load())
	ret += fmt.Sprintf("%s high water mark : %d\n", tab, s.HighWaterMark.Load())
	return ret
}

type statsJSON struct {
	NumAlloc      int64 `json:"num_alloc"`
	NumFree       int64 `json:"num_free"`
	NumAllocBytes int64 `json:"num_alloc_bytes"`
	NumFreeBytes  int64 `json:"num_free_bytes"`
	NumCurrBytes  int64 `json:"num_curr_bytes"`
	HighWaterMark int64 `json:"high_water_mark"`
}

func (s *MPoolStats) toJSON() statsJSON {
	return statsJSON{
		NumAlloc:      s.NumAlloc.Load(),
		NumFree:       s.NumFree.Load(),
		NumAllocBytes: s.NumAllocBytes.Load(),
		NumFreeBytes:  s.NumFreeBytes.Load(),
		NumCurrBytes:  s.NumCurrBytes.Load(),
		HighWaterMark: s.HighWaterMark.Load(),
	}
}

type mpoolDetails struct {
	mu    sync.Mutex
	alloc map[string]*MPoolStats
}

func (d *mpoolDetails) statsOf(fn string) *MPoolStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.alloc[fn]
	if !ok {
		s = new(MPoolStats)
		d.alloc[fn] = s
	}
	return s
}

type allocRecord struct {
	size   int64
	caller string
	dec    malloc.Deallocator
}

// MPool accounts every allocation made through it against an optional
// capacity. A cap of 0 means unlimited.
type MPool struct {
	id        int64
	tag       string
	cap       int64
	allocator malloc.Allocator
	stats     MPoolStats
	details   atomic.Pointer[mpoolDetails]
	inUse     sync.Map // unsafe.Pointer -> *allocRecord
}

var (
	nextPool    atomic.Int64
	globalPools sync.Map // id -> *MPool
	globalStats MPoolStats
)

// NewMPool creates and registers a pool. The allocator is the process
// default at creation time.
func NewMPool(tag string, cap int64, flag int) (*MPool, error) {
	return NewMPoolWithAllocator(tag, cap, flag, malloc.GetDefaultAllocator())
}

func NewMPoolWithAllocator(tag string, cap int64, flag int, allocator malloc.Allocator) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool cap", cap)
	}
	if allocator == nil {
		return nil, moerr.NewInvalidArgNoCtx("mpool allocator", "nil")
	}
	mp := &MPool{
		id:        nextPool.Add(1),
		tag:       tag,
		cap:       cap,
		allocator: allocator,
	}
	if flag&DetailRecording != 0 {
		mp.EnableDetailRecording()
	}
	globalPools.Store(mp.id, mp)
	logutil.Debug("mpool created",
		zap.String("tag", tag),
		zap.Int64("id", mp.id),
		zap.Int64("cap", cap),
	)
	return mp, nil
}

// MustNewZero returns an unlimited pool or panics.
func MustNewZero() *MPool {
	mp, err := NewMPool("must_new_zero", 0, 0)
	if err != nil {
		panic(err)
	}
	return mp
}

// DeleteMPool unregisters mp. Outstanding allocations stay valid.
func DeleteMPool(mp *MPool) {
	if mp == nil {
		return
	}
	globalPools.Delete(mp.id)
	logutil.Debug("mpool deleted",
		zap.String("tag", mp.tag),
		zap.Int64("id", mp.id),
		zap.Int64("curr bytes", mp.CurrNB()),
	)
}

func (mp *MPool) Tag() string {
	return mp.tag
}

func (mp *MPool) Cap() int64 {
	return mp.cap
}

func (mp *MPool) CurrNB() int64 {
	return mp.stats.NumCurrBytes.Load()
}

func (mp *MPool) Stats() *MPoolStats {
	return &mp.stats
}

func (mp *MPool) EnableDetailRecording() {
	mp.details.CompareAndSwap(nil, &mpoolDetails{
		alloc: make(map[string]*MPoolStats),
	})
}

func (mp *MPool) String() string {
	return fmt.Sprintf("mpool %s (id %d): cap %d, curr %d, hw %d",
		mp.tag, mp.id, mp.cap, mp.CurrNB(), mp.stats.HighWaterMark.Load())
}

// reserve charges sz bytes against the cap.
func (mp *MPool) reserve(sz int64) error {
	if sz > MaxAllocSize {
		logutil.Warn("mpool allocation too large",
			zap.String("tag", mp.tag),
			zap.Int64("request", sz),
		)
		return moerr.NewOOMNoCtx()
	}
	curr := mp.stats.NumCurrBytes.Add(sz)
	if mp.cap > 0 && curr > mp.cap {
		mp.stats.NumCurrBytes.Add(-sz)
		logutil.Warn("mpool out of memory",
			zap.String("tag", mp.tag),
			zap.Int64("request", sz),
			zap.Int64("curr", curr-sz),
			zap.Int64("cap", mp.cap),
		)
		return moerr.NewOOMNoCtx()
	}
	mp.stats.countAlloc(sz, curr)
	globalStats.recordAlloc(sz)
	return nil
}

func (mp *MPool) unreserve(sz int64) {
	mp.stats.recordFree(sz)
	globalStats.recordFree(sz)
}

func (mp *MPool) record(ptr unsafe.Pointer, sz int64, dec malloc.Deallocator) {
	rec := &allocRecord{size: sz, dec: dec}
	if details := mp.details.Load(); details != nil {
		rec.caller = callerName(3)
		details.statsOf(rec.caller).recordAlloc(sz)
	}
	mp.inUse.Store(ptr, rec)
}

func (mp *MPool) release(ptr unsafe.Pointer) {
	v, ok := mp.inUse.LoadAndDelete(ptr)
	if !ok {
		panic(moerr.NewInternalErrorNoCtx("mpool %s: free of unknown or already freed memory", mp.tag))
	}
	rec := v.(*allocRecord)
	if rec.dec != nil {
		rec.dec.Deallocate(0)
	}
	if details := mp.details.Load(); details != nil && rec.caller != "" {
		details.statsOf(rec.caller).recordFree(rec.size)
	}
	mp.unreserve(rec.size)
}

// Alloc returns sz zeroed bytes.
func (mp *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInvalidArgNoCtx("mpool alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if err := mp.reserve(int64(sz)); err != nil {
		return nil, err
	}
	bs, dec, err := mp.allocator.Allocate(uint64(sz), 0)
	if err != nil {
		mp.unreserve(int64(sz))
		return nil, err
	}
	mp.record(unsafe.Pointer(unsafe.SliceData(bs)), int64(sz), dec)
	return bs, nil
}

// Free returns bs to the pool. bs must come from Alloc or Realloc on the
// same pool.
func (mp *MPool) Free(bs []byte) {
	if cap(bs) == 0 {
		return
	}
	mp.release(unsafe.Pointer(unsafe.SliceData(bs)))
}

// Realloc grows old to sz bytes, keeping its content.
func (mp *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		return old[:sz], nil
	}
	bs, err := mp.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(bs, old)
	mp.Free(old)
	return bs, nil
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

type mpoolJSON struct {
	Tag     string               `json:"tag"`
	ID      int64                `json:"id"`
	Cap     int64                `json:"cap"`
	Stats   statsJSON            `json:"stats"`
	Details map[string]statsJSON `json:"details,omitempty"`
}

func (mp *MPool) toJSON() mpoolJSON {
	ret := mpoolJSON{
		Tag:   mp.tag,
		ID:    mp.id,
		Cap:   mp.cap,
		Stats: mp.stats.toJSON(),
	}
	if details := mp.details.Load(); details != nil {
		details.mu.Lock()
		ret.Details = make(map[string]statsJSON, len(details.alloc))
		for fn, s := range details.alloc {
			ret.Details[fn] = s.toJSON()
		}
		details.mu.Unlock()
	}
	return ret
}

// ReportMemUsage reports the pools with the given tag as JSON. An empty tag
// reports every pool, "global" reports the process totals.
func ReportMemUsage(tag string) string {
	var v any
	if tag == "global" {
		v = globalStats.toJSON()
	} else {
		pools := make([]mpoolJSON, 0)
		globalPools.Range(func(_, value any) bool {
			mp := value.(*MPool)
			if tag == "" || mp.tag == tag {
				pools = append(pools, mp.toJSON())
			}
			return true
		})
		v = pools
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(bs)
}

var defaultPool atomic.Pointer[MPool]

// Default returns the process-wide pool, creating an unlimited one on
// first use.
func Default() *MPool {
	if mp := defaultPool.Load(); mp != nil {
		return mp
	}
	mp, err := NewMPool("default", 0, 0)
	if err != nil {
		panic(err)
	}
	if !defaultPool.CompareAndSwap(nil, mp) {
		DeleteMPool(mp)
	}
	return defaultPool.Load()
}

func SetDefault(mp *MPool) {
	defaultPool.Store(mp)
}
