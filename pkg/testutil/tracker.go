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

package testutil

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Tracker hands out ids to live test objects and remembers which are still
// alive. Destroying an id twice panics.
type Tracker struct {
	sync.Mutex
	next      uint32
	live      *roaring.Bitmap
	created   uint64
	destroyed uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		live: roaring.New(),
	}
}

func (t *Tracker) acquire() uint32 {
	t.Lock()
	defer t.Unlock()
	t.next++
	t.live.Add(t.next)
	t.created++
	return t.next
}

func (t *Tracker) release(id uint32) {
	t.Lock()
	defer t.Unlock()
	if !t.live.Contains(id) {
		panic(fmt.Sprintf("object %d destroyed twice or never created", id))
	}
	t.live.Remove(id)
	t.destroyed++
}

// Live is the number of objects created and not yet destroyed.
func (t *Tracker) Live() uint64 {
	t.Lock()
	defer t.Unlock()
	return t.live.GetCardinality()
}

func (t *Tracker) IsLive(id uint32) bool {
	t.Lock()
	defer t.Unlock()
	return t.live.Contains(id)
}

// LiveIDs returns the live ids in ascending order.
func (t *Tracker) LiveIDs() []uint32 {
	t.Lock()
	defer t.Unlock()
	return t.live.ToArray()
}

func (t *Tracker) Counts() (created, destroyed uint64) {
	t.Lock()
	defer t.Unlock()
	return t.created, t.destroyed
}
