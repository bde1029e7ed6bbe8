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

import "fmt"

// DefaultCookie marks a live object. Destruction clears it.
const DefaultCookie uint32 = 0xdeadbeef

// header is the identity shared by the test objects. ID is 0 for an object
// that was moved from.
type header struct {
	Cookie uint32
	ID     uint32
	Value  int
}

func (h *header) IsAlive() bool {
	return h.Cookie == DefaultCookie
}

func (h *header) born(value int) {
	h.Cookie = DefaultCookie
	h.ID = Objects.acquire()
	h.Value = value
}

func (h *header) destroy() {
	if h.ID != 0 {
		Objects.release(h.ID)
	}
	h.Cookie = 0
	h.ID = 0
}

func (h header) GetValue() int {
	return h.Value
}

func (h header) String() string {
	return fmt.Sprintf("%d", h.Value)
}

// ThrowObj copies fallibly and moves infallibly.
type ThrowObj struct {
	header
}

// NewThrowObj returns a live object outside any container.
func NewThrowObj(value int) ThrowObj {
	var o ThrowObj
	o.born(value)
	return o
}

// ThrowObjFrom is a constructor from an int that fails with FailCopyValue.
func ThrowObjFrom(value int) func(*ThrowObj) error {
	return func(o *ThrowObj) error {
		if err := Faults.copyValue(); err != nil {
			return err
		}
		o.born(value)
		return nil
	}
}

func (o *ThrowObj) Construct() error {
	if err := Faults.construct(); err != nil {
		return err
	}
	o.born(0)
	return nil
}

func (o *ThrowObj) CopyFrom(src *ThrowObj) error {
	if err := Faults.copy(); err != nil {
		return err
	}
	o.born(src.Value)
	return nil
}

func (o *ThrowObj) RelocateFrom(src *ThrowObj) {
	*o = *src
	src.ID = 0
}

func (o *ThrowObj) CopyAssign(src *ThrowObj) error {
	if err := Faults.copyAssign(); err != nil {
		return err
	}
	o.Value = src.Value
	return nil
}

func (o *ThrowObj) MoveAssign(src *ThrowObj) error {
	if err := Faults.moveAssign(); err != nil {
		return err
	}
	o.Value = src.Value
	return nil
}

func (o *ThrowObj) Destroy() {
	o.destroy()
}

// MoveThrowObj copies and moves fallibly, so containers relocate it by copy.
type MoveThrowObj struct {
	header
}

func NewMoveThrowObj(value int) MoveThrowObj {
	var o MoveThrowObj
	o.born(value)
	return o
}

func (o *MoveThrowObj) Construct() error {
	if err := Faults.construct(); err != nil {
		return err
	}
	o.born(0)
	return nil
}

func (o *MoveThrowObj) CopyFrom(src *MoveThrowObj) error {
	if err := Faults.copy(); err != nil {
		return err
	}
	o.born(src.Value)
	return nil
}

func (o *MoveThrowObj) MoveFrom(src *MoveThrowObj) error {
	if err := Faults.move(); err != nil {
		return err
	}
	*o = *src
	src.ID = 0
	return nil
}

func (o *MoveThrowObj) Destroy() {
	o.destroy()
}

// MoveOnlyObj cannot be copied and moves fallibly. It has no assignment
// hooks, so assignment is move construction into a temporary.
type MoveOnlyObj struct {
	header
}

func NewMoveOnlyObj(value int) MoveOnlyObj {
	var o MoveOnlyObj
	o.born(value)
	return o
}

func (o *MoveOnlyObj) Construct() error {
	if err := Faults.construct(); err != nil {
		return err
	}
	o.born(0)
	return nil
}

func (o *MoveOnlyObj) MoveFrom(src *MoveOnlyObj) error {
	if err := Faults.move(); err != nil {
		return err
	}
	*o = *src
	src.ID = 0
	return nil
}

func (o *MoveOnlyObj) Destroy() {
	o.destroy()
}
