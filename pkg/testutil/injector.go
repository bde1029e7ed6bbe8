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
	"testing"

	"github.com/prashantv/gostub"

	"github.com/matrixorigin/advvec/pkg/common/moerr"
)

// ErrInjected is returned by every hook the Injector makes fail.
var ErrInjected = moerr.NewInternalErrorNoCtx("injected failure")

// Injector decides which element operations fail. Countdowns fail the
// n-th call from now; 0 disables them.
type Injector struct {
	ConstructCountdown  int
	CopyCountdown       int
	MoveCountdown       int
	MoveAssignCountdown int

	FailCopy       bool
	FailCopyValue  bool
	FailMove       bool
	FailCopyAssign bool
	FailMoveAssign bool

	// Panic makes failures panic with ErrInjected instead of returning it.
	Panic bool
}

var (
	// Faults is consulted by every test object hook.
	Faults = &Injector{}
	// Objects tracks every test object.
	Objects = NewTracker()
)

// Setup installs a fresh Injector and Tracker for the duration of t.
func Setup(t testing.TB) (*Injector, *Tracker) {
	faults := &Injector{}
	objects := NewTracker()
	stubs := gostub.Stub(&Faults, faults)
	stubs.Stub(&Objects, objects)
	t.Cleanup(stubs.Reset)
	return faults, objects
}

func countdown(n *int) bool {
	if *n > 0 {
		*n--
		return *n == 0
	}
	return false
}

func (in *Injector) fail() error {
	if in.Panic {
		panic(ErrInjected)
	}
	return ErrInjected
}

func (in *Injector) construct() error {
	if countdown(&in.ConstructCountdown) {
		return in.fail()
	}
	return nil
}

func (in *Injector) copy() error {
	if in.FailCopy || countdown(&in.CopyCountdown) {
		return in.fail()
	}
	return nil
}

func (in *Injector) copyValue() error {
	if in.FailCopyValue {
		return in.fail()
	}
	return nil
}

func (in *Injector) move() error {
	if in.FailMove || countdown(&in.MoveCountdown) {
		return in.fail()
	}
	return nil
}

func (in *Injector) copyAssign() error {
	if in.FailCopyAssign || in.FailCopy {
		return in.fail()
	}
	return nil
}

func (in *Injector) moveAssign() error {
	if in.FailMoveAssign || countdown(&in.MoveAssignCountdown) {
		return in.fail()
	}
	return nil
}
