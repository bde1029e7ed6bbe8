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

package moerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMoErrCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		code     uint16
		expected bool
	}{
		{
			name:     "nil error is ok",
			err:      nil,
			code:     Ok,
			expected: true,
		},
		{
			name:     "nil error is not oom",
			err:      nil,
			code:     ErrOOM,
			expected: false,
		},
		{
			name:     "oom",
			err:      NewOOM(ctx),
			code:     ErrOOM,
			expected: true,
		},
		{
			name:     "invalid arg is not oom",
			err:      NewInvalidArg(ctx, "pos", 3),
			code:     ErrOOM,
			expected: false,
		},
		{
			name:     "go error",
			err:      errors.New("plain"),
			code:     ErrInternal,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMoErrCode(tt.err, tt.code))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewInvalidArgNoCtx("emplace position", 7)
	require.Equal(t, "invalid argument emplace position, bad value 7", err.Error())
	require.Equal(t, ErrInvalidArg, err.ErrorCode())
	require.False(t, err.Succeeded())

	err = NewOOMNoCtx()
	require.Equal(t, "error: out of memory", err.Error())
	require.Equal(t, err.Error(), err.Display())

	require.True(t, GetOkStopCurrRecur().Succeeded())
}

func TestConvertPanicError(t *testing.T) {
	orig := NewEmptyVectorNoCtx()
	require.Same(t, orig, ConvertPanicError(Context(), orig))

	err := ConvertPanicError(Context(), "boom")
	require.True(t, IsMoErrCode(err, ErrInternal))
	require.Contains(t, err.Error(), "boom")
	require.NotEmpty(t, err.Detail())
	require.Contains(t, err.Display(), err.Detail())
}

func TestConvertGoError(t *testing.T) {
	require.Nil(t, ConvertGoError(Context(), nil))

	orig := NewBadConfigNoCtx("x")
	require.Equal(t, error(orig), ConvertGoError(Context(), orig))

	err := ConvertGoError(Context(), errors.New("disk"))
	require.True(t, IsMoErrCode(err, ErrInternal))
	require.True(t, IsMoErrCode(DowncastError(err), ErrInternal))
	require.True(t, IsMoErrCode(DowncastError(errors.New("y")), ErrInternal))
}

func TestUnknownCodePanics(t *testing.T) {
	require.Panics(t, func() {
		_ = newError(Context(), 12345)
	})
}
