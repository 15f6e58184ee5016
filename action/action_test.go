// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel/action"
)

func TestKeccak256(t *testing.T) {
	// Well-known keccak-256 digest of the empty input
	assert.Equal(
		t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		action.Keccak256().String(),
	)
	assert.Equal(
		t,
		action.Keccak256([]byte("ab")),
		action.Keccak256([]byte("a"), []byte("b")),
	)
}

func TestParseHash(t *testing.T) {
	h := action.Keccak256([]byte("gavel"))
	parsed, err := action.ParseHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	parsed, err = action.ParseHash(h.String()[2:])
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = action.ParseHash("0x1234")
	require.ErrorIs(t, err, action.ErrInvalidHash)
	_, err = action.ParseHash("zz")
	require.ErrorIs(t, err, action.ErrInvalidHash)

	var text action.Hash
	require.NoError(t, text.UnmarshalText([]byte(h.String())))
	assert.Equal(t, h, text)
	assert.True(t, action.ZeroHash.IsZero())
	assert.False(t, h.IsZero())
}

func TestNewBatch(t *testing.T) {
	testDefs := []struct {
		name      string
		targets   []string
		values    []uint64
		calldatas [][]byte
		wantErr   bool
	}{
		{
			name:      "aligned",
			targets:   []string{"a", "b"},
			values:    []uint64{0, 1},
			calldatas: [][]byte{{0x01}, nil},
		},
		{
			name:    "empty",
			wantErr: true,
		},
		{
			name:      "short values",
			targets:   []string{"a", "b"},
			values:    []uint64{0},
			calldatas: [][]byte{nil, nil},
			wantErr:   true,
		},
		{
			name:      "short calldatas",
			targets:   []string{"a"},
			values:    []uint64{0},
			calldatas: [][]byte{},
			wantErr:   true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			calls, err := action.NewBatch(
				testDef.targets,
				testDef.values,
				testDef.calldatas,
			)
			if testDef.wantErr {
				require.ErrorIs(t, err, action.ErrInvalidLength)
				return
			}
			require.NoError(t, err)
			targets, values, calldatas := action.SplitBatch(calls)
			assert.Equal(t, testDef.targets, targets)
			assert.Equal(t, testDef.values, values)
			assert.Len(t, calldatas, len(testDef.calldatas))
		})
	}
}

func TestEncodeBatchDeterministic(t *testing.T) {
	calls := []action.Call{
		{Target: "box", Calldata: action.SetValueCalldata(42)},
		{Target: "other", Value: 7, Calldata: []byte{0xde, 0xad}},
	}
	first, err := action.EncodeBatch(calls)
	require.NoError(t, err)
	second, err := action.EncodeBatch(action.CloneBatch(calls))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := action.DecodeBatch(first)
	require.NoError(t, err)
	assert.Equal(t, calls, decoded)

	// Order matters
	swapped, err := action.EncodeBatch([]action.Call{calls[1], calls[0]})
	require.NoError(t, err)
	assert.NotEqual(t, first, swapped)
}

func TestEncodeBatchEmptyCalldata(t *testing.T) {
	withNil, err := action.EncodeBatch([]action.Call{{Target: "box"}})
	require.NoError(t, err)
	withEmpty, err := action.EncodeBatch(
		[]action.Call{{Target: "box", Calldata: []byte{}}},
	)
	require.NoError(t, err)
	assert.Equal(t, withNil, withEmpty)
}

func TestCloneBatchIsDeep(t *testing.T) {
	calls := []action.Call{{Target: "box", Calldata: []byte{0x01}}}
	clone := action.CloneBatch(calls)
	clone[0].Calldata[0] = 0xff
	assert.Equal(t, byte(0x01), calls[0].Calldata[0])
	assert.Nil(t, action.CloneBatch(nil))
}

func TestCalldata(t *testing.T) {
	data, err := action.EncodeCalldata("transfer", []string{"alice", "bob"})
	require.NoError(t, err)
	method, args, err := action.DecodeCalldata(data)
	require.NoError(t, err)
	assert.Equal(t, "transfer", method)
	var decoded []string
	require.NoError(t, action.DecodeArgs(args, &decoded))
	assert.Equal(t, []string{"alice", "bob"}, decoded)

	_, err = action.EncodeCalldata("", nil)
	require.ErrorIs(t, err, action.ErrInvalidCalldata)
	_, _, err = action.DecodeCalldata([]byte{0xff, 0x00})
	require.ErrorIs(t, err, action.ErrInvalidCalldata)
	var wrong uint64
	require.ErrorIs(t, action.DecodeArgs(args, &wrong), action.ErrInvalidCalldata)
}

func TestRegistry(t *testing.T) {
	reg := action.NewRegistry()
	box := action.NewBox("owner")
	require.NoError(t, reg.Register("box", box))
	require.ErrorIs(t, reg.Register("box", box), action.ErrTargetExists)
	require.ErrorIs(t, reg.Register("", box), action.ErrEmptyTargetName)
	require.NoError(t, reg.Register("another", box))
	assert.Equal(t, []string{"another", "box"}, reg.Targets())
	_, err := reg.Lookup("missing")
	require.ErrorIs(t, err, action.ErrUnknownTarget)
}

func TestInvokeBatchRollsBack(t *testing.T) {
	reg := action.NewRegistry()
	box := action.NewBox("owner")
	require.NoError(t, reg.Register(action.BoxTargetName, box))
	failure := errors.New("boom")
	require.NoError(t, reg.Register(
		"failing",
		action.TargetFunc(func(context.Context, string, uint64, []byte) (action.Undo, error) {
			return nil, failure
		}),
	))
	calls := []action.Call{
		{Target: action.BoxTargetName, Calldata: action.SetValueCalldata(1)},
		{Target: action.BoxTargetName, Calldata: action.SetValueCalldata(2)},
		{Target: "failing"},
	}
	_, err := reg.InvokeBatch(t.Context(), "owner", calls)
	require.ErrorIs(t, err, action.ErrCallFailed)
	require.ErrorIs(t, err, failure)
	var callErr *action.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 2, callErr.Index)
	assert.Equal(t, uint64(0), box.Value())
	assert.Empty(t, box.History())

	// Unknown targets fail the batch in the same way
	calls[2].Target = "missing"
	_, err = reg.InvokeBatch(t.Context(), "owner", calls)
	require.ErrorIs(t, err, action.ErrUnknownTarget)
	assert.Equal(t, uint64(0), box.Value())
}

func TestInvokeBatchUndo(t *testing.T) {
	reg := action.NewRegistry()
	box := action.NewBox("owner")
	require.NoError(t, reg.Register(action.BoxTargetName, box))
	undo, err := reg.InvokeBatch(
		t.Context(),
		"owner",
		[]action.Call{
			{Target: action.BoxTargetName, Calldata: action.SetValueCalldata(5)},
			{Target: action.BoxTargetName, Calldata: action.SetValueCalldata(6)},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), box.Value())
	undo()
	assert.Equal(t, uint64(0), box.Value())
	assert.Empty(t, box.History())
}

func TestInvokeBatchCanceledContext(t *testing.T) {
	reg := action.NewRegistry()
	box := action.NewBox("owner")
	require.NoError(t, reg.Register(action.BoxTargetName, box))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := reg.InvokeBatch(
		ctx,
		"owner",
		[]action.Call{{Target: action.BoxTargetName, Calldata: action.SetValueCalldata(5)}},
	)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), box.Value())
}

func TestBox(t *testing.T) {
	box := action.NewBox("owner")
	assert.Equal(t, "owner", box.Owner())
	_, err := box.Invoke(t.Context(), "mallory", 0, action.SetValueCalldata(1))
	require.ErrorIs(t, err, action.ErrNotOwner)
	_, err = box.Invoke(t.Context(), "owner", 1, action.SetValueCalldata(1))
	require.ErrorIs(t, err, action.ErrNotPayable)
	_, err = box.Invoke(t.Context(), "owner", 0, action.MustEncodeCalldata("explode", nil))
	require.ErrorIs(t, err, action.ErrUnknownMethod)
	_, err = box.Invoke(t.Context(), "owner", 0, action.MustEncodeCalldata(action.BoxMethodSetValue, "nope"))
	require.ErrorIs(t, err, action.ErrInvalidCalldata)

	undo, err := box.Invoke(t.Context(), "owner", 0, action.SetValueCalldata(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), box.Value())
	assert.Equal(t, []uint64{3}, box.History())
	undo()
	assert.Equal(t, uint64(0), box.Value())
}
