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

package timelock_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/timelock"
)

const (
	testAdmin    = "admin"
	testGovernor = "governor"
	testMinDelay = 10
)

type fixture struct {
	clock    *clock.Clock
	registry *action.Registry
	box      *action.Box
	timelock *timelock.Timelock
}

func newFixture(t *testing.T, store timelock.Store) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.New(clock.Config{Start: 100}),
		registry: action.NewRegistry(),
		box:      action.NewBox(timelock.DefaultAccount),
	}
	require.NoError(t, f.registry.Register(action.BoxTargetName, f.box))
	tl, err := timelock.New(
		timelock.Config{
			Admin:    testAdmin,
			MinDelay: testMinDelay,
			Clock:    f.clock,
			Registry: f.registry,
			Store:    store,
		},
	)
	require.NoError(t, err)
	f.timelock = tl
	require.NoError(t, tl.GrantRole(testAdmin, timelock.RoleProposer, testGovernor))
	require.NoError(t, tl.GrantRole(testAdmin, timelock.RoleExecutor, testGovernor))
	return f
}

func boxCalls(v uint64) []action.Call {
	return []action.Call{
		{
			Target:   action.BoxTargetName,
			Calldata: action.SetValueCalldata(v),
		},
	}
}

func (f *fixture) advance(t *testing.T, n uint64) {
	t.Helper()
	_, err := f.clock.Advance(n)
	require.NoError(t, err)
}

func TestNewRequiresMinDelay(t *testing.T) {
	_, err := timelock.New(
		timelock.Config{
			Clock:    clock.New(clock.Config{}),
			Registry: action.NewRegistry(),
		},
	)
	require.ErrorIs(t, err, timelock.ErrInvalidDelay)
}

func TestInitialRoles(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(
		t,
		[]string{testAdmin, timelock.DefaultAccount},
		f.timelock.RoleMembers(timelock.RoleAdmin),
	)
	assert.True(t, f.timelock.HasRole(timelock.RoleProposer, testGovernor))
	assert.False(t, f.timelock.HasRole(timelock.RoleProposer, testAdmin))
}

func TestScheduleUnauthorized(t *testing.T) {
	f := newFixture(t, nil)
	calls := boxCalls(1)
	_, err := f.timelock.Schedule("mallory", calls, action.ZeroHash, action.ZeroHash, testMinDelay)
	require.ErrorIs(t, err, timelock.ErrNotAuthorizedProposer)
	id, err := timelock.HashOperation(calls, action.ZeroHash, action.ZeroHash)
	require.NoError(t, err)
	assert.Equal(t, timelock.OperationUnset, f.timelock.OperationState(id))
	_, err = f.timelock.Operation(id)
	require.ErrorIs(t, err, timelock.ErrUnknownOperation)
	assert.Empty(t, f.timelock.Operations())
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.timelock.Schedule(testGovernor, nil, action.ZeroHash, action.ZeroHash, testMinDelay)
	require.ErrorIs(t, err, timelock.ErrInvalidLength)
	_, err = f.timelock.ScheduleBatch(
		testGovernor,
		[]string{action.BoxTargetName},
		[]uint64{0, 0},
		[][]byte{nil},
		action.ZeroHash,
		action.ZeroHash,
		testMinDelay,
	)
	require.ErrorIs(t, err, timelock.ErrInvalidLength)
	_, err = f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, testMinDelay-1)
	require.ErrorIs(t, err, timelock.ErrInsufficientDelay)
	_, err = f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, 0)
	require.ErrorIs(t, err, timelock.ErrInsufficientDelay)
	assert.Empty(t, f.timelock.Operations())
}

func TestScheduleDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	_, err = f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, testMinDelay+5)
	require.ErrorIs(t, err, timelock.ErrAlreadyScheduled)
	// A different salt gives a distinct operation
	_, err = f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.Keccak256([]byte("salt")), testMinDelay)
	require.NoError(t, err)
}

func TestReadyBoundary(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.timelock.Schedule(testGovernor, boxCalls(7), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	op, err := f.timelock.Operation(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(100+testMinDelay), op.ReadyHeight)

	f.advance(t, testMinDelay-1)
	assert.Equal(t, timelock.OperationWaiting, f.timelock.OperationState(id))
	err = f.timelock.Execute(t.Context(), testGovernor, id)
	require.ErrorIs(t, err, timelock.ErrNotReady)
	assert.Equal(t, uint64(0), f.box.Value())

	f.advance(t, 1)
	assert.Equal(t, timelock.OperationReady, f.timelock.OperationState(id))
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, id))
	assert.Equal(t, timelock.OperationDone, f.timelock.OperationState(id))
	assert.Equal(t, uint64(7), f.box.Value())
}

func TestExecuteTwice(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.timelock.Schedule(testGovernor, boxCalls(3), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, id))
	err = f.timelock.Execute(t.Context(), testGovernor, id)
	require.ErrorIs(t, err, timelock.ErrAlreadyExecuted)
	assert.Equal(t, []uint64{3}, f.box.History())
}

func TestExecuteUnauthorized(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.timelock.Schedule(testGovernor, boxCalls(3), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)
	err = f.timelock.Execute(t.Context(), "mallory", id)
	require.ErrorIs(t, err, timelock.ErrNotAuthorizedExecutor)
	assert.Equal(t, timelock.OperationReady, f.timelock.OperationState(id))
}

func TestExecuteUnknown(t *testing.T) {
	f := newFixture(t, nil)
	err := f.timelock.Execute(t.Context(), testGovernor, action.Keccak256([]byte("nope")))
	require.ErrorIs(t, err, timelock.ErrNotReady)
	require.ErrorIs(t, err, timelock.ErrUnknownOperation)
}

func TestExecutePredecessor(t *testing.T) {
	f := newFixture(t, nil)
	first, err := f.timelock.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	second, err := f.timelock.Schedule(testGovernor, boxCalls(2), first, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)
	err = f.timelock.Execute(t.Context(), testGovernor, second)
	require.ErrorIs(t, err, timelock.ErrPredecessorNotDone)
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, first))
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, second))
	assert.Equal(t, []uint64{1, 2}, f.box.History())
}

func TestExecuteFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	var fail atomic.Bool
	fail.Store(true)
	require.NoError(t, f.registry.Register(
		"flaky",
		action.TargetFunc(func(context.Context, string, uint64, []byte) (action.Undo, error) {
			if fail.Load() {
				return nil, errors.New("flaky target failure")
			}
			return func() {}, nil
		}),
	))
	calls := append(
		boxCalls(42),
		action.Call{Target: "flaky"},
	)
	id, err := f.timelock.Schedule(testGovernor, calls, action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)

	err = f.timelock.Execute(t.Context(), testGovernor, id)
	require.ErrorIs(t, err, action.ErrCallFailed)
	var callErr *action.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 1, callErr.Index)
	assert.Equal(t, "flaky", callErr.Target)
	// The first call was undone and the operation can be retried
	assert.Equal(t, uint64(0), f.box.Value())
	assert.Equal(t, timelock.OperationReady, f.timelock.OperationState(id))

	fail.Store(false)
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, id))
	assert.Equal(t, uint64(42), f.box.Value())
	assert.Equal(t, timelock.OperationDone, f.timelock.OperationState(id))
}

func TestConcurrentExecute(t *testing.T) {
	for range 20 {
		f := newFixture(t, nil)
		id, err := f.timelock.Schedule(testGovernor, boxCalls(9), action.ZeroHash, action.ZeroHash, testMinDelay)
		require.NoError(t, err)
		f.advance(t, testMinDelay)

		var successes, rejected atomic.Int32
		var g errgroup.Group
		for range 8 {
			g.Go(func() error {
				err := f.timelock.Execute(context.Background(), testGovernor, id)
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, timelock.ErrAlreadyExecuted),
					errors.Is(err, timelock.ErrNotReady):
					rejected.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), successes.Load())
		assert.Equal(t, int32(7), rejected.Load())
		assert.Equal(t, []uint64{9}, f.box.History())
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.timelock.Schedule(testGovernor, boxCalls(5), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	require.ErrorIs(t, f.timelock.Cancel("mallory", id), timelock.ErrNotAuthorizedProposer)
	require.NoError(t, f.timelock.Cancel(testGovernor, id))
	assert.Equal(t, timelock.OperationUnset, f.timelock.OperationState(id))
	require.ErrorIs(t, f.timelock.Cancel(testGovernor, id), timelock.ErrUnknownOperation)

	// Canceled operations may be scheduled again
	id2, err := f.timelock.Schedule(testGovernor, boxCalls(5), action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	f.advance(t, testMinDelay)
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, id))
	require.ErrorIs(t, f.timelock.Cancel(testGovernor, id), timelock.ErrNotCancelable)
}

func TestRoleAdministration(t *testing.T) {
	f := newFixture(t, nil)
	require.ErrorIs(
		t,
		f.timelock.GrantRole("mallory", timelock.RoleProposer, "mallory"),
		timelock.ErrNotAuthorizedAdmin,
	)
	require.NoError(t, f.timelock.GrantRole(testAdmin, timelock.RoleProposer, "alice"))
	assert.True(t, f.timelock.HasRole(timelock.RoleProposer, "alice"))
	// Roles are independent sets
	assert.False(t, f.timelock.HasRole(timelock.RoleExecutor, "alice"))
	require.NoError(t, f.timelock.RevokeRole(testAdmin, timelock.RoleProposer, "alice"))
	assert.False(t, f.timelock.HasRole(timelock.RoleProposer, "alice"))
	require.ErrorIs(
		t,
		f.timelock.GrantRole(testAdmin, timelock.Role(99), "alice"),
		timelock.ErrUnknownRole,
	)
}

func TestWireRevokesDeployer(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.timelock.Wire(testAdmin, "gov2"))
	assert.True(t, f.timelock.HasRole(timelock.RoleProposer, "gov2"))
	assert.True(t, f.timelock.HasRole(timelock.RoleExecutor, "gov2"))
	assert.False(t, f.timelock.HasRole(timelock.RoleAdmin, testAdmin))
	// The deployer can no longer administer roles
	require.ErrorIs(
		t,
		f.timelock.GrantRole(testAdmin, timelock.RoleProposer, testAdmin),
		timelock.ErrNotAuthorizedAdmin,
	)
}

func TestSelfAdministration(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.timelock.Wire(testAdmin, testGovernor))
	calls := []action.Call{
		{
			Target:   timelock.TargetName,
			Calldata: timelock.UpdateDelayCalldata(20),
		},
		{
			Target:   timelock.TargetName,
			Calldata: timelock.GrantRoleCalldata(timelock.RoleExecutor, "alice"),
		},
	}
	id, err := f.timelock.Schedule(testGovernor, calls, action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)
	require.NoError(t, f.timelock.Execute(t.Context(), testGovernor, id))
	assert.Equal(t, uint64(20), f.timelock.MinDelay())
	assert.True(t, f.timelock.HasRole(timelock.RoleExecutor, "alice"))

	// Direct calls to the administration target are refused
	target, err := f.registry.Lookup(timelock.TargetName)
	require.NoError(t, err)
	_, err = target.Invoke(t.Context(), testAdmin, 0, timelock.UpdateDelayCalldata(1))
	require.ErrorIs(t, err, timelock.ErrNotAuthorizedSelf)
	_, err = target.Invoke(t.Context(), testAdmin, 0, timelock.RevokeRoleCalldata(timelock.RoleExecutor, "alice"))
	require.ErrorIs(t, err, timelock.ErrNotAuthorizedAdmin)
}

func TestSelfAdministrationRollback(t *testing.T) {
	f := newFixture(t, nil)
	calls := []action.Call{
		{
			Target:   timelock.TargetName,
			Calldata: timelock.UpdateDelayCalldata(50),
		},
		{
			Target:   timelock.TargetName,
			Calldata: timelock.RevokeRoleCalldata(timelock.RoleProposer, testGovernor),
		},
		{
			Target:   timelock.TargetName,
			Calldata: timelock.UpdateDelayCalldata(0),
		},
	}
	id, err := f.timelock.Schedule(testGovernor, calls, action.ZeroHash, action.ZeroHash, testMinDelay)
	require.NoError(t, err)
	f.advance(t, testMinDelay)
	err = f.timelock.Execute(t.Context(), testGovernor, id)
	require.ErrorIs(t, err, timelock.ErrInvalidDelay)
	assert.Equal(t, uint64(testMinDelay), f.timelock.MinDelay())
	assert.True(t, f.timelock.HasRole(timelock.RoleProposer, testGovernor))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := clock.New(clock.Config{})
	registry := action.NewRegistry()
	require.NoError(t, registry.Register(action.BoxTargetName, action.NewBox(timelock.DefaultAccount)))
	tl, err := timelock.New(
		timelock.Config{
			Admin:        testAdmin,
			MinDelay:     1,
			Clock:        c,
			Registry:     registry,
			PromRegistry: reg,
		},
	)
	require.NoError(t, err)
	require.NoError(t, tl.Wire(testAdmin, testGovernor))
	id, err := tl.Schedule(testGovernor, boxCalls(1), action.ZeroHash, action.ZeroHash, 1)
	require.NoError(t, err)
	_, err = c.Advance(1)
	require.NoError(t, err)
	require.NoError(t, tl.Execute(t.Context(), testGovernor, id))
	count, err := testutil.GatherAndCount(
		reg,
		"gavel_timelock_operations_scheduled_total",
		"gavel_timelock_operations_executed_total",
		"gavel_timelock_operations_pending",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
