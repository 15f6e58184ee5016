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

package timelock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultAccount is the identity the timelock uses when invoking targets
	DefaultAccount = "timelock"
	// TargetName is the registry name of the timelock's own administration
	// target
	TargetName = "timelock"
)

// Store persists timelock state. Every method must be atomic
type Store interface {
	SaveOperation(Operation) error
	DeleteOperation(action.Hash) error
	SaveRole(role Role, account string, granted bool) error
	SaveMinDelay(uint64) error
	LoadOperations() ([]Operation, error)
	LoadRoles() (map[Role][]string, error)
	LoadMinDelay() (uint64, bool, error)
	// SaveInitialized records that the initial roles were granted.
	// LoadInitialized reports whether that happened
	SaveInitialized() error
	LoadInitialized() (bool, error)
}

type Config struct {
	// Account is the timelock's own identity. It holds the admin role and is
	// the caller for every target invocation
	Account string
	// Admin is granted the admin role on first start
	Admin string
	// MinDelay is the minimum number of heights between scheduling and
	// execution. It must be at least 1
	MinDelay     uint64
	Clock        clock.HeightSource
	Registry     *action.Registry
	Store        Store
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
}

// Timelock admits operations from proposers, holds them for at least the
// minimum delay and lets executors run each exactly once
type Timelock struct {
	mu         sync.Mutex
	account    string
	minDelay   uint64
	clock      clock.HeightSource
	registry   *action.Registry
	store      Store
	logger     *slog.Logger
	eventBus   event.Publisher
	metrics    *timelockMetrics
	roles      roleSet
	operations map[action.Hash]*Operation
	executing  map[action.Hash]struct{}
}

func New(cfg Config) (*Timelock, error) {
	if cfg.Clock == nil {
		return nil, errors.New("no height source provided")
	}
	if cfg.Registry == nil {
		return nil, errors.New("no target registry provided")
	}
	if cfg.MinDelay == 0 {
		return nil, fmt.Errorf("%w: minimum delay must be at least 1", ErrInvalidDelay)
	}
	if cfg.Account == "" {
		cfg.Account = DefaultAccount
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	t := &Timelock{
		account:    cfg.Account,
		minDelay:   cfg.MinDelay,
		clock:      cfg.Clock,
		registry:   cfg.Registry,
		store:      cfg.Store,
		logger:     cfg.Logger.With("component", "timelock"),
		eventBus:   cfg.EventBus,
		roles:      newRoleSet(),
		operations: make(map[action.Hash]*Operation),
		executing:  make(map[action.Hash]struct{}),
	}
	if cfg.PromRegistry != nil {
		t.metrics = newTimelockMetrics(cfg.PromRegistry)
	}
	if err := t.load(cfg.Admin); err != nil {
		return nil, err
	}
	if err := t.registry.Register(TargetName, &selfTarget{timelock: t}); err != nil {
		return nil, fmt.Errorf("register timelock target: %w", err)
	}
	return t, nil
}

func (t *Timelock) load(admin string) error {
	var storedRoles map[Role][]string
	initialized := false
	if t.store != nil {
		var err error
		initialized, err = t.store.LoadInitialized()
		if err != nil {
			return fmt.Errorf("load initialized marker: %w", err)
		}
		minDelay, found, err := t.store.LoadMinDelay()
		if err != nil {
			return fmt.Errorf("load minimum delay: %w", err)
		}
		if found {
			t.minDelay = minDelay
		}
		storedRoles, err = t.store.LoadRoles()
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		ops, err := t.store.LoadOperations()
		if err != nil {
			return fmt.Errorf("load operations: %w", err)
		}
		for _, op := range ops {
			tmpOp := op
			t.operations[op.ID] = &tmpOp
		}
		if len(ops) > 0 {
			t.logger.Info(
				"loaded timelock operations",
				"count", len(ops),
			)
		}
	}
	// Revoked grants are not stored, so an empty role table on an
	// initialized store stays empty
	if initialized || len(storedRoles) > 0 {
		for role, accounts := range storedRoles {
			if !role.Valid() {
				return fmt.Errorf("load roles: %w: %d", ErrUnknownRole, role)
			}
			for _, account := range accounts {
				t.roles.grant(role, account)
			}
		}
	} else {
		// First start: the timelock administers itself, plus the deploying admin
		initialAdmins := []string{t.account}
		if admin != "" && admin != t.account {
			initialAdmins = append(initialAdmins, admin)
		}
		for _, account := range initialAdmins {
			if t.store != nil {
				if err := t.store.SaveRole(RoleAdmin, account, true); err != nil {
					return fmt.Errorf("save initial admin: %w", err)
				}
			}
			t.roles.grant(RoleAdmin, account)
		}
	}
	if t.store != nil && !initialized {
		if err := t.store.SaveInitialized(); err != nil {
			return fmt.Errorf("save initialized marker: %w", err)
		}
	}
	if t.metrics != nil {
		t.metrics.pending.Set(float64(t.pendingCount()))
	}
	return nil
}

// Account returns the timelock's own identity
func (t *Timelock) Account() string {
	return t.account
}

// MinDelay returns the current minimum delay
func (t *Timelock) MinDelay() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.minDelay
}

// HasRole reports whether account holds role
func (t *Timelock) HasRole(role Role, account string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roles.has(role, account)
}

// RoleMembers returns the sorted members of role
func (t *Timelock) RoleMembers(role Role) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roles.members(role)
}

// Schedule admits a batch of calls that becomes executable delay heights
// from now
func (t *Timelock) Schedule(
	caller string,
	calls []action.Call,
	predecessor action.Hash,
	salt action.Hash,
	delay uint64,
) (action.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.roles.has(RoleProposer, caller) {
		return action.Hash{}, t.rejected(
			"schedule",
			fmt.Errorf("%w: %s", ErrNotAuthorizedProposer, caller),
		)
	}
	id, err := HashOperation(calls, predecessor, salt)
	if err != nil {
		return action.Hash{}, t.rejected("schedule", err)
	}
	if delay < t.minDelay {
		return action.Hash{}, t.rejected(
			"schedule",
			fmt.Errorf(
				"%w: %d < %d",
				ErrInsufficientDelay,
				delay,
				t.minDelay,
			),
		)
	}
	if _, ok := t.operations[id]; ok {
		return action.Hash{}, t.rejected(
			"schedule",
			fmt.Errorf("%w: %s", ErrAlreadyScheduled, id),
		)
	}
	height := t.clock.CurrentHeight()
	if delay > math.MaxUint64-height {
		return action.Hash{}, t.rejected(
			"schedule",
			fmt.Errorf("%w: ready height overflows", ErrInvalidDelay),
		)
	}
	op := &Operation{
		ID:              id,
		Calls:           action.CloneBatch(calls),
		Predecessor:     predecessor,
		Salt:            salt,
		ScheduledHeight: height,
		ReadyHeight:     height + delay,
	}
	if t.store != nil {
		if err := t.store.SaveOperation(op.clone()); err != nil {
			return action.Hash{}, fmt.Errorf("save operation: %w", err)
		}
	}
	t.operations[id] = op
	if t.metrics != nil {
		t.metrics.scheduled.Inc()
		t.metrics.pending.Inc()
	}
	t.logger.Info(
		"operation scheduled",
		"operation", id.String(),
		"caller", caller,
		"calls", len(calls),
		"ready_height", op.ReadyHeight,
	)
	t.publish(
		OperationScheduledEventType,
		OperationScheduledEvent{
			ID:          id,
			Calls:       action.CloneBatch(calls),
			Predecessor: predecessor,
			ReadyHeight: op.ReadyHeight,
		},
	)
	return id, nil
}

// ScheduleBatch is Schedule with the calls given as index-aligned target,
// value and calldata sequences
func (t *Timelock) ScheduleBatch(
	caller string,
	targets []string,
	values []uint64,
	calldatas [][]byte,
	predecessor action.Hash,
	salt action.Hash,
	delay uint64,
) (action.Hash, error) {
	calls, err := action.NewBatch(targets, values, calldatas)
	if err != nil {
		return action.Hash{}, t.rejected("schedule", err)
	}
	return t.Schedule(caller, calls, predecessor, salt, delay)
}

// Execute runs the calls of a ready operation exactly once. If any call
// fails, the calls already applied are undone and the operation stays ready
func (t *Timelock) Execute(
	ctx context.Context,
	caller string,
	id action.Hash,
) error {
	t.mu.Lock()
	op, err := t.checkExecutable(caller, id)
	if err != nil {
		t.mu.Unlock()
		return t.rejected("execute", err)
	}
	// Claim the operation so concurrent executions and cancels are refused
	t.executing[id] = struct{}{}
	calls := action.CloneBatch(op.Calls)
	t.mu.Unlock()

	// Targets are invoked without holding the lock so that operations may
	// administer the timelock itself
	undo, invokeErr := t.registry.InvokeBatch(ctx, t.account, calls)

	t.mu.Lock()
	delete(t.executing, id)
	if invokeErr != nil {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.failures.Inc()
		}
		t.logger.Warn(
			"operation execution failed",
			"operation", id.String(),
			"error", invokeErr,
		)
		return fmt.Errorf("execute operation %s: %w", id, invokeErr)
	}
	height := t.clock.CurrentHeight()
	updated := op.clone()
	updated.Done = true
	updated.ExecutedHeight = height
	if t.store != nil {
		if err := t.store.SaveOperation(updated.clone()); err != nil {
			t.mu.Unlock()
			undo()
			if t.metrics != nil {
				t.metrics.failures.Inc()
			}
			return fmt.Errorf("save executed operation %s: %w", id, err)
		}
	}
	op.Done = true
	op.ExecutedHeight = height
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.executed.Inc()
		t.metrics.pending.Dec()
	}
	t.logger.Info(
		"operation executed",
		"operation", id.String(),
		"caller", caller,
		"height", height,
	)
	t.publish(
		OperationExecutedEventType,
		OperationExecutedEvent{
			ID:     id,
			Height: height,
		},
	)
	return nil
}

func (t *Timelock) checkExecutable(
	caller string,
	id action.Hash,
) (*Operation, error) {
	if !t.roles.has(RoleExecutor, caller) {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorizedExecutor, caller)
	}
	op, ok := t.operations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrNotReady, ErrUnknownOperation, id)
	}
	if op.Done {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, id)
	}
	if _, ok := t.executing[id]; ok {
		return nil, fmt.Errorf("%w: execution in progress: %s", ErrNotReady, id)
	}
	height := t.clock.CurrentHeight()
	if height < op.ReadyHeight {
		return nil, fmt.Errorf(
			"%w: ready at height %d, current height %d",
			ErrNotReady,
			op.ReadyHeight,
			height,
		)
	}
	if !op.Predecessor.IsZero() {
		pred, ok := t.operations[op.Predecessor]
		if !ok || !pred.Done {
			return nil, fmt.Errorf(
				"%w: %s",
				ErrPredecessorNotDone,
				op.Predecessor,
			)
		}
	}
	return op, nil
}

// Cancel removes a scheduled operation that has not been executed,
// returning it to Unset
func (t *Timelock) Cancel(caller string, id action.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.roles.has(RoleProposer, caller) {
		return t.rejected(
			"cancel",
			fmt.Errorf("%w: %s", ErrNotAuthorizedProposer, caller),
		)
	}
	op, ok := t.operations[id]
	if !ok {
		return t.rejected("cancel", fmt.Errorf("%w: %s", ErrUnknownOperation, id))
	}
	if op.Done {
		return t.rejected(
			"cancel",
			fmt.Errorf("%w: already executed: %s", ErrNotCancelable, id),
		)
	}
	if _, ok := t.executing[id]; ok {
		return t.rejected(
			"cancel",
			fmt.Errorf("%w: execution in progress: %s", ErrNotCancelable, id),
		)
	}
	if t.store != nil {
		if err := t.store.DeleteOperation(id); err != nil {
			return fmt.Errorf("delete operation: %w", err)
		}
	}
	delete(t.operations, id)
	if t.metrics != nil {
		t.metrics.canceled.Inc()
		t.metrics.pending.Dec()
	}
	t.logger.Info(
		"operation canceled",
		"operation", id.String(),
		"caller", caller,
	)
	t.publish(
		OperationCanceledEventType,
		OperationCanceledEvent{ID: id},
	)
	return nil
}

// OperationState returns the derived state of an operation at the current
// height
func (t *Timelock) OperationState(id action.Hash) OperationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.operations[id].StateAt(t.clock.CurrentHeight())
}

// Operation returns a copy of the stored operation
func (t *Timelock) Operation(id action.Hash) (Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return op.clone(), nil
}

// Operations returns copies of all stored operations ordered by scheduling
// height
func (t *Timelock) Operations() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	ret := make([]Operation, 0, len(t.operations))
	for _, op := range t.operations {
		ret = append(ret, op.clone())
	}
	slices.SortFunc(ret, func(a, b Operation) int {
		switch {
		case a.ScheduledHeight < b.ScheduledHeight:
			return -1
		case a.ScheduledHeight > b.ScheduledHeight:
			return 1
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return ret
}

// GrantRole adds account to role. The caller must hold the admin role
func (t *Timelock) GrantRole(caller string, role Role, account string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.setRole(caller, role, account, true)
	return err
}

// RevokeRole removes account from role. The caller must hold the admin role.
// Revoking the last admin freezes role administration permanently
func (t *Timelock) RevokeRole(caller string, role Role, account string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.setRole(caller, role, account, false)
	return err
}

// RenounceRole removes the caller's own membership in role
func (t *Timelock) RenounceRole(caller string, role Role) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !role.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRole, role)
	}
	_, err := t.applyRole(caller, role, caller, false)
	return err
}

// setRole checks the admin role and applies a role change. Callers must hold
// the lock
func (t *Timelock) setRole(
	caller string,
	role Role,
	account string,
	granted bool,
) (bool, error) {
	op := "revoke role"
	if granted {
		op = "grant role"
	}
	if !t.roles.has(RoleAdmin, caller) {
		return false, t.rejected(
			op,
			fmt.Errorf("%w: %s", ErrNotAuthorizedAdmin, caller),
		)
	}
	if !role.Valid() {
		return false, t.rejected(op, fmt.Errorf("%w: %d", ErrUnknownRole, role))
	}
	return t.applyRole(caller, role, account, granted)
}

func (t *Timelock) applyRole(
	caller string,
	role Role,
	account string,
	granted bool,
) (bool, error) {
	if t.roles.has(role, account) == granted {
		return false, nil
	}
	if t.store != nil {
		if err := t.store.SaveRole(role, account, granted); err != nil {
			return false, fmt.Errorf("save role: %w", err)
		}
	}
	if granted {
		t.roles.grant(role, account)
	} else {
		t.roles.revoke(role, account)
	}
	t.logger.Info(
		"role changed",
		"role", role.String(),
		"account", account,
		"granted", granted,
		"caller", caller,
	)
	t.publish(
		RoleChangedEventType,
		RoleChangedEvent{
			Role:    role,
			Account: account,
			Granted: granted,
			Caller:  caller,
		},
	)
	return true, nil
}

// updateMinDelay replaces the minimum delay. Callers must hold the lock
func (t *Timelock) updateMinDelay(delay uint64) (uint64, error) {
	if delay == 0 {
		return 0, fmt.Errorf("%w: minimum delay must be at least 1", ErrInvalidDelay)
	}
	prev := t.minDelay
	if t.store != nil {
		if err := t.store.SaveMinDelay(delay); err != nil {
			return prev, fmt.Errorf("save minimum delay: %w", err)
		}
	}
	t.minDelay = delay
	t.logger.Info(
		"minimum delay updated",
		"previous", prev,
		"delay", delay,
	)
	t.publish(
		MinDelayChangedEventType,
		MinDelayChangedEvent{Previous: prev, Delay: delay},
	)
	return prev, nil
}

func (t *Timelock) pendingCount() int {
	count := 0
	for _, op := range t.operations {
		if !op.Done {
			count++
		}
	}
	return count
}

func (t *Timelock) rejected(op string, err error) error {
	t.logger.Debug(
		"timelock request rejected",
		"op", op,
		"error", err,
	)
	return err
}

func (t *Timelock) publish(eventType event.EventType, data any) {
	if t.eventBus == nil {
		return
	}
	t.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
