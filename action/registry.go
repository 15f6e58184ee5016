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

package action

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrUnknownTarget   = errors.New("unknown target")
	ErrCallFailed      = errors.New("target call failed")
	ErrTargetExists    = errors.New("target already registered")
	ErrNotOwner        = errors.New("caller is not the target owner")
	ErrNotPayable      = errors.New("target does not accept value")
	ErrUnknownMethod   = errors.New("unknown target method")
	ErrEmptyTargetName = errors.New("empty target name")
)

// Undo reverts the effect of a successful Invoke. It must not fail
type Undo func()

// Target is an invokable action destination
type Target interface {
	// Invoke applies a call on behalf of caller. On success it returns an
	// Undo which reverts the call's effects
	Invoke(ctx context.Context, caller string, value uint64, calldata []byte) (Undo, error)
}

// TargetFunc adapts a plain function to the Target interface
type TargetFunc func(ctx context.Context, caller string, value uint64, calldata []byte) (Undo, error)

func (f TargetFunc) Invoke(
	ctx context.Context,
	caller string,
	value uint64,
	calldata []byte,
) (Undo, error) {
	return f(ctx, caller, value, calldata)
}

// CallError describes the failure of a single call within a batch
type CallError struct {
	Index  int
	Target string
	Err    error
}

func NewCallError(index int, target string, err error) *CallError {
	return &CallError{
		Index:  index,
		Target: target,
		Err:    err,
	}
}

func (e *CallError) Error() string {
	return fmt.Sprintf(
		"call %d to target %q failed: %v",
		e.Index,
		e.Target,
		e.Err,
	)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func (e *CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// Registry maps target identifiers to targets
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]Target),
	}
}

// Register adds a target under the given name
func (r *Registry) Register(name string, target Target) error {
	if name == "" {
		return ErrEmptyTargetName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[name]; ok {
		return fmt.Errorf("%w: %s", ErrTargetExists, name)
	}
	r.targets[name] = target
	return nil
}

// Lookup returns the target registered under name
func (r *Registry) Lookup(name string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return target, nil
}

// Targets returns the sorted list of registered target names
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.targets))
	for name := range r.targets {
		ret = append(ret, name)
	}
	slices.Sort(ret)
	return ret
}

// InvokeBatch invokes each call in order. If any call fails, the effects of
// the calls already applied are undone in reverse order and a *CallError is
// returned. On success the returned Undo reverts the whole batch
func (r *Registry) InvokeBatch(
	ctx context.Context,
	caller string,
	calls []Call,
) (Undo, error) {
	undos := make([]Undo, 0, len(calls))
	rollback := func() {
		for _, undo := range slices.Backward(undos) {
			if undo != nil {
				undo()
			}
		}
	}
	for idx, call := range calls {
		if err := ctx.Err(); err != nil {
			rollback()
			return nil, NewCallError(idx, call.Target, err)
		}
		target, err := r.Lookup(call.Target)
		if err != nil {
			rollback()
			return nil, NewCallError(idx, call.Target, err)
		}
		undo, err := target.Invoke(ctx, caller, call.Value, call.Calldata)
		if err != nil {
			rollback()
			return nil, NewCallError(idx, call.Target, err)
		}
		undos = append(undos, undo)
	}
	return rollback, nil
}
