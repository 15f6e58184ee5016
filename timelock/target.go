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
	"fmt"

	"github.com/blinklabs-io/gavel/action"
)

const (
	MethodUpdateDelay = "updateDelay"
	MethodGrantRole   = "grantRole"
	MethodRevokeRole  = "revokeRole"
)

// RoleArgs is the calldata argument for grantRole and revokeRole
type RoleArgs struct {
	_       struct{} `cbor:",toarray"`
	Role    Role
	Account string
}

// UpdateDelayCalldata returns calldata that sets the minimum delay when
// executed through the timelock
func UpdateDelayCalldata(delay uint64) []byte {
	return action.MustEncodeCalldata(MethodUpdateDelay, delay)
}

// GrantRoleCalldata returns calldata that grants role to account when
// executed through the timelock
func GrantRoleCalldata(role Role, account string) []byte {
	return action.MustEncodeCalldata(
		MethodGrantRole,
		RoleArgs{Role: role, Account: account},
	)
}

// RevokeRoleCalldata returns calldata that revokes role from account when
// executed through the timelock
func RevokeRoleCalldata(role Role, account string) []byte {
	return action.MustEncodeCalldata(
		MethodRevokeRole,
		RoleArgs{Role: role, Account: account},
	)
}

// selfTarget exposes timelock administration as a target, so governance can
// manage the timelock through executed operations
type selfTarget struct {
	timelock *Timelock
}

func (s *selfTarget) Invoke(
	_ context.Context,
	caller string,
	value uint64,
	calldata []byte,
) (action.Undo, error) {
	if value != 0 {
		return nil, action.ErrNotPayable
	}
	method, args, err := action.DecodeCalldata(calldata)
	if err != nil {
		return nil, err
	}
	t := s.timelock
	switch method {
	case MethodUpdateDelay:
		if caller != t.account {
			return nil, fmt.Errorf("%w: %s", ErrNotAuthorizedSelf, caller)
		}
		var delay uint64
		if err := action.DecodeArgs(args, &delay); err != nil {
			return nil, err
		}
		t.mu.Lock()
		prev, err := t.updateMinDelay(delay)
		t.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, err := t.updateMinDelay(prev); err != nil {
				t.logger.Error(
					"failed to revert minimum delay",
					"error", err,
				)
			}
		}, nil
	case MethodGrantRole, MethodRevokeRole:
		var roleArgs RoleArgs
		if err := action.DecodeArgs(args, &roleArgs); err != nil {
			return nil, err
		}
		granted := method == MethodGrantRole
		t.mu.Lock()
		changed, err := t.setRole(caller, roleArgs.Role, roleArgs.Account, granted)
		t.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if !changed {
			return func() {}, nil
		}
		return func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, err := t.applyRole(caller, roleArgs.Role, roleArgs.Account, !granted); err != nil {
				t.logger.Error(
					"failed to revert role change",
					"error", err,
				)
			}
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", action.ErrUnknownMethod, method)
	}
}
