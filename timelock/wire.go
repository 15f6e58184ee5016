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

import "fmt"

// Wire hands control of the timelock to a governance engine: the engine
// becomes proposer and executor and the deploying admin gives up its admin
// role. Afterwards roles can only change through executed operations
func (t *Timelock) Wire(admin string, governor string) error {
	if err := t.GrantRole(admin, RoleProposer, governor); err != nil {
		return fmt.Errorf("grant proposer to %s: %w", governor, err)
	}
	if err := t.GrantRole(admin, RoleExecutor, governor); err != nil {
		return fmt.Errorf("grant executor to %s: %w", governor, err)
	}
	if admin == t.account {
		return nil
	}
	if err := t.RenounceRole(admin, RoleAdmin); err != nil {
		return fmt.Errorf("renounce admin for %s: %w", admin, err)
	}
	return nil
}
