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
	"fmt"
	"slices"
	"strings"
)

// Role is a timelock capability. Roles are independent sets: holding one
// role implies nothing about the others
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleProposer
	RoleExecutor
)

// Roles lists all roles in a stable order
var Roles = []Role{RoleAdmin, RoleProposer, RoleExecutor}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleProposer:
		return "proposer"
	case RoleExecutor:
		return "executor"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleExecutor
}

// ParseRole parses the case-insensitive role name
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	tmp, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = tmp
	return nil
}

// roleSet holds the members of each role
type roleSet map[Role]map[string]struct{}

func newRoleSet() roleSet {
	ret := make(roleSet, len(Roles))
	for _, r := range Roles {
		ret[r] = make(map[string]struct{})
	}
	return ret
}

func (s roleSet) has(role Role, account string) bool {
	_, ok := s[role][account]
	return ok
}

// grant adds account to role and reports whether membership changed
func (s roleSet) grant(role Role, account string) bool {
	if s.has(role, account) {
		return false
	}
	s[role][account] = struct{}{}
	return true
}

// revoke removes account from role and reports whether membership changed
func (s roleSet) revoke(role Role, account string) bool {
	if !s.has(role, account) {
		return false
	}
	delete(s[role], account)
	return true
}

func (s roleSet) members(role Role) []string {
	ret := make([]string, 0, len(s[role]))
	for account := range s[role] {
		ret = append(ret, account)
	}
	slices.Sort(ret)
	return ret
}
