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

package models

import "github.com/blinklabs-io/gavel/database/types"

// TimelockOperation holds the schedule for a timelock operation. The call
// batch is kept in the blob store.
type TimelockOperation struct {
	ID              uint         `gorm:"primarykey"`
	OperationID     []byte       `gorm:"uniqueIndex;size:32;not null"`
	Predecessor     []byte       `gorm:"size:32"`
	Salt            []byte       `gorm:"size:32"`
	ScheduledHeight types.Uint64 `gorm:"size:20;not null"`
	ReadyHeight     types.Uint64 `gorm:"size:20;not null"`
	ExecutedHeight  types.Uint64 `gorm:"size:20;not null"`
	Done            bool         `gorm:"not null"`
}

func (TimelockOperation) TableName() string {
	return "timelock_operation"
}

// RoleGrant records that an account holds a timelock role
type RoleGrant struct {
	ID      uint   `gorm:"primarykey"`
	Role    uint8  `gorm:"uniqueIndex:idx_role_grant,priority:1;not null"`
	Account string `gorm:"uniqueIndex:idx_role_grant,priority:2;size:255;not null"`
}

func (RoleGrant) TableName() string {
	return "role_grant"
}
