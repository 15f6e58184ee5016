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

// VotingCheckpoint is the voting weight of an account from Height onward
type VotingCheckpoint struct {
	ID      uint         `gorm:"primarykey"`
	Account string       `gorm:"uniqueIndex:idx_checkpoint_account_height,priority:1;size:255;not null"`
	Height  types.Uint64 `gorm:"uniqueIndex:idx_checkpoint_account_height,priority:2;size:20;not null"`
	Weight  types.Uint64 `gorm:"size:20;not null"`
}

func (VotingCheckpoint) TableName() string {
	return "voting_checkpoint"
}
