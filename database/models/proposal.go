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

import (
	"errors"

	"github.com/blinklabs-io/gavel/database/types"
)

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal holds the lifecycle bookkeeping for a governor proposal. The call
// batch and description are kept in the blob store.
type Proposal struct {
	ID              uint         `gorm:"primarykey"`
	ProposalID      []byte       `gorm:"uniqueIndex;size:32;not null"`
	Proposer        string       `gorm:"size:255;not null"`
	DescriptionHash []byte       `gorm:"size:32;not null"`
	CreatedHeight   types.Uint64 `gorm:"size:20;not null"`
	SnapshotHeight  types.Uint64 `gorm:"size:20;not null"`
	VoteStart       types.Uint64 `gorm:"size:20;not null"`
	VoteEnd         types.Uint64 `gorm:"size:20;not null"`
	ForVotes        types.Uint64 `gorm:"size:20;not null"`
	AgainstVotes    types.Uint64 `gorm:"size:20;not null"`
	AbstainVotes    types.Uint64 `gorm:"size:20;not null"`
	OperationID     []byte       `gorm:"size:32"`
	Eta             types.Uint64 `gorm:"size:20;not null"`
	Canceled        bool         `gorm:"not null"`
	Queued          bool         `gorm:"not null"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// Vote support constants
const (
	VoteAgainst = 0
	VoteFor     = 1
	VoteAbstain = 2
)

// Vote is the receipt for a single ballot on a proposal
type Vote struct {
	ID         uint         `gorm:"primarykey"`
	ProposalID []byte       `gorm:"uniqueIndex:idx_vote_unique,priority:1;size:32;not null"`
	Voter      string       `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:255;not null"`
	Support    uint8        `gorm:"not null"` // 0=Against, 1=For, 2=Abstain
	Weight     types.Uint64 `gorm:"size:20;not null"`
	Reason     string
	Height     types.Uint64 `gorm:"size:20;not null"`
}

func (Vote) TableName() string {
	return "vote"
}
