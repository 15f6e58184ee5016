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

package governor

import (
	"maps"

	"github.com/blinklabs-io/gavel/action"
)

// Proposal is the stored record of a proposal. Its state is derived, see
// DeriveState
type Proposal struct {
	ID              action.Hash        `json:"id"`
	Proposer        string             `json:"proposer"`
	Calls           []action.Call      `json:"calls"`
	Description     string             `json:"description"`
	DescriptionHash action.Hash        `json:"descriptionHash"`
	CreatedHeight   uint64             `json:"createdHeight"`
	SnapshotHeight  uint64             `json:"snapshotHeight"`
	VoteStart       uint64             `json:"voteStart"`
	VoteEnd         uint64             `json:"voteEnd"`
	Tally           Tally              `json:"tally"`
	Canceled        bool               `json:"canceled"`
	Queued          bool               `json:"queued"`
	OperationID     action.Hash        `json:"operationId"`
	Eta             uint64             `json:"eta"`
	Receipts        map[string]Receipt `json:"-"`
}

func (p *Proposal) clone() Proposal {
	ret := *p
	ret.Calls = action.CloneBatch(p.Calls)
	ret.Receipts = maps.Clone(p.Receipts)
	if ret.Receipts == nil {
		ret.Receipts = make(map[string]Receipt)
	}
	return ret
}

// Receipt records a single vote
type Receipt struct {
	Voter   string  `json:"voter"`
	Support Support `json:"support"`
	Weight  uint64  `json:"weight"`
	Reason  string  `json:"reason,omitempty"`
	Height  uint64  `json:"height"`
}

// Ballot is a request to cast a vote
type Ballot struct {
	ProposalID action.Hash
	Voter      string
	Support    Support
	// Weight optionally casts less than the full snapshot voting power
	Weight *uint64
	Reason string
}
