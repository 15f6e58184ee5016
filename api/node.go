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

package api

import (
	"context"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/clock"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/blinklabs-io/gavel/votes"
)

// Node is the interface the API server uses to reach the governance
// components. It decouples the HTTP server from the concrete node and
// enables testing with partial implementations
type Node interface {
	CurrentHeight() uint64
	Proposals() []governor.Proposal
	Proposal(id action.Hash) (governor.Proposal, error)
	State(id action.Hash) (governor.State, error)
	Quorum(height uint64) (uint64, error)
	Propose(proposer string, calls []action.Call, description string) (action.Hash, error)
	CastVote(ballot governor.Ballot) (uint64, error)
	Receipt(id action.Hash, voter string) (governor.Receipt, bool, error)
	Queue(id action.Hash) (action.Hash, error)
	Execute(ctx context.Context, id action.Hash) error
	Cancel(id action.Hash, caller string) error
	Operation(id action.Hash) (timelock.Operation, error)
	OperationState(id action.Hash) timelock.OperationState
	VotingPowerAt(account string, height uint64) (uint64, error)
}

// NodeAdapter implements Node on top of the governance components
type NodeAdapter struct {
	*governor.Governor
	clock    clock.HeightSource
	timelock *timelock.Timelock
	oracle   votes.Oracle
}

var _ Node = (*NodeAdapter)(nil)

// NewNodeAdapter wraps the governor, timelock, voting power oracle and
// height source. Panics if any of them is nil
func NewNodeAdapter(
	gov *governor.Governor,
	tl *timelock.Timelock,
	oracle votes.Oracle,
	heightSource clock.HeightSource,
) *NodeAdapter {
	if gov == nil || tl == nil || oracle == nil || heightSource == nil {
		panic("NewNodeAdapter: all components must be provided")
	}
	return &NodeAdapter{
		Governor: gov,
		clock:    heightSource,
		timelock: tl,
		oracle:   oracle,
	}
}

func (a *NodeAdapter) CurrentHeight() uint64 {
	return a.clock.CurrentHeight()
}

func (a *NodeAdapter) Operation(id action.Hash) (timelock.Operation, error) {
	return a.timelock.Operation(id)
}

func (a *NodeAdapter) OperationState(id action.Hash) timelock.OperationState {
	return a.timelock.OperationState(id)
}

// VotingPowerAt looks up historical voting power. Heights after the current
// height fail with votes.ErrFutureLookup
func (a *NodeAdapter) VotingPowerAt(account string, height uint64) (uint64, error) {
	return a.oracle.VotingPowerAt(account, height)
}
