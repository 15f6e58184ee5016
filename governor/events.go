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
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/event"
)

const (
	ProposalCreatedEventType  event.EventType = "governor.proposal.created"
	VoteCastEventType         event.EventType = "governor.vote.cast"
	ProposalQueuedEventType   event.EventType = "governor.proposal.queued"
	ProposalExecutedEventType event.EventType = "governor.proposal.executed"
	ProposalCanceledEventType event.EventType = "governor.proposal.canceled"
)

type ProposalCreatedEvent struct {
	ID             action.Hash
	Proposer       string
	Calls          []action.Call
	Description    string
	SnapshotHeight uint64
	VoteEnd        uint64
}

type VoteCastEvent struct {
	ProposalID action.Hash
	Voter      string
	Support    Support
	Weight     uint64
	Reason     string
}

type ProposalQueuedEvent struct {
	ID          action.Hash
	OperationID action.Hash
	Eta         uint64
}

type ProposalExecutedEvent struct {
	ID          action.Hash
	OperationID action.Hash
	Height      uint64
}

type ProposalCanceledEvent struct {
	ID     action.Hash
	Caller string
}
