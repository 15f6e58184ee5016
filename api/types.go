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
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool   `json:"is_healthy"`
	Height    uint64 `json:"height"`
}

// HeightResponse is returned by GET /api/v0/height.
type HeightResponse struct {
	Height uint64 `json:"height"`
}

// ProposalResponse represents a proposal with its derived state
type ProposalResponse struct {
	ID              action.Hash    `json:"id"`
	Proposer        string         `json:"proposer"`
	State           governor.State `json:"state"`
	Description     string         `json:"description"`
	DescriptionHash action.Hash    `json:"description_hash"`
	Calls           []action.Call  `json:"calls"`
	CreatedHeight   uint64         `json:"created_height"`
	Snapshot        uint64         `json:"snapshot"`
	VoteStart       uint64         `json:"vote_start"`
	Deadline        uint64         `json:"deadline"`
	Tally           governor.Tally `json:"tally"`
	Quorum          uint64         `json:"quorum"`
	OperationID     string         `json:"operation_id,omitempty"`
	Eta             uint64         `json:"eta,omitempty"`
}

// ProposeRequest is the body of POST /api/v0/proposals.
type ProposeRequest struct {
	Proposer    string        `json:"proposer"`
	Calls       []action.Call `json:"calls"`
	Description string        `json:"description"`
}

// ProposeResponse is returned by POST /api/v0/proposals.
type ProposeResponse struct {
	ID action.Hash `json:"id"`
}

// VoteRequest is the body of POST /api/v0/proposals/{id}/votes.
type VoteRequest struct {
	Voter string `json:"voter"`
	// Support is "for", "against", "abstain" or the numeric vote type
	Support string  `json:"support"`
	Weight  *uint64 `json:"weight,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// VoteResponse is returned by POST /api/v0/proposals/{id}/votes.
type VoteResponse struct {
	ProposalID action.Hash `json:"proposal_id"`
	Voter      string      `json:"voter"`
	Weight     uint64      `json:"weight"`
}

// ReceiptResponse is returned by GET /api/v0/proposals/{id}/votes/{account}.
type ReceiptResponse struct {
	HasVoted bool              `json:"has_voted"`
	Support  *governor.Support `json:"support,omitempty"`
	Weight   uint64            `json:"weight"`
	Reason   string            `json:"reason,omitempty"`
	Height   uint64            `json:"height,omitempty"`
}

// QueueResponse is returned by POST /api/v0/proposals/{id}/queue.
type QueueResponse struct {
	ID          action.Hash `json:"id"`
	OperationID action.Hash `json:"operation_id"`
	Eta         uint64      `json:"eta"`
}

// CancelRequest is the body of POST /api/v0/proposals/{id}/cancel.
type CancelRequest struct {
	Account string `json:"account"`
}

// StateResponse is returned by state changing proposal endpoints
type StateResponse struct {
	ID    action.Hash    `json:"id"`
	State governor.State `json:"state"`
}

// OperationResponse represents a timelock operation
type OperationResponse struct {
	ID              action.Hash             `json:"id"`
	State           timelock.OperationState `json:"state"`
	Calls           []action.Call           `json:"calls"`
	Predecessor     action.Hash             `json:"predecessor"`
	Salt            action.Hash             `json:"salt"`
	ScheduledHeight uint64                  `json:"scheduled_height"`
	ReadyHeight     uint64                  `json:"ready_height"`
	ExecutedHeight  uint64                  `json:"executed_height,omitempty"`
}

// PowerResponse is returned by GET /api/v0/accounts/{account}/power.
type PowerResponse struct {
	Account string `json:"account"`
	Height  uint64 `json:"height"`
	Power   uint64 `json:"power"`
}

// ErrorResponse is the error body for all endpoints
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
