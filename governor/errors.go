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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/action"
)

var (
	// ErrInvalidLength is returned for an empty or misaligned action batch
	ErrInvalidLength = action.ErrInvalidLength

	ErrDuplicateProposal      = errors.New("proposal already exists")
	ErrUnknownProposal        = errors.New("unknown proposal")
	ErrNotActive              = errors.New("proposal is not active")
	ErrAlreadyVoted           = errors.New("account already voted")
	ErrNotSucceeded           = errors.New("proposal has not succeeded")
	ErrNotQueued              = errors.New("proposal is not queued")
	ErrNotReady               = errors.New("proposal operation is not ready")
	ErrNotPending             = errors.New("proposal is not pending")
	ErrNotProposer            = errors.New("caller is not the proposer")
	ErrBelowProposalThreshold = errors.New("proposer voting power below threshold")
	ErrInvalidVoteType        = errors.New("invalid vote type")
	ErrWeightExceedsPower     = errors.New("vote weight exceeds voting power")
	ErrTallyOverflow          = errors.New("tally overflow")
	ErrInvalidQuorum          = errors.New("invalid quorum fraction")
	ErrInvalidConfig          = errors.New("invalid governor config")
	ErrHeightOverflow         = errors.New("proposal height overflow")
)

// StateError is returned when an operation requires a proposal state other
// than the current one. It unwraps to the sentinel describing the required
// state
type StateError struct {
	ID      action.Hash
	Current State
	Err     error
}

func NewStateError(id action.Hash, current State, err error) *StateError {
	return &StateError{
		ID:      id,
		Current: current,
		Err:     err,
	}
}

func (e *StateError) Error() string {
	return fmt.Sprintf(
		"proposal %s: %v (current state %s)",
		e.ID,
		e.Err,
		e.Current,
	)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
