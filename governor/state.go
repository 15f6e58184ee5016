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
	"fmt"
	"strings"

	"github.com/blinklabs-io/gavel/timelock"
)

// State is the lifecycle state of a proposal. It is never stored, only
// derived from the proposal record, the height and the timelock
type State uint8

const (
	StatePending State = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExpired
	StateExecuted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateActive:
		return "Active"
	case StateCanceled:
		return "Canceled"
	case StateDefeated:
		return "Defeated"
	case StateSucceeded:
		return "Succeeded"
	case StateQueued:
		return "Queued"
	case StateExpired:
		return "Expired"
	case StateExecuted:
		return "Executed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for tmp := StatePending; tmp <= StateExecuted; tmp++ {
		if strings.EqualFold(tmp.String(), string(text)) {
			*s = tmp
			return nil
		}
	}
	return fmt.Errorf("unknown proposal state %q", text)
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	switch s {
	case StateCanceled, StateDefeated, StateExpired, StateExecuted:
		return true
	default:
		return false
	}
}

// StateInputs holds everything state derivation depends on
type StateInputs struct {
	Height    uint64
	VoteStart uint64
	VoteEnd   uint64
	Tally     Tally
	// Quorum is only consulted once the voting window has closed
	Quorum      uint64
	GracePeriod uint64
	Canceled    bool
	Queued      bool
	// Operation is the timelock state of the queued operation
	Operation timelock.OperationState
}

// DeriveState evaluates the proposal state. It is a pure function of its
// inputs
func DeriveState(in StateInputs) State {
	if in.Canceled {
		return StateCanceled
	}
	if in.Queued {
		switch in.Operation {
		case timelock.OperationDone:
			return StateExecuted
		case timelock.OperationUnset:
			// Operation was canceled in the timelock
			return StateCanceled
		default:
			return StateQueued
		}
	}
	if in.Height < in.VoteStart {
		return StatePending
	}
	if in.Height <= in.VoteEnd {
		return StateActive
	}
	if _, succeeded := Reached(in.Tally, in.Quorum); !succeeded {
		return StateDefeated
	}
	if in.GracePeriod > 0 && in.Height-in.VoteEnd > in.GracePeriod {
		return StateExpired
	}
	return StateSucceeded
}
