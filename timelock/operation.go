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
	"strings"

	"github.com/blinklabs-io/gavel/action"
)

// OperationState is derived from the stored operation and the current height
type OperationState uint8

const (
	OperationUnset OperationState = iota
	OperationWaiting
	OperationReady
	OperationDone
)

func (s OperationState) String() string {
	switch s {
	case OperationUnset:
		return "Unset"
	case OperationWaiting:
		return "Waiting"
	case OperationReady:
		return "Ready"
	case OperationDone:
		return "Done"
	default:
		return fmt.Sprintf("OperationState(%d)", uint8(s))
	}
}

func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OperationState) UnmarshalText(text []byte) error {
	for tmp := OperationUnset; tmp <= OperationDone; tmp++ {
		if strings.EqualFold(tmp.String(), string(text)) {
			*s = tmp
			return nil
		}
	}
	return fmt.Errorf("unknown operation state %q", text)
}

// Pending reports whether the operation is scheduled but not yet executed
func (s OperationState) Pending() bool {
	return s == OperationWaiting || s == OperationReady
}

// Operation is a scheduled, delay-gated batch of calls
type Operation struct {
	ID              action.Hash
	Calls           []action.Call
	Predecessor     action.Hash
	Salt            action.Hash
	ScheduledHeight uint64
	ReadyHeight     uint64
	Done            bool
	ExecutedHeight  uint64
}

// StateAt derives the state of the operation at height
func (o *Operation) StateAt(height uint64) OperationState {
	if o == nil {
		return OperationUnset
	}
	if o.Done {
		return OperationDone
	}
	if height < o.ReadyHeight {
		return OperationWaiting
	}
	return OperationReady
}

func (o *Operation) clone() Operation {
	ret := *o
	ret.Calls = action.CloneBatch(o.Calls)
	return ret
}

// HashOperation computes the operation id from the full ordered tuple of
// calls, predecessor and salt
func HashOperation(
	calls []action.Call,
	predecessor action.Hash,
	salt action.Hash,
) (action.Hash, error) {
	if len(calls) == 0 {
		return action.Hash{}, ErrInvalidLength
	}
	encoded, err := action.EncodeBatch(calls)
	if err != nil {
		return action.Hash{}, fmt.Errorf("encode operation calls: %w", err)
	}
	return action.Keccak256(encoded, predecessor.Bytes(), salt.Bytes()), nil
}
