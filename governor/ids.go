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

	"github.com/blinklabs-io/gavel/action"
)

// DescriptionHash returns the keccak-256 hash of a proposal description
func DescriptionHash(description string) action.Hash {
	return action.Keccak256([]byte(description))
}

// HashProposal computes the proposal id from its calls and description
// hash
func HashProposal(calls []action.Call, descriptionHash action.Hash) (action.Hash, error) {
	if len(calls) == 0 {
		return action.Hash{}, fmt.Errorf("%w: empty batch", ErrInvalidLength)
	}
	encoded, err := action.EncodeBatch(calls)
	if err != nil {
		return action.Hash{}, fmt.Errorf("encode proposal calls: %w", err)
	}
	return action.Keccak256(encoded, descriptionHash.Bytes()), nil
}

// HashProposalBatch is HashProposal with the calls given as index-aligned
// target, value and calldata sequences
func HashProposalBatch(
	targets []string,
	values []uint64,
	calldatas [][]byte,
	descriptionHash action.Hash,
) (action.Hash, error) {
	calls, err := action.NewBatch(targets, values, calldatas)
	if err != nil {
		return action.Hash{}, err
	}
	return HashProposal(calls, descriptionHash)
}

// operationSalt binds the timelock operation of a proposal to the governor
// that queued it
func operationSalt(account string, descriptionHash action.Hash) action.Hash {
	return action.Keccak256([]byte(account), descriptionHash.Bytes())
}
