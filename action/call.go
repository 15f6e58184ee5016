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

package action

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrInvalidLength = errors.New("invalid action batch length")

// Call is a single sub-action of a batch: invoke Target with Value and
// Calldata
type Call struct {
	_        struct{} `cbor:",toarray"`
	Target   string   `json:"target"`
	Value    uint64   `json:"value"`
	Calldata []byte   `json:"calldata"`
}

// NewBatch zips index-aligned targets, values and calldatas into a batch of
// calls. All three must have the same non-zero length
func NewBatch(
	targets []string,
	values []uint64,
	calldatas [][]byte,
) ([]Call, error) {
	if len(targets) == 0 ||
		len(targets) != len(values) ||
		len(targets) != len(calldatas) {
		return nil, fmt.Errorf(
			"%w: targets=%d values=%d calldatas=%d",
			ErrInvalidLength,
			len(targets),
			len(values),
			len(calldatas),
		)
	}
	ret := make([]Call, len(targets))
	for i := range targets {
		ret[i] = Call{
			Target:   targets[i],
			Value:    values[i],
			Calldata: append([]byte(nil), calldatas[i]...),
		}
	}
	return ret, nil
}

// SplitBatch is the inverse of NewBatch
func SplitBatch(calls []Call) ([]string, []uint64, [][]byte) {
	targets := make([]string, len(calls))
	values := make([]uint64, len(calls))
	calldatas := make([][]byte, len(calls))
	for i, c := range calls {
		targets[i] = c.Target
		values[i] = c.Value
		calldatas[i] = c.Calldata
	}
	return targets, values, calldatas
}

// CloneBatch returns a deep copy of the batch. Empty calldata is copied as
// nil
func CloneBatch(calls []Call) []Call {
	if calls == nil {
		return nil
	}
	ret := make([]Call, len(calls))
	for i, c := range calls {
		ret[i] = Call{
			Target:   c.Target,
			Value:    c.Value,
			Calldata: append([]byte(nil), c.Calldata...),
		}
	}
	return ret
}

var batchEncMode cbor.EncMode

func init() {
	var err error
	batchEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %s", err))
	}
}

// EncodeBatch returns the deterministic CBOR encoding of a batch. Equal
// batches always produce equal bytes, which makes it suitable as hash input.
// Empty and nil calldata encode the same
func EncodeBatch(calls []Call) ([]byte, error) {
	return batchEncMode.Marshal(CloneBatch(calls))
}

// DecodeBatch decodes a batch produced by EncodeBatch
func DecodeBatch(data []byte) ([]Call, error) {
	var ret []Call
	if err := cbor.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("decode action batch: %w", err)
	}
	return ret, nil
}
