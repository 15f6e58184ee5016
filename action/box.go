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
	"context"
	"fmt"
	"sync"
)

const (
	BoxTargetName     = "box"
	BoxMethodSetValue = "setValue"
)

// Box is a minimal owned value store used as a governance target. Only the
// owner may change the stored value
type Box struct {
	mu    sync.Mutex
	owner string
	value uint64
	// history of applied values, newest last
	history []uint64
}

func NewBox(owner string) *Box {
	return &Box{
		owner: owner,
	}
}

func (b *Box) Owner() string {
	return b.owner
}

// Value returns the currently stored value
func (b *Box) Value() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// History returns all values stored over the lifetime of the box
func (b *Box) History() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint64(nil), b.history...)
}

// SetValueCalldata returns calldata for storing v in a Box
func SetValueCalldata(v uint64) []byte {
	return MustEncodeCalldata(BoxMethodSetValue, v)
}

func (b *Box) Invoke(
	_ context.Context,
	caller string,
	value uint64,
	calldata []byte,
) (Undo, error) {
	if caller != b.owner {
		return nil, fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	if value != 0 {
		return nil, ErrNotPayable
	}
	method, args, err := DecodeCalldata(calldata)
	if err != nil {
		return nil, err
	}
	switch method {
	case BoxMethodSetValue:
		var newValue uint64
		if err := DecodeArgs(args, &newValue); err != nil {
			return nil, err
		}
		b.mu.Lock()
		prev := b.value
		b.value = newValue
		b.history = append(b.history, newValue)
		b.mu.Unlock()
		return func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.value = prev
			if len(b.history) > 0 {
				b.history = b.history[:len(b.history)-1]
			}
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}
