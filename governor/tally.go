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
	"math"
	"strconv"
	"strings"
)

// Support is the direction of a vote
type Support uint8

const (
	SupportAgainst Support = 0
	SupportFor     Support = 1
	SupportAbstain Support = 2
)

func (s Support) String() string {
	switch s {
	case SupportAgainst:
		return "against"
	case SupportFor:
		return "for"
	case SupportAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("Support(%d)", uint8(s))
	}
}

func (s Support) Valid() bool {
	return s <= SupportAbstain
}

// ParseSupport accepts a support name or its numeric value
func ParseSupport(v string) (Support, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "against":
		return SupportAgainst, nil
	case "for":
		return SupportFor, nil
	case "abstain":
		return SupportAbstain, nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil || !Support(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVoteType, v)
	}
	return Support(n), nil
}

func (s Support) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVoteType, s)
	}
	return []byte(s.String()), nil
}

func (s *Support) UnmarshalText(text []byte) error {
	tmp, err := ParseSupport(string(text))
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}

// Tally accumulates vote weight per support direction
type Tally struct {
	For     uint64 `json:"for"`
	Against uint64 `json:"against"`
	Abstain uint64 `json:"abstain"`
}

// Add returns a copy of the tally with weight added for support
func (t Tally) Add(support Support, weight uint64) (Tally, error) {
	var bucket *uint64
	switch support {
	case SupportFor:
		bucket = &t.For
	case SupportAgainst:
		bucket = &t.Against
	case SupportAbstain:
		bucket = &t.Abstain
	default:
		return t, fmt.Errorf("%w: %d", ErrInvalidVoteType, support)
	}
	if weight > math.MaxUint64-*bucket {
		return t, fmt.Errorf("%w: %s", ErrTallyOverflow, support)
	}
	*bucket += weight
	if _, ok := t.participation(); !ok {
		return t, ErrTallyOverflow
	}
	return t, nil
}

// Participation is the total weight counted towards quorum. Abstentions
// count
func (t Tally) Participation() uint64 {
	ret, _ := t.participation()
	return ret
}

func (t Tally) participation() (uint64, bool) {
	sum := t.For
	if t.Against > math.MaxUint64-sum {
		return math.MaxUint64, false
	}
	sum += t.Against
	if t.Abstain > math.MaxUint64-sum {
		return math.MaxUint64, false
	}
	return sum + t.Abstain, true
}
