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
	"math/bits"
)

// QuorumEvaluator computes the minimum participating weight as a fraction
// of total supply
type QuorumEvaluator struct {
	Numerator   uint64
	Denominator uint64
}

func (q QuorumEvaluator) Validate() error {
	if q.Denominator == 0 {
		return fmt.Errorf("%w: zero denominator", ErrInvalidQuorum)
	}
	if q.Numerator > q.Denominator {
		return fmt.Errorf(
			"%w: numerator %d exceeds denominator %d",
			ErrInvalidQuorum,
			q.Numerator,
			q.Denominator,
		)
	}
	return nil
}

// Quorum returns floor(supply * numerator / denominator)
func (q QuorumEvaluator) Quorum(supply uint64) uint64 {
	if supply == 0 || q.Denominator == 0 {
		return 0
	}
	hi, lo := bits.Mul64(supply, q.Numerator)
	if hi >= q.Denominator {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, q.Denominator)
	return quo
}

// Reached reports whether the tally meets quorum and the vote succeeded:
// participation of at least quorum and strictly more weight for than
// against
func Reached(tally Tally, quorum uint64) (bool, bool) {
	quorumReached := tally.Participation() >= quorum
	return quorumReached, quorumReached && tally.For > tally.Against
}
