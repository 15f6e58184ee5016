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
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/blinklabs-io/gavel/votes"
)

func TestStatusForError(t *testing.T) {
	id := action.Keccak256([]byte("proposal"))
	tests := []struct {
		err      error
		expected int
	}{
		{governor.ErrInvalidLength, http.StatusBadRequest},
		{votes.ErrFutureLookup, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", governor.ErrInvalidVoteType), http.StatusBadRequest},
		{timelock.ErrNotAuthorizedProposer, http.StatusForbidden},
		{governor.ErrBelowProposalThreshold, http.StatusForbidden},
		{governor.ErrUnknownProposal, http.StatusNotFound},
		{timelock.ErrUnknownOperation, http.StatusNotFound},
		{
			governor.NewStateError(id, governor.StateActive, governor.ErrNotSucceeded),
			http.StatusConflict,
		},
		{timelock.ErrAlreadyExecuted, http.StatusConflict},
		{
			action.NewCallError(0, action.BoxTargetName, action.ErrInvalidCalldata),
			http.StatusUnprocessableEntity,
		},
		{
			action.NewCallError(1, timelock.TargetName, timelock.ErrNotAuthorizedSelf),
			http.StatusUnprocessableEntity,
		},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, statusForError(test.err), test.err.Error())
	}
}
