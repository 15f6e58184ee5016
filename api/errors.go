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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/blinklabs-io/gavel/votes"
)

var ErrInvalidRequest = errors.New("invalid request")

var (
	validationErrors = []error{
		ErrInvalidRequest,
		ErrInvalidPaginationParameters,
		action.ErrInvalidHash,
		action.ErrInvalidLength,
		action.ErrInvalidCalldata,
		action.ErrEmptyTargetName,
		governor.ErrInvalidVoteType,
		governor.ErrWeightExceedsPower,
		governor.ErrHeightOverflow,
		votes.ErrFutureLookup,
		votes.ErrInvalidAccount,
	}
	authorizationErrors = []error{
		governor.ErrNotProposer,
		governor.ErrBelowProposalThreshold,
		timelock.ErrNotAuthorizedProposer,
		timelock.ErrNotAuthorizedExecutor,
		timelock.ErrNotAuthorizedAdmin,
		timelock.ErrNotAuthorizedSelf,
	}
	notFoundErrors = []error{
		governor.ErrUnknownProposal,
		timelock.ErrUnknownOperation,
	}
	executionErrors = []error{
		action.ErrCallFailed,
		action.ErrUnknownTarget,
	}
	stateErrors = []error{
		governor.ErrDuplicateProposal,
		governor.ErrNotActive,
		governor.ErrAlreadyVoted,
		governor.ErrNotSucceeded,
		governor.ErrNotQueued,
		governor.ErrNotReady,
		governor.ErrNotPending,
		governor.ErrTallyOverflow,
		timelock.ErrInsufficientDelay,
		timelock.ErrAlreadyScheduled,
		timelock.ErrNotReady,
		timelock.ErrPredecessorNotDone,
		timelock.ErrAlreadyExecuted,
		timelock.ErrNotCancelable,
	}
)

// statusForError maps an error kind to an HTTP status. A failed call inside
// an executed batch is always an execution failure, whatever its cause
func statusForError(err error) int {
	switch {
	case errors.Is(err, action.ErrCallFailed):
		return http.StatusUnprocessableEntity
	case isAny(err, validationErrors):
		return http.StatusBadRequest
	case isAny(err, authorizationErrors):
		return http.StatusForbidden
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, executionErrors):
		return http.StatusUnprocessableEntity
	case isAny(err, stateErrors):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response with the status derived from err
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    err.Error(),
	})
}
