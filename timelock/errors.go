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
	"errors"

	"github.com/blinklabs-io/gavel/action"
)

var (
	// ErrInvalidLength is returned for an empty or misaligned action batch
	ErrInvalidLength = action.ErrInvalidLength

	ErrNotAuthorizedProposer = errors.New("caller is not an authorized proposer")
	ErrNotAuthorizedExecutor = errors.New("caller is not an authorized executor")
	ErrNotAuthorizedAdmin    = errors.New("caller is not an authorized admin")
	ErrNotAuthorizedSelf     = errors.New("caller is not the timelock")
	ErrInsufficientDelay     = errors.New("insufficient delay")
	ErrInvalidDelay          = errors.New("invalid delay")
	ErrAlreadyScheduled      = errors.New("operation already scheduled")
	ErrNotReady              = errors.New("operation is not ready")
	ErrPredecessorNotDone    = errors.New("predecessor operation is not done")
	ErrAlreadyExecuted       = errors.New("operation already executed")
	ErrUnknownOperation      = errors.New("unknown operation")
	ErrNotCancelable         = errors.New("operation cannot be canceled")
	ErrUnknownRole           = errors.New("unknown role")
)
