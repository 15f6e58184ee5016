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
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/event"
)

const (
	OperationScheduledEventType event.EventType = "timelock.operation.scheduled"
	OperationExecutedEventType  event.EventType = "timelock.operation.executed"
	OperationCanceledEventType  event.EventType = "timelock.operation.canceled"
	RoleChangedEventType        event.EventType = "timelock.role.changed"
	MinDelayChangedEventType    event.EventType = "timelock.mindelay.changed"
)

type OperationScheduledEvent struct {
	ID          action.Hash
	Calls       []action.Call
	Predecessor action.Hash
	ReadyHeight uint64
}

type OperationExecutedEvent struct {
	ID     action.Hash
	Height uint64
}

type OperationCanceledEvent struct {
	ID action.Hash
}

type RoleChangedEvent struct {
	Role    Role
	Account string
	Granted bool
	Caller  string
}

type MinDelayChangedEvent struct {
	Previous uint64
	Delay    uint64
}
