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

package database

import (
	"fmt"
	"strconv"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/timelock"
)

const (
	minDelaySettingKey    = "timelock_min_delay"
	initializedSettingKey = "timelock_initialized"
)

// SaveOperation stores a timelock operation, replacing any earlier record
func (d *Database) SaveOperation(op timelock.Operation) error {
	calls, err := action.EncodeBatch(op.Calls)
	if err != nil {
		return fmt.Errorf("encode operation %s: %w", op.ID, err)
	}
	tmpOp := &models.TimelockOperation{
		OperationID:     op.ID.Bytes(),
		Predecessor:     hashBytes(op.Predecessor),
		Salt:            hashBytes(op.Salt),
		ScheduledHeight: types.Uint64(op.ScheduledHeight),
		ReadyHeight:     types.Uint64(op.ReadyHeight),
		ExecutedHeight:  types.Uint64(op.ExecutedHeight),
		Done:            op.Done,
	}
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.blob.Set(
			txn.Blob(),
			types.OperationBlobKey(op.ID.Bytes()),
			calls,
		); err != nil {
			return err
		}
		return d.metadata.SetTimelockOperation(tmpOp, txn.Metadata())
	})
}

// DeleteOperation removes a canceled operation
func (d *Database) DeleteOperation(id action.Hash) error {
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.blob.Delete(
			txn.Blob(),
			types.OperationBlobKey(id.Bytes()),
		); err != nil {
			return err
		}
		return d.metadata.DeleteTimelockOperation(id.Bytes(), txn.Metadata())
	})
}

func (d *Database) SaveRole(role timelock.Role, account string, granted bool) error {
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		return d.metadata.SetRoleGrant(
			uint8(role),
			account,
			granted,
			txn.Metadata(),
		)
	})
}

func (d *Database) SaveMinDelay(delay uint64) error {
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		return d.metadata.SetSetting(
			minDelaySettingKey,
			strconv.FormatUint(delay, 10),
			txn.Metadata(),
		)
	})
}

func (d *Database) LoadOperations() ([]timelock.Operation, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	tmpOps, err := d.metadata.GetTimelockOperations(txn.Metadata())
	if err != nil {
		return nil, err
	}
	ret := make([]timelock.Operation, 0, len(tmpOps))
	for _, tmp := range tmpOps {
		id, err := action.HashFromBytes(tmp.OperationID)
		if err != nil {
			return nil, err
		}
		predecessor, err := hashOrZero(tmp.Predecessor)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", id, err)
		}
		salt, err := hashOrZero(tmp.Salt)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", id, err)
		}
		data, err := d.blob.Get(txn.Blob(), types.OperationBlobKey(id.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("operation %s: missing calls: %w", id, err)
		}
		calls, err := action.DecodeBatch(data)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", id, err)
		}
		ret = append(ret, timelock.Operation{
			ID:              id,
			Calls:           calls,
			Predecessor:     predecessor,
			Salt:            salt,
			ScheduledHeight: uint64(tmp.ScheduledHeight),
			ReadyHeight:     uint64(tmp.ReadyHeight),
			ExecutedHeight:  uint64(tmp.ExecutedHeight),
			Done:            tmp.Done,
		})
	}
	return ret, nil
}

func (d *Database) LoadRoles() (map[timelock.Role][]string, error) {
	grants, err := d.metadata.GetRoleGrants(nil)
	if err != nil {
		return nil, err
	}
	ret := make(map[timelock.Role][]string)
	for _, g := range grants {
		role := timelock.Role(g.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %d", timelock.ErrUnknownRole, g.Role)
		}
		ret[role] = append(ret[role], g.Account)
	}
	return ret, nil
}

func (d *Database) LoadMinDelay() (uint64, bool, error) {
	val, ok, err := d.metadata.GetSetting(minDelaySettingKey, nil)
	if err != nil || !ok {
		return 0, false, err
	}
	delay, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", minDelaySettingKey, err)
	}
	return delay, true, nil
}

// SaveInitialized marks the timelock roles as seeded
func (d *Database) SaveInitialized() error {
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		return d.metadata.SetSetting(
			initializedSettingKey,
			"true",
			txn.Metadata(),
		)
	})
}

func (d *Database) LoadInitialized() (bool, error) {
	_, ok, err := d.metadata.GetSetting(initializedSettingKey, nil)
	if err != nil {
		return false, err
	}
	return ok, nil
}
