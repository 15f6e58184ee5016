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
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/votes"
)

// SaveCheckpoints stores a batch of voting checkpoints atomically
func (d *Database) SaveCheckpoints(checkpoints []votes.Checkpoint) error {
	tmpCheckpoints := make([]models.VotingCheckpoint, len(checkpoints))
	for i, cp := range checkpoints {
		tmpCheckpoints[i] = models.VotingCheckpoint{
			Account: cp.Account,
			Height:  types.Uint64(cp.Height),
			Weight:  types.Uint64(cp.Weight),
		}
	}
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		return d.metadata.AddVotingCheckpoints(tmpCheckpoints, txn.Metadata())
	})
}

func (d *Database) LoadCheckpoints() ([]votes.Checkpoint, error) {
	tmpCheckpoints, err := d.metadata.GetVotingCheckpoints(nil)
	if err != nil {
		return nil, err
	}
	ret := make([]votes.Checkpoint, len(tmpCheckpoints))
	for i, tmp := range tmpCheckpoints {
		ret[i] = votes.Checkpoint{
			Account: tmp.Account,
			Height:  uint64(tmp.Height),
			Weight:  uint64(tmp.Weight),
		}
	}
	return ret, nil
}
