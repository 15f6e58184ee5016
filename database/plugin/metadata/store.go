// Copyright 2025 Blink Labs Software
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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Governor
	SetProposal(*models.Proposal, types.Txn) error
	SetProposalTally(
		[]byte, // proposal ID
		uint64, // for
		uint64, // against
		uint64, // abstain
		types.Txn,
	) error
	GetProposals(types.Txn) ([]models.Proposal, error)
	AddVote(*models.Vote, types.Txn) error
	GetVotes(types.Txn) ([]models.Vote, error)

	// Timelock
	SetTimelockOperation(*models.TimelockOperation, types.Txn) error
	DeleteTimelockOperation([]byte, types.Txn) error
	GetTimelockOperations(types.Txn) ([]models.TimelockOperation, error)
	SetRoleGrant(
		uint8, // role
		string, // account
		bool, // granted
		types.Txn,
	) error
	GetRoleGrants(types.Txn) ([]models.RoleGrant, error)

	// Votes ledger
	AddVotingCheckpoints([]models.VotingCheckpoint, types.Txn) error
	GetVotingCheckpoints(types.Txn) ([]models.VotingCheckpoint, error)

	// Helpers
	SetSetting(string, string, types.Txn) error
	GetSetting(string, types.Txn) (string, bool, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
