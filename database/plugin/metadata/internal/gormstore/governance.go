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

package gormstore

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetProposal inserts or updates a proposal keyed by its proposal ID
func (s *Store) SetProposal(proposal *models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"for_votes",
			"against_votes",
			"abstain_votes",
			"operation_id",
			"eta",
			"canceled",
			"queued",
		}),
	}).Create(proposal)
	return result.Error
}

// SetProposalTally updates the running tally of a stored proposal
func (s *Store) SetProposalTally(
	proposalID []byte,
	forVotes, againstVotes, abstainVotes uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Proposal{}).
		Where("proposal_id = ?", proposalID).
		Updates(map[string]any{
			"for_votes":     types.Uint64(forVotes),
			"against_votes": types.Uint64(againstVotes),
			"abstain_votes": types.Uint64(abstainVotes),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %x", models.ErrProposalNotFound, proposalID)
	}
	return nil
}

func (s *Store) GetProposals(txn types.Txn) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddVote records a vote receipt. A second vote by the same voter on the same
// proposal violates the unique index.
func (s *Store) AddVote(vote *models.Vote, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(vote).Error
}

func (s *Store) GetVotes(txn types.Txn) ([]models.Vote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetTimelockOperation inserts or updates an operation keyed by its ID
func (s *Store) SetTimelockOperation(
	op *models.TimelockOperation,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "operation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"predecessor",
			"salt",
			"scheduled_height",
			"ready_height",
			"executed_height",
			"done",
		}),
	}).Create(op)
	return result.Error
}

func (s *Store) DeleteTimelockOperation(operationID []byte, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("operation_id = ?", operationID).
		Delete(&models.TimelockOperation{}).Error
}

func (s *Store) GetTimelockOperations(
	txn types.Txn,
) ([]models.TimelockOperation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TimelockOperation
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetRoleGrant adds or removes a role grant. Both directions are idempotent.
func (s *Store) SetRoleGrant(
	role uint8,
	account string,
	granted bool,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if !granted {
		return db.Where("role = ? AND account = ?", role, account).
			Delete(&models.RoleGrant{}).Error
	}
	grant := models.RoleGrant{Role: role, Account: account}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
}

func (s *Store) GetRoleGrants(txn types.Txn) ([]models.RoleGrant, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.RoleGrant
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) SetSetting(key, value string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	setting := models.Setting{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&setting).Error
}

// GetSetting returns the value for key and whether it was present
func (s *Store) GetSetting(key string, txn types.Txn) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return "", false, err
	}
	var setting models.Setting
	result := db.Where(&models.Setting{Key: key}).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, result.Error
	}
	return setting.Value, true, nil
}

// AddVotingCheckpoints stores checkpoints, replacing the weight of any
// existing checkpoint for the same account and height
func (s *Store) AddVotingCheckpoints(
	checkpoints []models.VotingCheckpoint,
	txn types.Txn,
) error {
	if len(checkpoints) == 0 {
		return nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account"},
			{Name: "height"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"weight"}),
	}).Create(&checkpoints).Error
}

func (s *Store) GetVotingCheckpoints(
	txn types.Txn,
) ([]models.VotingCheckpoint, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.VotingCheckpoint
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
