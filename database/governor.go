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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/fxamacker/cbor/v2"
)

// proposalBlob is the blob store record for a proposal
type proposalBlob struct {
	_           struct{}      `cbor:",toarray"`
	Calls       []action.Call
	Description string
}

func hashBytes(h action.Hash) []byte {
	if h.IsZero() {
		return nil
	}
	return h.Bytes()
}

func hashOrZero(b []byte) (action.Hash, error) {
	if len(b) == 0 {
		return action.Hash{}, nil
	}
	return action.HashFromBytes(b)
}

// SaveProposal stores a proposal record. Receipts are written by RecordVote.
func (d *Database) SaveProposal(p governor.Proposal) error {
	blobData, err := cbor.Marshal(proposalBlob{
		Calls:       p.Calls,
		Description: p.Description,
	})
	if err != nil {
		return fmt.Errorf("encode proposal %s: %w", p.ID, err)
	}
	tmpProposal := &models.Proposal{
		ProposalID:      p.ID.Bytes(),
		Proposer:        p.Proposer,
		DescriptionHash: p.DescriptionHash.Bytes(),
		CreatedHeight:   types.Uint64(p.CreatedHeight),
		SnapshotHeight:  types.Uint64(p.SnapshotHeight),
		VoteStart:       types.Uint64(p.VoteStart),
		VoteEnd:         types.Uint64(p.VoteEnd),
		ForVotes:        types.Uint64(p.Tally.For),
		AgainstVotes:    types.Uint64(p.Tally.Against),
		AbstainVotes:    types.Uint64(p.Tally.Abstain),
		OperationID:     hashBytes(p.OperationID),
		Eta:             types.Uint64(p.Eta),
		Canceled:        p.Canceled,
		Queued:          p.Queued,
	}
	return d.Transaction(true).Do(func(txn *Txn) error {
		if err := d.blob.Set(
			txn.Blob(),
			types.ProposalBlobKey(p.ID.Bytes()),
			blobData,
		); err != nil {
			return err
		}
		return d.metadata.SetProposal(tmpProposal, txn.Metadata())
	})
}

// RecordVote stores a vote receipt and the updated tally atomically
func (d *Database) RecordVote(
	id action.Hash,
	tally governor.Tally,
	receipt governor.Receipt,
) error {
	vote := &models.Vote{
		ProposalID: id.Bytes(),
		Voter:      receipt.Voter,
		Support:    uint8(receipt.Support),
		Weight:     types.Uint64(receipt.Weight),
		Reason:     receipt.Reason,
		Height:     types.Uint64(receipt.Height),
	}
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		if err := d.metadata.AddVote(vote, txn.Metadata()); err != nil {
			return err
		}
		return d.metadata.SetProposalTally(
			id.Bytes(),
			tally.For,
			tally.Against,
			tally.Abstain,
			txn.Metadata(),
		)
	})
}

// LoadProposals returns every stored proposal with its receipts
func (d *Database) LoadProposals() ([]governor.Proposal, error) {
	txn := d.Transaction(false)
	defer txn.Release()
	tmpProposals, err := d.metadata.GetProposals(txn.Metadata())
	if err != nil {
		return nil, err
	}
	tmpVotes, err := d.metadata.GetVotes(txn.Metadata())
	if err != nil {
		return nil, err
	}
	receipts := make(map[action.Hash]map[string]governor.Receipt)
	for _, v := range tmpVotes {
		id, err := action.HashFromBytes(v.ProposalID)
		if err != nil {
			return nil, fmt.Errorf("vote by %s: %w", v.Voter, err)
		}
		if receipts[id] == nil {
			receipts[id] = make(map[string]governor.Receipt)
		}
		receipts[id][v.Voter] = governor.Receipt{
			Voter:   v.Voter,
			Support: governor.Support(v.Support),
			Weight:  uint64(v.Weight),
			Reason:  v.Reason,
			Height:  uint64(v.Height),
		}
	}
	ret := make([]governor.Proposal, 0, len(tmpProposals))
	for _, tmp := range tmpProposals {
		p, err := d.proposalFromModel(txn, tmp)
		if err != nil {
			return nil, err
		}
		p.Receipts = receipts[p.ID]
		ret = append(ret, p)
	}
	return ret, nil
}

func (d *Database) proposalFromModel(
	txn *Txn,
	tmp models.Proposal,
) (governor.Proposal, error) {
	var ret governor.Proposal
	id, err := action.HashFromBytes(tmp.ProposalID)
	if err != nil {
		return ret, err
	}
	descHash, err := action.HashFromBytes(tmp.DescriptionHash)
	if err != nil {
		return ret, fmt.Errorf("proposal %s: %w", id, err)
	}
	opID, err := hashOrZero(tmp.OperationID)
	if err != nil {
		return ret, fmt.Errorf("proposal %s: %w", id, err)
	}
	blobData, err := d.blob.Get(txn.Blob(), types.ProposalBlobKey(id.Bytes()))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return ret, fmt.Errorf("proposal %s: missing calls: %w", id, err)
		}
		return ret, err
	}
	var tmpBlob proposalBlob
	if err := cbor.Unmarshal(blobData, &tmpBlob); err != nil {
		return ret, fmt.Errorf("decode proposal %s: %w", id, err)
	}
	ret = governor.Proposal{
		ID:              id,
		Proposer:        tmp.Proposer,
		Calls:           tmpBlob.Calls,
		Description:     tmpBlob.Description,
		DescriptionHash: descHash,
		CreatedHeight:   uint64(tmp.CreatedHeight),
		SnapshotHeight:  uint64(tmp.SnapshotHeight),
		VoteStart:       uint64(tmp.VoteStart),
		VoteEnd:         uint64(tmp.VoteEnd),
		Tally: governor.Tally{
			For:     uint64(tmp.ForVotes),
			Against: uint64(tmp.AgainstVotes),
			Abstain: uint64(tmp.AbstainVotes),
		},
		Canceled:    tmp.Canceled,
		Queued:      tmp.Queued,
		OperationID: opID,
		Eta:         uint64(tmp.Eta),
	}
	return ret, nil
}
