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
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
)

const maxRequestBodySize = 1 << 20

// handleRoot handles GET / and returns API metadata.
func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "gavel",
		Version: s.config.Version,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
		Height:    s.node.CurrentHeight(),
	})
}

func (s *Server) handleHeight(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HeightResponse{
		Height: s.node.CurrentHeight(),
	})
}

// handleListProposals handles GET /api/v0/proposals. The optional state
// query parameter filters on the derived state
func (s *Server) handleListProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stateFilter := strings.ToLower(r.URL.Query().Get("state"))
	proposals := s.node.Proposals()
	resp := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		tmpResp, err := s.proposalResponse(p)
		if err != nil {
			writeError(w, err)
			return
		}
		if stateFilter != "" &&
			strings.ToLower(tmpResp.State.String()) != stateFilter {
			continue
		}
		resp = append(resp, tmpResp)
	}
	SetPaginationHeaders(w, len(resp), params)
	writeJSON(w, http.StatusOK, Paginate(resp, params))
}

// handlePropose handles POST /api/v0/proposals.
func (s *Server) handlePropose(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ProposeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Proposer == "" {
		writeError(w, fmt.Errorf("%w: proposer is required", ErrInvalidRequest))
		return
	}
	id, err := s.node.Propose(req.Proposer, req.Calls, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProposeResponse{ID: id})
}

// handleGetProposal handles GET /api/v0/proposals/{id}.
func (s *Server) handleGetProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.node.Proposal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.proposalResponse(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCastVote handles POST /api/v0/proposals/{id}/votes.
func (s *Server) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Voter == "" {
		writeError(w, fmt.Errorf("%w: voter is required", ErrInvalidRequest))
		return
	}
	support, err := governor.ParseSupport(req.Support)
	if err != nil {
		writeError(w, err)
		return
	}
	weight, err := s.node.CastVote(
		governor.Ballot{
			ProposalID: id,
			Voter:      req.Voter,
			Support:    support,
			Weight:     req.Weight,
			Reason:     req.Reason,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, VoteResponse{
		ProposalID: id,
		Voter:      req.Voter,
		Weight:     weight,
	})
}

// handleGetReceipt handles GET /api/v0/proposals/{id}/votes/{account}.
func (s *Server) handleGetReceipt(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, ok, err := s.node.Receipt(id, r.PathValue("account"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, ReceiptResponse{})
		return
	}
	writeJSON(w, http.StatusOK, ReceiptResponse{
		HasVoted: true,
		Support:  &receipt.Support,
		Weight:   receipt.Weight,
		Reason:   receipt.Reason,
		Height:   receipt.Height,
	})
}

// handleQueue handles POST /api/v0/proposals/{id}/queue.
func (s *Server) handleQueue(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	opID, err := s.node.Queue(id)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.node.Proposal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueueResponse{
		ID:          id,
		OperationID: opID,
		Eta:         p.Eta,
	})
}

// handleExecute handles POST /api/v0/proposals/{id}/execute.
func (s *Server) handleExecute(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.node.Execute(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, id)
}

// handleCancel handles POST /api/v0/proposals/{id}/cancel.
func (s *Server) handleCancel(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req CancelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.node.Cancel(id, req.Account); err != nil {
		writeError(w, err)
		return
	}
	s.writeState(w, id)
}

// handleGetOperation handles GET /api/v0/timelock/operations/{id}.
func (s *Server) handleGetOperation(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathHash(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	op, err := s.node.Operation(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OperationResponse{
		ID:              op.ID,
		State:           s.node.OperationState(id),
		Calls:           op.Calls,
		Predecessor:     op.Predecessor,
		Salt:            op.Salt,
		ScheduledHeight: op.ScheduledHeight,
		ReadyHeight:     op.ReadyHeight,
		ExecutedHeight:  op.ExecutedHeight,
	})
}

// handleVotingPower handles GET /api/v0/accounts/{account}/power. The
// height query parameter defaults to the current height
func (s *Server) handleVotingPower(
	w http.ResponseWriter,
	r *http.Request,
) {
	account := r.PathValue("account")
	height := s.node.CurrentHeight()
	if heightParam := r.URL.Query().Get("height"); heightParam != "" {
		tmpHeight, err := strconv.ParseUint(heightParam, 10, 64)
		if err != nil {
			writeError(
				w,
				fmt.Errorf("%w: height: %w", ErrInvalidRequest, err),
			)
			return
		}
		height = tmpHeight
	}
	power, err := s.node.VotingPowerAt(account, height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PowerResponse{
		Account: account,
		Height:  height,
		Power:   power,
	})
}

func (s *Server) writeState(w http.ResponseWriter, id action.Hash) {
	state, err := s.node.State(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{
		ID:    id,
		State: state,
	})
}

func (s *Server) proposalResponse(
	p governor.Proposal,
) (ProposalResponse, error) {
	state, err := s.node.State(p.ID)
	if err != nil {
		return ProposalResponse{}, err
	}
	resp := ProposalResponse{
		ID:              p.ID,
		Proposer:        p.Proposer,
		State:           state,
		Description:     p.Description,
		DescriptionHash: p.DescriptionHash,
		Calls:           p.Calls,
		CreatedHeight:   p.CreatedHeight,
		Snapshot:        p.SnapshotHeight,
		VoteStart:       p.VoteStart,
		Deadline:        p.VoteEnd,
		Tally:           p.Tally,
		Eta:             p.Eta,
	}
	if !p.OperationID.IsZero() {
		resp.OperationID = p.OperationID.String()
	}
	// The quorum is unknown until the snapshot height is reached
	if p.SnapshotHeight <= s.node.CurrentHeight() {
		quorum, err := s.node.Quorum(p.SnapshotHeight)
		if err != nil {
			return ProposalResponse{}, err
		}
		resp.Quorum = quorum
	}
	return resp, nil
}

func pathHash(r *http.Request, name string) (action.Hash, error) {
	return action.ParseHash(r.PathValue(name))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
