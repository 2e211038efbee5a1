package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/types"
)

// SubmitVote appends a miner's verdict once. A repeat vote from the same
// voter is rejected, never overwritten.
func (h *Handler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	var req types.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.VoterAddress) {
		respondError(w, http.StatusBadRequest, "invalid voter address")
		return
	}
	if req.Verdict != types.VerdictValid && req.Verdict != types.VerdictInvalid {
		respondError(w, http.StatusBadRequest, "verdict must be VALID or INVALID")
		return
	}

	vote := &types.VoteData{
		TaskID:       taskID,
		VoterAddress: strings.ToLower(req.VoterAddress),
		Verdict:      req.Verdict,
		Signature:    req.Signature,
		VotedAt:      time.Now().UTC(),
	}
	applied, err := h.votes.InsertVoteIfAbsent(vote)
	if err != nil {
		h.logger.Errorf("[SubmitVote] Error inserting vote for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error recording vote")
		return
	}
	if !applied {
		respondError(w, http.StatusConflict, "voter has already voted on this task")
		return
	}

	respondJSON(w, http.StatusCreated, vote)
}

// GetTally returns the current consensus tally for the task.
func (h *Handler) GetTally(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	result, err := h.tally.Count(r.Context(), taskID)
	if err != nil {
		h.logger.Errorf("[GetTally] Error counting votes for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error counting votes")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
