package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/selection"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/cryptography"
)

// RegisterMiner adds a participant to an OPEN task. Registrations start
// unverified; the external proof checker flips the flag via VerifyMinerProof.
func (h *Handler) RegisterMiner(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	var req types.RegisterMinerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.MinerAddress) {
		respondError(w, http.StatusBadRequest, "invalid miner address")
		return
	}
	if req.PublicKey != "" {
		if _, err := cryptography.ParsePoint(req.PublicKey); err != nil {
			respondError(w, http.StatusBadRequest, "invalid public key: "+err.Error())
			return
		}
	}

	task, err := h.tasks.GetTaskByID(taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Errorf("[RegisterMiner] Error fetching task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error fetching task")
		return
	}
	if task.Status != types.TaskStatusOpen {
		respondError(w, http.StatusConflict, "task is not open for registration")
		return
	}

	count, err := h.miners.CountMiners(taskID)
	if err != nil {
		h.logger.Errorf("[RegisterMiner] Error counting miners for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error counting miners")
		return
	}
	if task.MaxMiners > 0 && count >= task.MaxMiners {
		respondError(w, http.StatusConflict, "task has reached its participant limit")
		return
	}

	miner := &types.MinerData{
		TaskID:       taskID,
		MinerAddress: strings.ToLower(req.MinerAddress),
		ProofRef:     req.ProofRef,
		PublicKey:    req.PublicKey,
		RegisteredAt: time.Now().UTC(),
	}
	created, err := h.miners.CreateMiner(miner)
	if err != nil {
		h.logger.Errorf("[RegisterMiner] Error registering miner for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error registering miner")
		return
	}
	if !created {
		respondError(w, http.StatusConflict, "miner already registered for this task")
		return
	}

	respondJSON(w, http.StatusCreated, miner)
}

// VerifyMinerProof is the external proof checker's write path: it sets the
// immutable proof-verified flag and, if the task just crossed its minimum
// verified count, triggers selection and key delivery.
func (h *Handler) VerifyMinerProof(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["id"]
	minerAddress := vars["address"]

	if !common.IsHexAddress(minerAddress) {
		respondError(w, http.StatusBadRequest, "invalid miner address")
		return
	}

	if _, err := h.miners.GetMiner(taskID, minerAddress); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "miner not registered for this task")
			return
		}
		h.logger.Errorf("[VerifyMinerProof] Error fetching miner %s: %v", minerAddress, err)
		respondError(w, http.StatusInternalServerError, "error fetching miner")
		return
	}

	if err := h.miners.SetProofVerified(taskID, minerAddress); err != nil {
		h.logger.Errorf("[VerifyMinerProof] Error setting proof verified: %v", err)
		respondError(w, http.StatusInternalServerError, "error updating miner")
		return
	}

	if err := h.selector.MaybeSelect(r.Context(), taskID); err != nil && !errors.Is(err, selection.ErrAlreadySelected) {
		// Selection failures don't undo the proof flag; log and surface later
		// attempts through the explicit selection endpoint.
		h.logger.Warnf("[VerifyMinerProof] Selection attempt for task %s failed: %v", taskID, err)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
