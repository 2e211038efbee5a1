package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/escrow"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
)

// AdmitTask verifies a publisher's escrow claim and creates the task.
// Retryable ledger-timing failures map to 503 so callers back off and
// resubmit the same claim; verification failures map to 422 with the failing
// check, since curing them needs a corrected claim.
func (h *Handler) AdmitTask(w http.ResponseWriter, r *http.Request) {
	var req types.AdmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Errorf("[AdmitTask] Error decoding request body: %v", err)
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TaskID == "" || req.CommitHash == "" || req.Nonce == "" || req.TxHash == "" {
		respondError(w, http.StatusBadRequest, "task_id, commit_hash, nonce and tx_hash are required")
		return
	}
	if !common.IsHexAddress(req.Publisher) {
		respondError(w, http.StatusBadRequest, "invalid publisher address")
		return
	}
	if req.Deadline.IsZero() {
		respondError(w, http.StatusBadRequest, "deadline is required")
		return
	}
	if req.MinMiners <= 0 || req.MaxMiners < req.MinMiners {
		respondError(w, http.StatusBadRequest, "invalid participant bounds")
		return
	}

	task, err := h.admitter.AdmitTask(r.Context(), &req)
	if err != nil {
		var verr *escrow.VerificationError
		if errors.As(err, &verr) {
			if h.metrics != nil {
				h.metrics.AdmissionFailure(verr.Check)
			}
			payload := map[string]string{
				"error":   verr.Err.Error(),
				"check":   verr.Check,
				"tx_hash": verr.TxHash,
			}
			if escrow.IsRetryable(verr) {
				w.Header().Set("Retry-After", "5")
				respondJSON(w, http.StatusServiceUnavailable, payload)
			} else {
				respondJSON(w, http.StatusUnprocessableEntity, payload)
			}
			return
		}
		h.logger.Errorf("[AdmitTask] Admission failed: %v", err)
		respondError(w, http.StatusInternalServerError, "admission failed")
		return
	}

	if h.metrics != nil {
		h.metrics.TaskAdmitted()
	}
	respondJSON(w, http.StatusCreated, task)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	task, err := h.tasks.GetTaskByID(taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Errorf("[GetTask] Error fetching task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error fetching task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}
