package handlers

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/keys"
	"github.com/healchain/healchain-backend/internal/backend/repository"
)

// GetDeliveredKey returns the wrapped scalar for the task's aggregator.
// 404 means "not delivered"; callers decide whether that is "not yet
// derivable" or a missed delivery.
func (h *Handler) GetDeliveredKey(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	aggregator := r.URL.Query().Get("aggregator")
	if !common.IsHexAddress(aggregator) {
		respondError(w, http.StatusBadRequest, "aggregator query parameter must be a valid address")
		return
	}

	ciphertext, found, err := h.keys.FetchDeliveredKey(taskID, aggregator)
	if err != nil {
		h.logger.Errorf("[GetDeliveredKey] Error fetching key for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error fetching delivered key")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "no key delivered for this task and aggregator")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"task_id":    taskID,
		"aggregator": aggregator,
		"ciphertext": ciphertext,
	})
}

// GetKeyMetadata serves the public derivation inputs so the aggregator
// process can recompute the shared scalar offline.
func (h *Handler) GetKeyMetadata(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	metadata, err := h.keys.DerivationMetadata(taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		if errors.Is(err, keys.ErrNoAggregator) {
			respondError(w, http.StatusConflict, "task has no selected aggregator yet")
			return
		}
		h.logger.Errorf("[GetKeyMetadata] Error building metadata for task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error building key metadata")
		return
	}

	respondJSON(w, http.StatusOK, metadata)
}
