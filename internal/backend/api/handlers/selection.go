package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/selection"
)

// TriggerSelection runs an explicit selection attempt. Selection-input
// errors (below minimum, no eligible stake, already selected) are 409s:
// permanent for this attempt, but later registrations may change the answer.
func (h *Handler) TriggerSelection(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	aggregator, err := h.selector.SelectAggregator(r.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, selection.ErrNoVerifiedMiners),
			errors.Is(err, selection.ErrBelowMinimum),
			errors.Is(err, selection.ErrNoEligibleStake),
			errors.Is(err, selection.ErrZeroTotalStake),
			errors.Is(err, selection.ErrAlreadySelected):
			respondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Errorf("[TriggerSelection] Selection for task %s failed: %v", taskID, err)
			respondError(w, http.StatusInternalServerError, "selection failed")
		}
		return
	}

	if h.metrics != nil {
		h.metrics.SelectionPerformed()
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"task_id":    taskID,
		"aggregator": strings.ToLower(aggregator.Hex()),
	})
}
