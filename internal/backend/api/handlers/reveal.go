package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/scheduler"
	"github.com/healchain/healchain-backend/internal/backend/types"
)

// OpenReveal moves a task into its reveal window. The external aggregator
// calls this after publishing the aggregated result on chain; from here the
// sweep evaluates the consensus tally against the task.
func (h *Handler) OpenReveal(w http.ResponseWriter, r *http.Request) {
	h.applyRevealTransition(w, r, h.lifecycle.MarkRevealOpen, types.TaskStatusRevealOpen)
}

// CloseReveal records a completed on-chain reveal and closes the window.
func (h *Handler) CloseReveal(w http.ResponseWriter, r *http.Request) {
	h.applyRevealTransition(w, r, h.lifecycle.MarkRevealed, types.TaskStatusRevealClosed)
}

func (h *Handler) applyRevealTransition(w http.ResponseWriter, r *http.Request, transition func(string) error, target types.TaskStatus) {
	taskID := mux.Vars(r)["id"]

	if _, err := h.tasks.GetTaskByID(taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Errorf("[Reveal] Error fetching task %s: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "error fetching task")
		return
	}

	if err := transition(taskID); err != nil {
		if errors.Is(err, scheduler.ErrWrongStatus) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Errorf("[Reveal] Transition for task %s failed: %v", taskID, err)
		respondError(w, http.StatusInternalServerError, "transition failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"task_id": taskID,
		"status":  string(target),
	})
}
