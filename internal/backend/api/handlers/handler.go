package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/healchain/healchain-backend/internal/backend/consensus"
	"github.com/healchain/healchain-backend/internal/backend/metrics"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/logging"
)

// TaskAdmitter is the escrow verification entry point.
type TaskAdmitter interface {
	AdmitTask(ctx context.Context, req *types.AdmitTaskRequest) (*types.TaskData, error)
}

// AggregatorSelector runs PoS selection for a task.
type AggregatorSelector interface {
	SelectAggregator(ctx context.Context, taskID string) (common.Address, error)
	MaybeSelect(ctx context.Context, taskID string) error
}

// KeyService exposes the delivery read side and derivation metadata.
type KeyService interface {
	FetchDeliveredKey(taskID string, aggregator string) (string, bool, error)
	DerivationMetadata(taskID string) (types.DerivationMetadata, error)
}

// TallyCounter is the consensus read side.
type TallyCounter interface {
	Count(ctx context.Context, taskID string) (consensus.TallyResult, error)
}

// RevealLifecycle applies the reveal-window transitions reported by the
// external aggregator.
type RevealLifecycle interface {
	MarkRevealOpen(taskID string) error
	MarkRevealed(taskID string) error
}

type Handler struct {
	admitter  TaskAdmitter
	selector  AggregatorSelector
	keys      KeyService
	tally     TallyCounter
	lifecycle RevealLifecycle
	tasks     repository.TaskRepository
	miners    repository.MinerRepository
	votes     repository.VoteRepository
	logger    logging.Logger
	metrics   *metrics.Collector
}

func NewHandler(
	admitter TaskAdmitter,
	selector AggregatorSelector,
	keys KeyService,
	tally TallyCounter,
	lifecycle RevealLifecycle,
	tasks repository.TaskRepository,
	miners repository.MinerRepository,
	votes repository.VoteRepository,
	logger logging.Logger,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		admitter:  admitter,
		selector:  selector,
		keys:      keys,
		tally:     tally,
		lifecycle: lifecycle,
		tasks:     tasks,
		miners:    miners,
		votes:     votes,
		logger:    logger,
		metrics:   collector,
	}
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}
