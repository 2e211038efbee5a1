package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healchain/healchain-backend/internal/backend/consensus"
	"github.com/healchain/healchain-backend/internal/backend/metrics"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/logging"
)

// ErrWrongStatus reports a lifecycle transition requested against a task
// whose current status does not allow it.
var ErrWrongStatus = errors.New("task status does not allow this transition")

// TallyProvider is the consensus read side the sweep consults for tasks in
// the reveal window.
type TallyProvider interface {
	Count(ctx context.Context, taskID string) (consensus.TallyResult, error)
}

// Sweep is one reconciliation pass over all non-terminal tasks. Transitions
// are applied with compare-and-set updates, so concurrent sweeps are safe
// and a task never moves backward.
type Sweep struct {
	tasks   repository.TaskRepository
	miners  repository.MinerRepository
	rewards repository.RewardRepository
	results repository.ResultRepository
	tally   TallyProvider

	revealGrace time.Duration
	logger      logging.Logger
	metrics     *metrics.Collector
}

func NewSweep(
	tasks repository.TaskRepository,
	miners repository.MinerRepository,
	rewards repository.RewardRepository,
	results repository.ResultRepository,
	tally TallyProvider,
	revealGrace time.Duration,
	logger logging.Logger,
	collector *metrics.Collector,
) *Sweep {
	return &Sweep{
		tasks:       tasks,
		miners:      miners,
		rewards:     rewards,
		results:     results,
		tally:       tally,
		revealGrace: revealGrace,
		logger:      logger,
		metrics:     collector,
	}
}

// Run executes one sweep pass. A failed reconciliation for one task never
// blocks progress for the others; errors are logged and the pass continues.
func (s *Sweep) Run(ctx context.Context) {
	now := time.Now().UTC()

	for _, status := range types.NonTerminalStatuses {
		tasks, err := s.tasks.ListTasksByStatus(status)
		if err != nil {
			s.logger.Error("sweep failed to list tasks", "status", status, "error", err)
			s.countError()
			continue
		}

		for _, task := range tasks {
			if err := s.sweepTask(ctx, task, now); err != nil {
				s.logger.Error("sweep step failed", "task_id", task.TaskID, "error", err)
				s.countError()
			}
		}
	}
}

func (s *Sweep) sweepTask(ctx context.Context, task types.TaskData, now time.Time) error {
	snapshot, err := s.buildSnapshot(ctx, task, now)
	if err != nil {
		return err
	}

	rule, next, ok := evalRules(snapshot)
	if !ok {
		return nil
	}

	applied, err := s.tasks.CompareAndSetStatus(task.TaskID, task.Status, next)
	if err != nil {
		return err
	}
	if !applied {
		// Another sweep or a direct update already moved the task.
		return nil
	}

	s.logger.Info("task status advanced",
		"task_id", task.TaskID,
		"rule", rule.Name,
		"from", task.Status,
		"to", next)
	if s.metrics != nil {
		s.metrics.SweepTransition(string(task.Status), string(next))
	}
	return nil
}

// buildSnapshot gathers only the signals the task's current status can use:
// the tally for tasks in the reveal window, settlement state for VERIFIED.
func (s *Sweep) buildSnapshot(ctx context.Context, task types.TaskData, now time.Time) (Snapshot, error) {
	snapshot := Snapshot{
		Task:        task,
		Now:         now,
		RevealGrace: s.revealGrace,
	}

	if task.Status == types.TaskStatusRevealOpen {
		_, published, err := s.results.GetResult(task.TaskID)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.ResultPublished = published

		if published {
			result, err := s.tally.Count(ctx, task.TaskID)
			if err != nil {
				return Snapshot{}, err
			}
			snapshot.TallyApproved = result.Approved
		}
	}

	if task.Status == types.TaskStatusVerified {
		miners, err := s.miners.ListMinersByTask(task.TaskID)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.MinerCount = len(miners)

		settled, err := s.rewardsSettled(task.TaskID, miners)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.RewardsSettled = settled
	}

	return snapshot, nil
}

// rewardsSettled reports whether every registered miner has a distributed
// reward record.
func (s *Sweep) rewardsSettled(taskID string, miners []types.MinerData) (bool, error) {
	rewards, err := s.rewards.ListRewardsByTask(taskID)
	if err != nil {
		return false, err
	}

	distributed := make(map[string]bool, len(rewards))
	for _, r := range rewards {
		if r.SettlementStatus == types.SettlementDistributed {
			distributed[r.MinerAddress] = true
		}
	}

	for _, m := range miners {
		if !distributed[m.MinerAddress] {
			return false, nil
		}
	}
	return len(miners) > 0, nil
}

func (s *Sweep) countError() {
	if s.metrics != nil {
		s.metrics.SweepError()
	}
}

// MarkRevealOpen moves a task into the reveal window once the external
// aggregator has published its result on chain.
func (s *Sweep) MarkRevealOpen(taskID string) error {
	for _, from := range []types.TaskStatus{types.TaskStatusAggregating, types.TaskStatusCommitClosed, types.TaskStatusOpen} {
		applied, err := s.tasks.CompareAndSetStatus(taskID, from, types.TaskStatusRevealOpen)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("task %s cannot open reveal: %w", taskID, ErrWrongStatus)
}

// MarkRevealed closes the reveal window after a successful on-chain reveal.
// The caller must be holding a task in REVEAL_OPEN; anything else fails.
func (s *Sweep) MarkRevealed(taskID string) error {
	applied, err := s.tasks.CompareAndSetStatus(taskID, types.TaskStatusRevealOpen, types.TaskStatusRevealClosed)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("task %s is not in REVEAL_OPEN: %w", taskID, ErrWrongStatus)
	}
	return nil
}
