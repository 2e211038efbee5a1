package consensus

import (
	"context"

	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
)

// TallyResult is the outcome of counting miner verdicts on a published
// result.
type TallyResult struct {
	Approved   bool `json:"approved"`
	ValidCount int  `json:"valid_count"`
	TotalCount int  `json:"total_participants"`
}

// Tally counts VALID votes against the registered participant count.
type Tally struct {
	votes   repository.VoteRepository
	miners  repository.MinerRepository
	results repository.ResultRepository
}

func NewTally(votes repository.VoteRepository, miners repository.MinerRepository, results repository.ResultRepository) *Tally {
	return &Tally{
		votes:   votes,
		miners:  miners,
		results: results,
	}
}

// Count evaluates majority approval: validCount >= ceil(total * 0.5), a
// >=50% rule. Without a published result the tally is a no-op regardless of
// votes.
func (t *Tally) Count(ctx context.Context, taskID string) (TallyResult, error) {
	_, published, err := t.results.GetResult(taskID)
	if err != nil {
		return TallyResult{}, err
	}
	if !published {
		return TallyResult{}, nil
	}

	total, err := t.miners.CountMiners(taskID)
	if err != nil {
		return TallyResult{}, err
	}

	votes, err := t.votes.ListVotesByTask(taskID)
	if err != nil {
		return TallyResult{}, err
	}

	validCount := 0
	for _, vote := range votes {
		if vote.Verdict == types.VerdictValid {
			validCount++
		}
	}

	return TallyResult{
		Approved:   total > 0 && validCount >= RequiredMajority(total),
		ValidCount: validCount,
		TotalCount: total,
	}, nil
}

// RequiredMajority is ceil(total * 0.5).
func RequiredMajority(total int) int {
	return (total + 1) / 2
}
