package consensus

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
)

type fakeVoteRepo struct {
	votes map[string][]types.VoteData
}

func (r *fakeVoteRepo) InsertVoteIfAbsent(vote *types.VoteData) (bool, error) {
	for _, v := range r.votes[vote.TaskID] {
		if v.VoterAddress == vote.VoterAddress {
			return false, nil
		}
	}
	r.votes[vote.TaskID] = append(r.votes[vote.TaskID], *vote)
	return true, nil
}

func (r *fakeVoteRepo) ListVotesByTask(taskID string) ([]types.VoteData, error) {
	return r.votes[taskID], nil
}

type fakeMinerCounter struct {
	count int
}

func (r *fakeMinerCounter) CreateMiner(miner *types.MinerData) (bool, error) { return true, nil }
func (r *fakeMinerCounter) GetMiner(taskID string, minerAddress string) (types.MinerData, error) {
	return types.MinerData{}, repository.ErrNotFound
}
func (r *fakeMinerCounter) ListMinersByTask(taskID string) ([]types.MinerData, error) {
	return nil, nil
}
func (r *fakeMinerCounter) ListVerifiedMiners(taskID string) ([]types.MinerData, error) {
	return nil, nil
}
func (r *fakeMinerCounter) CountVerifiedMiners(taskID string) (int, error) { return 0, nil }
func (r *fakeMinerCounter) CountMiners(taskID string) (int, error)         { return r.count, nil }
func (r *fakeMinerCounter) SetProofVerified(taskID string, minerAddress string) error {
	return nil
}
func (r *fakeMinerCounter) UpdateStake(taskID string, minerAddress string, stake *big.Int) error {
	return nil
}

type fakeResultRepo struct {
	published map[string]types.ResultData
}

func (r *fakeResultRepo) GetResult(taskID string) (types.ResultData, bool, error) {
	result, ok := r.published[taskID]
	return result, ok, nil
}

func newTally(total int, published bool, verdicts ...types.Verdict) *Tally {
	votes := &fakeVoteRepo{votes: make(map[string][]types.VoteData)}
	for i, verdict := range verdicts {
		votes.votes["task-1"] = append(votes.votes["task-1"], types.VoteData{
			TaskID:       "task-1",
			VoterAddress: string(rune('a' + i)),
			Verdict:      verdict,
		})
	}
	results := &fakeResultRepo{published: make(map[string]types.ResultData)}
	if published {
		results.published["task-1"] = types.ResultData{TaskID: "task-1", ModelHash: "0xm"}
	}
	return NewTally(votes, &fakeMinerCounter{count: total}, results)
}

func TestCountWithoutPublishedResult(t *testing.T) {
	tally := newTally(3, false, types.VerdictValid, types.VerdictValid, types.VerdictValid)

	result, err := tally.Count(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, TallyResult{}, result, "votes without a published result never approve")
}

func TestCountMajority(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		verdicts  []types.Verdict
		approved  bool
		validWant int
	}{
		{
			name:      "two of three approve",
			total:     3,
			verdicts:  []types.Verdict{types.VerdictValid, types.VerdictValid, types.VerdictInvalid},
			approved:  true,
			validWant: 2,
		},
		{
			name:      "exactly half of four approves",
			total:     4,
			verdicts:  []types.Verdict{types.VerdictValid, types.VerdictValid, types.VerdictInvalid, types.VerdictInvalid},
			approved:  true,
			validWant: 2,
		},
		{
			name:      "one of three rejects",
			total:     3,
			verdicts:  []types.Verdict{types.VerdictValid, types.VerdictInvalid, types.VerdictInvalid},
			approved:  false,
			validWant: 1,
		},
		{
			name:      "missing votes count against approval",
			total:     5,
			verdicts:  []types.Verdict{types.VerdictValid, types.VerdictValid},
			approved:  false,
			validWant: 2,
		},
		{
			name:     "no participants never approves",
			total:    0,
			approved: false,
		},
		{
			name:      "single participant approves alone",
			total:     1,
			verdicts:  []types.Verdict{types.VerdictValid},
			approved:  true,
			validWant: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := newTally(tt.total, true, tt.verdicts...)
			result, err := tally.Count(context.Background(), "task-1")
			require.NoError(t, err)
			assert.Equal(t, tt.approved, result.Approved)
			assert.Equal(t, tt.validWant, result.ValidCount)
			assert.Equal(t, tt.total, result.TotalCount)
		})
	}
}

func TestRequiredMajority(t *testing.T) {
	assert.Equal(t, 1, RequiredMajority(1))
	assert.Equal(t, 1, RequiredMajority(2))
	assert.Equal(t, 2, RequiredMajority(3))
	assert.Equal(t, 2, RequiredMajority(4))
	assert.Equal(t, 3, RequiredMajority(5))
	assert.Equal(t, 5, RequiredMajority(10))
}
