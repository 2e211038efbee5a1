package repository

import (
	"fmt"
	"strings"

	"github.com/healchain/healchain-backend/internal/backend/repository/queries"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/database"
)

type VoteRepository interface {
	InsertVoteIfAbsent(vote *types.VoteData) (bool, error)
	ListVotesByTask(taskID string) ([]types.VoteData, error)
}

type voteRepository struct {
	db *database.Connection
}

func NewVoteRepository(db *database.Connection) VoteRepository {
	return &voteRepository{db: db}
}

// InsertVoteIfAbsent appends a vote once; a second vote from the same voter
// is reported as not applied, never overwritten.
func (r *voteRepository) InsertVoteIfAbsent(vote *types.VoteData) (bool, error) {
	var existing types.VoteData
	var existingVerdict string
	applied, err := r.db.Session().Query(queries.InsertVoteIfAbsentQuery,
		vote.TaskID, strings.ToLower(vote.VoterAddress), string(vote.Verdict),
		vote.Signature, vote.VotedAt).ScanCAS(
		&existing.TaskID, &existing.VoterAddress, &existingVerdict,
		&existing.Signature, &existing.VotedAt)
	if err != nil {
		return false, fmt.Errorf("error inserting vote for task %s: %w", vote.TaskID, err)
	}
	return applied, nil
}

func (r *voteRepository) ListVotesByTask(taskID string) ([]types.VoteData, error) {
	iter := r.db.Session().Query(queries.ListVotesByTaskQuery, taskID).Iter()
	var votes []types.VoteData
	var vote types.VoteData
	var verdict string

	for iter.Scan(&vote.TaskID, &vote.VoterAddress, &verdict, &vote.Signature, &vote.VotedAt) {
		vote.Verdict = types.Verdict(verdict)
		votes = append(votes, vote)
		vote = types.VoteData{}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error listing votes for task %s: %w", taskID, err)
	}
	return votes, nil
}
