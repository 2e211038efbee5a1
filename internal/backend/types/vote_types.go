package types

import (
	"time"
)

type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
)

// VoteData is a miner's verdict on an aggregator-proposed result.
// Append-once per (task, voter).
type VoteData struct {
	TaskID       string    `json:"task_id"`
	VoterAddress string    `json:"voter_address"`
	Verdict      Verdict   `json:"verdict"`
	Signature    string    `json:"signature"`
	VotedAt      time.Time `json:"voted_at"`
}

type SubmitVoteRequest struct {
	VoterAddress string  `json:"voter_address"`
	Verdict      Verdict `json:"verdict"`
	Signature    string  `json:"signature"`
}
