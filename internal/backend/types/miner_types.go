package types

import (
	"math/big"
	"time"
)

// MinerData is a task-scoped participant record. The proof_verified flag is
// set once by the external proof checker and is immutable afterward; the
// stake snapshot is refreshed from the ledger, never invented locally.
type MinerData struct {
	TaskID        string    `json:"task_id"`
	MinerAddress  string    `json:"miner_address"`
	ProofRef      string    `json:"proof_ref"`
	ProofVerified bool      `json:"proof_verified"`
	PublicKey     string    `json:"public_key,omitempty"`
	StakeWei      *big.Int  `json:"stake_wei,omitempty"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type RegisterMinerRequest struct {
	MinerAddress string `json:"miner_address"`
	ProofRef     string `json:"proof_ref"`
	PublicKey    string `json:"public_key,omitempty"`
}
