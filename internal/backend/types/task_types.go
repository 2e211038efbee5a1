package types

import (
	"time"
)

// TaskData is the durable record of a federated-learning task. Created only
// by the escrow verifier after on-chain confirmation; never deleted.
type TaskData struct {
	TaskID          string     `json:"task_id"`
	Publisher       string     `json:"publisher"`
	CommitHash      string     `json:"commit_hash"`
	Nonce           string     `json:"nonce"`
	Deadline        time.Time  `json:"deadline"`
	Dataset         string     `json:"dataset"`
	MinMiners       int        `json:"min_miners"`
	MaxMiners       int        `json:"max_miners"`
	Aggregator      string     `json:"aggregator,omitempty"`
	EscrowTxHash    string     `json:"escrow_tx_hash,omitempty"`
	ContractAddress string     `json:"contract_address"`
	Status          TaskStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AdmitTaskRequest is the claim a publisher submits to get a task admitted.
// The verifier recomputes the commitment from Accuracy and Nonce and checks
// the referenced transaction independently before any row is written.
type AdmitTaskRequest struct {
	TaskID     string    `json:"task_id"`
	Publisher  string    `json:"publisher"`
	Accuracy   string    `json:"accuracy"`
	CommitHash string    `json:"commit_hash"`
	Nonce      string    `json:"nonce"`
	Deadline   time.Time `json:"deadline"`
	Dataset    string    `json:"dataset"`
	MinMiners  int       `json:"min_miners"`
	MaxMiners  int       `json:"max_miners"`
	TxHash     string    `json:"tx_hash"`
}
