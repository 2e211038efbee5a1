package types

import (
	"math/big"
	"time"
)

const (
	SettlementPending     = "PENDING"
	SettlementDistributed = "DISTRIBUTED"
)

// RewardData is written by the external settlement flow; the backend only
// reads it to decide the VERIFIED -> REWARDED transition.
type RewardData struct {
	TaskID           string   `json:"task_id"`
	MinerAddress     string   `json:"miner_address"`
	Score            float64  `json:"score"`
	AmountWei        *big.Int `json:"amount_wei"`
	SettlementStatus string   `json:"settlement_status"`
}

// ResultData is the "published result exists" signal written by the external
// aggregator-publishing component.
type ResultData struct {
	TaskID      string    `json:"task_id"`
	ModelHash   string    `json:"model_hash"`
	Accuracy    float64   `json:"accuracy"`
	PublishedAt time.Time `json:"published_at"`
}
