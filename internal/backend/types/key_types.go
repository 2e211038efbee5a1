package types

import (
	"time"
)

// KeyDeliveryData records the wrapped shared scalar delivered to the selected
// aggregator. One row per (task, aggregator), upsert semantics.
type KeyDeliveryData struct {
	TaskID            string    `json:"task_id"`
	AggregatorAddress string    `json:"aggregator_address"`
	Ciphertext        string    `json:"ciphertext"`
	DeliveredAt       time.Time `json:"delivered_at"`
}

// DerivationMetadata bundles the public inputs of the shared-scalar
// derivation so the external aggregator process can recompute it offline.
type DerivationMetadata struct {
	TaskID            string   `json:"taskID"`
	Publisher         string   `json:"publisher"`
	MinerPublicKeys   []string `json:"minerPublicKeys"`
	NonceTP           string   `json:"nonceTP"`
	AggregatorAddress string   `json:"aggregatorAddress"`
	MinerCount        int      `json:"minerCount"`
}
