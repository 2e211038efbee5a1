package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/healchain/healchain-backend/internal/backend/repository/queries"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/database"
)

type KeyDeliveryRepository interface {
	UpsertKeyDelivery(delivery *types.KeyDeliveryData) error
	GetKeyDelivery(taskID string, aggregatorAddress string) (types.KeyDeliveryData, bool, error)
}

type keyDeliveryRepository struct {
	db *database.Connection
}

func NewKeyDeliveryRepository(db *database.Connection) KeyDeliveryRepository {
	return &keyDeliveryRepository{db: db}
}

func (r *keyDeliveryRepository) UpsertKeyDelivery(delivery *types.KeyDeliveryData) error {
	err := r.db.Session().Query(queries.UpsertKeyDeliveryQuery,
		delivery.TaskID, strings.ToLower(delivery.AggregatorAddress),
		delivery.Ciphertext, delivery.DeliveredAt).Exec()
	if err != nil {
		return fmt.Errorf("error upserting key delivery for task %s: %w", delivery.TaskID, err)
	}
	return nil
}

// GetKeyDelivery returns (record, false, nil) when no delivery exists, so
// callers can tell "not delivered yet" apart from a storage failure.
func (r *keyDeliveryRepository) GetKeyDelivery(taskID string, aggregatorAddress string) (types.KeyDeliveryData, bool, error) {
	var delivery types.KeyDeliveryData
	err := r.db.Session().Query(queries.GetKeyDeliveryQuery,
		taskID, strings.ToLower(aggregatorAddress)).Scan(
		&delivery.TaskID, &delivery.AggregatorAddress,
		&delivery.Ciphertext, &delivery.DeliveredAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return types.KeyDeliveryData{}, false, nil
	}
	if err != nil {
		return types.KeyDeliveryData{}, false, fmt.Errorf("error getting key delivery for task %s: %w", taskID, err)
	}
	return delivery, true, nil
}
