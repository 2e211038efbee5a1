package keys

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/healchain/healchain-backend/internal/backend/metrics"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/logging"
)

var ErrNoAggregator = errors.New("task has no selected aggregator")

// Service derives the shared scalar for a task and records its delivery to
// the selected aggregator.
type Service struct {
	tasks      repository.TaskRepository
	miners     repository.MinerRepository
	deliveries repository.KeyDeliveryRepository
	logger     logging.Logger
	metrics    *metrics.Collector
}

func NewService(tasks repository.TaskRepository, miners repository.MinerRepository, deliveries repository.KeyDeliveryRepository, logger logging.Logger, collector *metrics.Collector) *Service {
	return &Service{
		tasks:      tasks,
		miners:     miners,
		deliveries: deliveries,
		logger:     logger,
		metrics:    collector,
	}
}

// DeriveAndDeliver derives the scalar from the task's verified participant
// set and upserts one delivery row for the aggregator.
func (s *Service) DeriveAndDeliver(ctx context.Context, task types.TaskData, aggregator common.Address) error {
	publicKeys, err := s.verifiedPublicKeys(task.TaskID)
	if err != nil {
		return err
	}

	scalar, err := DeriveSharedScalar(task.Publisher, publicKeys, task.TaskID, task.Nonce)
	if err != nil {
		return fmt.Errorf("scalar derivation for task %s failed: %w", task.TaskID, err)
	}

	delivery := &types.KeyDeliveryData{
		TaskID:            task.TaskID,
		AggregatorAddress: strings.ToLower(aggregator.Hex()),
		Ciphertext:        WrapScalar(scalar, aggregator, task.TaskID),
		DeliveredAt:       time.Now().UTC(),
	}
	if err := s.deliveries.UpsertKeyDelivery(delivery); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.KeyDelivered()
	}

	s.logger.Info("shared key delivered",
		"task_id", task.TaskID,
		"aggregator", aggregator.Hex(),
		"miner_count", len(publicKeys))
	return nil
}

// FetchDeliveredKey returns the delivered ciphertext, or false when no
// delivery exists; callers must distinguish that from "not yet derivable".
func (s *Service) FetchDeliveredKey(taskID string, aggregator string) (string, bool, error) {
	delivery, found, err := s.deliveries.GetKeyDelivery(taskID, aggregator)
	if err != nil || !found {
		return "", false, err
	}
	return delivery.Ciphertext, true, nil
}

// DerivationMetadata returns the public inputs of the derivation so the
// external aggregator process can recompute the scalar without contacting
// any other party.
func (s *Service) DerivationMetadata(taskID string) (types.DerivationMetadata, error) {
	task, err := s.tasks.GetTaskByID(taskID)
	if err != nil {
		return types.DerivationMetadata{}, err
	}
	if task.Aggregator == "" {
		return types.DerivationMetadata{}, ErrNoAggregator
	}

	publicKeys, err := s.verifiedPublicKeys(taskID)
	if err != nil {
		return types.DerivationMetadata{}, err
	}
	// Served sorted, the order the derivation consumes them in.
	sort.Strings(publicKeys)

	return types.DerivationMetadata{
		TaskID:            task.TaskID,
		Publisher:         task.Publisher,
		MinerPublicKeys:   publicKeys,
		NonceTP:           task.Nonce,
		AggregatorAddress: task.Aggregator,
		MinerCount:        len(publicKeys),
	}, nil
}

func (s *Service) verifiedPublicKeys(taskID string) ([]string, error) {
	miners, err := s.miners.ListVerifiedMiners(taskID)
	if err != nil {
		return nil, err
	}
	publicKeys := make([]string, 0, len(miners))
	for _, m := range miners {
		if m.PublicKey != "" {
			publicKeys = append(publicKeys, m.PublicKey)
		}
	}
	return publicKeys, nil
}

// WrapScalar masks the scalar with keccak256(aggregator || taskID). This is
// an availability and commitment marker, not confidentiality: the scalar is
// deterministic over public inputs, so anyone can re-derive it regardless.
// Kept for compatibility with the existing aggregator clients.
func WrapScalar(scalar *big.Int, aggregator common.Address, taskID string) string {
	pad := crypto.Keccak256([]byte(strings.ToLower(aggregator.Hex()) + taskID))

	buf := make([]byte, 32)
	scalar.FillBytes(buf)
	for i := range buf {
		buf[i] ^= pad[i]
	}
	return hexutil.Encode(buf)
}

// UnwrapScalar reverses WrapScalar.
func UnwrapScalar(ciphertext string, aggregator common.Address, taskID string) (*big.Int, error) {
	buf, err := hexutil.Decode(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	if len(buf) != 32 {
		return nil, fmt.Errorf("invalid ciphertext length %d", len(buf))
	}

	pad := crypto.Keccak256([]byte(strings.ToLower(aggregator.Hex()) + taskID))
	for i := range buf {
		buf[i] ^= pad[i]
	}
	return new(big.Int).SetBytes(buf), nil
}
