package selection

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/healchain/healchain-backend/internal/backend/chainio"
	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/logging"
)

var (
	ErrNoVerifiedMiners = errors.New("no proof-verified miners registered")
	ErrBelowMinimum     = errors.New("verified participants below the task minimum")
	ErrNoEligibleStake  = errors.New("no miner meets the minimum stake")
	ErrZeroTotalStake   = errors.New("eligible stakes sum to zero")
	ErrAlreadySelected  = errors.New("task already has an aggregator")
)

// StakeSource reads on-chain stakes for a set of accounts in one call.
type StakeSource interface {
	BatchStakes(ctx context.Context, accounts []common.Address) ([]*big.Int, error)
}

var _ StakeSource = (*chainio.StakeRegistry)(nil)

// KeyDeliverer derives and records the shared scalar for a freshly selected
// aggregator.
type KeyDeliverer interface {
	DeriveAndDeliver(ctx context.Context, task types.TaskData, aggregator common.Address) error
}

// Selector picks exactly one aggregator per task, proportionally to stake,
// deterministically for a fixed (task, participant set, stake snapshot).
type Selector struct {
	tasks    repository.TaskRepository
	miners   repository.MinerRepository
	stakes   StakeSource
	keys     KeyDeliverer
	minStake *big.Int
	logger   logging.Logger
}

func NewSelector(tasks repository.TaskRepository, miners repository.MinerRepository, stakes StakeSource, keys KeyDeliverer, minStake *big.Int, logger logging.Logger) *Selector {
	if minStake == nil {
		minStake = big.NewInt(1)
	}
	return &Selector{
		tasks:    tasks,
		miners:   miners,
		stakes:   stakes,
		keys:     keys,
		minStake: minStake,
		logger:   logger,
	}
}

type candidate struct {
	address common.Address
	stake   *big.Int
}

// SelectAggregator runs one selection attempt for the task. A task selects
// at most once, and never before its minimum verified-participant count is
// reached; every caller goes through these guards. The result is recomputable
// by any party holding the same participant set and stake snapshot; nothing
// here depends on local randomness.
func (s *Selector) SelectAggregator(ctx context.Context, taskID string) (common.Address, error) {
	task, err := s.tasks.GetTaskByID(taskID)
	if err != nil {
		return common.Address{}, err
	}
	if task.Aggregator != "" {
		return common.Address{}, ErrAlreadySelected
	}

	// One consistent read; selecting against a partially updated set would
	// break determinism.
	verified, err := s.miners.ListVerifiedMiners(taskID)
	if err != nil {
		return common.Address{}, err
	}
	if len(verified) < task.MinMiners {
		return common.Address{}, ErrBelowMinimum
	}
	if len(verified) == 0 {
		return common.Address{}, ErrNoVerifiedMiners
	}

	addresses := make([]common.Address, len(verified))
	for i, m := range verified {
		addresses[i] = common.HexToAddress(m.MinerAddress)
	}

	stakes, err := s.stakes.BatchStakes(ctx, addresses)
	if err != nil {
		return common.Address{}, fmt.Errorf("stake registry read failed: %w", err)
	}

	eligible := make([]candidate, 0, len(verified))
	totalStake := new(big.Int)
	for i, stake := range stakes {
		if stake == nil || stake.Cmp(s.minStake) < 0 {
			continue
		}
		eligible = append(eligible, candidate{address: addresses[i], stake: stake})
		totalStake.Add(totalStake, stake)
	}
	if len(eligible) == 0 {
		return common.Address{}, ErrNoEligibleStake
	}
	if totalStake.Sign() == 0 {
		return common.Address{}, ErrZeroTotalStake
	}

	chosen := drawWeighted(taskID, eligible, totalStake)

	if err := s.tasks.SetAggregator(taskID, strings.ToLower(chosen.address.Hex())); err != nil {
		return common.Address{}, err
	}
	// Record-keeping only; a task selects at most once, so this snapshot is
	// never an input to a later draw.
	if err := s.miners.UpdateStake(taskID, chosen.address.Hex(), chosen.stake); err != nil {
		return common.Address{}, err
	}

	if s.keys != nil {
		task.Aggregator = strings.ToLower(chosen.address.Hex())
		if err := s.keys.DeriveAndDeliver(ctx, task, chosen.address); err != nil {
			return common.Address{}, fmt.Errorf("key delivery after selection failed: %w", err)
		}
	}

	s.logger.Info("aggregator selected",
		"task_id", taskID,
		"aggregator", chosen.address.Hex(),
		"stake", chosen.stake.String(),
		"eligible", len(eligible),
		"total_stake", totalStake.String())
	return chosen.address, nil
}

// drawWeighted picks a candidate with probability proportional to stake.
// The seed covers the stakes as well as the addresses, so staking right
// before selection and withdrawing right after still changes the outcome.
func drawWeighted(taskID string, eligible []candidate, totalStake *big.Int) candidate {
	addrParts := make([]string, len(eligible))
	stakeParts := make([]string, len(eligible))
	for i, c := range eligible {
		addrParts[i] = strings.ToLower(c.address.Hex())
		stakeParts[i] = c.stake.String()
	}
	seed := taskID + "|" + strings.Join(addrParts, ",") + "|" + strings.Join(stakeParts, ",")

	digest := crypto.Keccak256([]byte(seed))
	draw := new(big.Int).SetBytes(digest[:16])
	draw.Mod(draw, totalStake)

	// Weighted-cumulative-distribution walk: first candidate whose cumulative
	// stake exceeds the draw wins.
	cumulative := new(big.Int)
	for _, c := range eligible {
		cumulative.Add(cumulative, c.stake)
		if draw.Cmp(cumulative) < 0 {
			return c
		}
	}
	// Unreachable: draw < totalStake = final cumulative sum.
	return eligible[len(eligible)-1]
}

// MaybeSelect runs selection when the task has reached its minimum verified
// participant count and no aggregator has been picked yet. Invoked after
// registrations flip to proof-verified; a below-threshold task is a no-op,
// not an error.
func (s *Selector) MaybeSelect(ctx context.Context, taskID string) error {
	_, err := s.SelectAggregator(ctx, taskID)
	if errors.Is(err, ErrBelowMinimum) {
		s.logger.Debug("selection threshold not reached", "task_id", taskID)
		return nil
	}
	return err
}
