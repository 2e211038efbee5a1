package repository

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/healchain/healchain-backend/internal/backend/repository/queries"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/database"
)

type MinerRepository interface {
	CreateMiner(miner *types.MinerData) (bool, error)
	GetMiner(taskID string, minerAddress string) (types.MinerData, error)
	ListMinersByTask(taskID string) ([]types.MinerData, error)
	ListVerifiedMiners(taskID string) ([]types.MinerData, error)
	CountVerifiedMiners(taskID string) (int, error)
	CountMiners(taskID string) (int, error)
	SetProofVerified(taskID string, minerAddress string) error
	UpdateStake(taskID string, minerAddress string, stake *big.Int) error
}

type minerRepository struct {
	db *database.Connection
}

func NewMinerRepository(db *database.Connection) MinerRepository {
	return &minerRepository{db: db}
}

// CreateMiner inserts a registration row. Returns false when the
// (task, address) pair is already registered.
func (r *minerRepository) CreateMiner(miner *types.MinerData) (bool, error) {
	stake := miner.StakeWei
	if stake == nil {
		stake = big.NewInt(0)
	}
	var existing types.MinerData
	existingStake := new(big.Int)
	applied, err := r.db.Session().Query(queries.CreateMinerQuery,
		miner.TaskID, strings.ToLower(miner.MinerAddress), miner.ProofRef,
		miner.ProofVerified, miner.PublicKey, stake, miner.RegisteredAt).ScanCAS(
		&existing.TaskID, &existing.MinerAddress, &existing.ProofRef,
		&existing.ProofVerified, &existing.PublicKey, existingStake, &existing.RegisteredAt)
	if err != nil {
		return false, fmt.Errorf("error registering miner %s for task %s: %w", miner.MinerAddress, miner.TaskID, err)
	}
	return applied, nil
}

func (r *minerRepository) GetMiner(taskID string, minerAddress string) (types.MinerData, error) {
	var miner types.MinerData
	stake := new(big.Int)
	err := r.db.Session().Query(queries.GetMinerQuery, taskID, strings.ToLower(minerAddress)).Scan(
		&miner.TaskID, &miner.MinerAddress, &miner.ProofRef,
		&miner.ProofVerified, &miner.PublicKey, stake, &miner.RegisteredAt)
	if err != nil {
		return types.MinerData{}, fmt.Errorf("error getting miner %s for task %s: %w", minerAddress, taskID, err)
	}
	miner.StakeWei = stake
	return miner, nil
}

func (r *minerRepository) ListMinersByTask(taskID string) ([]types.MinerData, error) {
	iter := r.db.Session().Query(queries.ListMinersByTaskQuery, taskID).Iter()
	var miners []types.MinerData
	var miner types.MinerData
	stake := new(big.Int)

	for iter.Scan(
		&miner.TaskID, &miner.MinerAddress, &miner.ProofRef,
		&miner.ProofVerified, &miner.PublicKey, stake, &miner.RegisteredAt,
	) {
		miner.StakeWei = new(big.Int).Set(stake)
		miners = append(miners, miner)
		miner = types.MinerData{}
		stake.SetInt64(0)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error listing miners for task %s: %w", taskID, err)
	}

	// Clustering order already yields ascending addresses; keep the sort as
	// the determinism contract rather than a storage detail.
	sort.Slice(miners, func(i, j int) bool {
		return strings.ToLower(miners[i].MinerAddress) < strings.ToLower(miners[j].MinerAddress)
	})
	return miners, nil
}

// ListVerifiedMiners returns proof-verified miners in ascending address
// order, read in a single query so selection sees a stable snapshot.
func (r *minerRepository) ListVerifiedMiners(taskID string) ([]types.MinerData, error) {
	miners, err := r.ListMinersByTask(taskID)
	if err != nil {
		return nil, err
	}
	verified := miners[:0]
	for _, m := range miners {
		if m.ProofVerified {
			verified = append(verified, m)
		}
	}
	return verified, nil
}

func (r *minerRepository) CountVerifiedMiners(taskID string) (int, error) {
	verified, err := r.ListVerifiedMiners(taskID)
	if err != nil {
		return 0, err
	}
	return len(verified), nil
}

func (r *minerRepository) CountMiners(taskID string) (int, error) {
	var count int
	if err := r.db.Session().Query(queries.CountMinersByTaskQuery, taskID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting miners for task %s: %w", taskID, err)
	}
	return count, nil
}

func (r *minerRepository) SetProofVerified(taskID string, minerAddress string) error {
	err := r.db.Session().Query(queries.SetProofVerifiedQuery, taskID, strings.ToLower(minerAddress)).Exec()
	if err != nil {
		return fmt.Errorf("error setting proof verified for miner %s: %w", minerAddress, err)
	}
	return nil
}

func (r *minerRepository) UpdateStake(taskID string, minerAddress string, stake *big.Int) error {
	err := r.db.Session().Query(queries.UpdateMinerStakeQuery, stake, taskID, strings.ToLower(minerAddress)).Exec()
	if err != nil {
		return fmt.Errorf("error updating stake for miner %s: %w", minerAddress, err)
	}
	return nil
}
