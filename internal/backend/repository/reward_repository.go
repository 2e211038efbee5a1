package repository

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gocql/gocql"

	"github.com/healchain/healchain-backend/internal/backend/repository/queries"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/database"
)

type RewardRepository interface {
	ListRewardsByTask(taskID string) ([]types.RewardData, error)
}

type ResultRepository interface {
	GetResult(taskID string) (types.ResultData, bool, error)
}

type rewardRepository struct {
	db *database.Connection
}

func NewRewardRepository(db *database.Connection) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) ListRewardsByTask(taskID string) ([]types.RewardData, error) {
	iter := r.db.Session().Query(queries.ListRewardsByTaskQuery, taskID).Iter()
	var rewards []types.RewardData
	var reward types.RewardData
	amount := new(big.Int)

	for iter.Scan(&reward.TaskID, &reward.MinerAddress, &reward.Score, amount, &reward.SettlementStatus) {
		reward.AmountWei = new(big.Int).Set(amount)
		rewards = append(rewards, reward)
		reward = types.RewardData{}
		amount.SetInt64(0)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error listing rewards for task %s: %w", taskID, err)
	}
	return rewards, nil
}

type resultRepository struct {
	db *database.Connection
}

func NewResultRepository(db *database.Connection) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) GetResult(taskID string) (types.ResultData, bool, error) {
	var result types.ResultData
	err := r.db.Session().Query(queries.GetResultQuery, taskID).Scan(
		&result.TaskID, &result.ModelHash, &result.Accuracy, &result.PublishedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return types.ResultData{}, false, nil
	}
	if err != nil {
		return types.ResultData{}, false, fmt.Errorf("error getting result for task %s: %w", taskID, err)
	}
	return result, true, nil
}
