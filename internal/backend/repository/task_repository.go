package repository

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/healchain/healchain-backend/internal/backend/repository/queries"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/database"
)

var ErrNotFound = gocql.ErrNotFound

type TaskRepository interface {
	CreateTask(task *types.TaskData) error
	GetTaskByID(taskID string) (types.TaskData, error)
	ListTasksByStatus(status types.TaskStatus) ([]types.TaskData, error)
	CompareAndSetStatus(taskID string, from, to types.TaskStatus) (bool, error)
	SetAggregator(taskID string, aggregator string) error
	CountTasks() (int64, error)
}

type taskRepository struct {
	db *database.Connection
}

func NewTaskRepository(db *database.Connection) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateTask(task *types.TaskData) error {
	err := r.db.Session().Query(queries.CreateTaskQuery,
		task.TaskID, task.Publisher, task.CommitHash, task.Nonce,
		task.Deadline, task.Dataset, task.MinMiners, task.MaxMiners,
		task.Aggregator, task.EscrowTxHash, task.ContractAddress,
		string(task.Status), task.CreatedAt, task.UpdatedAt).Exec()
	if err != nil {
		return fmt.Errorf("error creating task %s: %w", task.TaskID, err)
	}
	return nil
}

func (r *taskRepository) GetTaskByID(taskID string) (types.TaskData, error) {
	var task types.TaskData
	var status string
	err := r.db.Session().Query(queries.GetTaskByIDQuery, taskID).Scan(
		&task.TaskID, &task.Publisher, &task.CommitHash, &task.Nonce,
		&task.Deadline, &task.Dataset, &task.MinMiners, &task.MaxMiners,
		&task.Aggregator, &task.EscrowTxHash, &task.ContractAddress,
		&status, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return types.TaskData{}, fmt.Errorf("error getting task %s: %w", taskID, err)
	}
	task.Status = types.TaskStatus(status)
	return task, nil
}

func (r *taskRepository) ListTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	iter := r.db.Session().Query(queries.ListTasksByStatusQuery, string(status)).Iter()
	var tasks []types.TaskData
	var task types.TaskData
	var rowStatus string

	for iter.Scan(
		&task.TaskID, &task.Publisher, &task.CommitHash, &task.Nonce,
		&task.Deadline, &task.Dataset, &task.MinMiners, &task.MaxMiners,
		&task.Aggregator, &task.EscrowTxHash, &task.ContractAddress,
		&rowStatus, &task.CreatedAt, &task.UpdatedAt,
	) {
		task.Status = types.TaskStatus(rowStatus)
		tasks = append(tasks, task)
		task = types.TaskData{}
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error listing tasks by status %s: %w", status, err)
	}
	return tasks, nil
}

// CompareAndSetStatus applies a single forward transition with a lightweight
// transaction, so concurrent sweeps cannot apply the same edge twice or move
// a task backward.
func (r *taskRepository) CompareAndSetStatus(taskID string, from, to types.TaskStatus) (bool, error) {
	var prev string
	applied, err := r.db.Session().Query(queries.CompareAndSetStatusQuery,
		string(to), time.Now().UTC(), taskID, string(from)).ScanCAS(&prev)
	if err != nil {
		return false, fmt.Errorf("error moving task %s from %s to %s: %w", taskID, from, to, err)
	}
	return applied, nil
}

func (r *taskRepository) SetAggregator(taskID string, aggregator string) error {
	err := r.db.Session().Query(queries.SetAggregatorQuery,
		aggregator, time.Now().UTC(), taskID).Exec()
	if err != nil {
		return fmt.Errorf("error setting aggregator for task %s: %w", taskID, err)
	}
	return nil
}

func (r *taskRepository) CountTasks() (int64, error) {
	var count int64
	if err := r.db.Session().Query(queries.CountTasksQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting tasks: %w", err)
	}
	return count, nil
}
