package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healchain/healchain-backend/internal/backend/repository"
	"github.com/healchain/healchain-backend/internal/backend/scheduler"
	"github.com/healchain/healchain-backend/internal/backend/types"
	"github.com/healchain/healchain-backend/pkg/logging"
)

type memTaskRepo struct {
	tasks map[string]types.TaskData
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]types.TaskData)}
}

func (r *memTaskRepo) CreateTask(task *types.TaskData) error {
	r.tasks[task.TaskID] = *task
	return nil
}

func (r *memTaskRepo) GetTaskByID(taskID string) (types.TaskData, error) {
	task, ok := r.tasks[taskID]
	if !ok {
		return types.TaskData{}, repository.ErrNotFound
	}
	return task, nil
}

func (r *memTaskRepo) ListTasksByStatus(status types.TaskStatus) ([]types.TaskData, error) {
	var out []types.TaskData
	for _, task := range r.tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *memTaskRepo) CompareAndSetStatus(taskID string, from, to types.TaskStatus) (bool, error) {
	task, ok := r.tasks[taskID]
	if !ok || task.Status != from {
		return false, nil
	}
	task.Status = to
	r.tasks[taskID] = task
	return true, nil
}

func (r *memTaskRepo) SetAggregator(taskID string, aggregator string) error {
	task := r.tasks[taskID]
	task.Aggregator = aggregator
	r.tasks[taskID] = task
	return nil
}

func (r *memTaskRepo) CountTasks() (int64, error) {
	return int64(len(r.tasks)), nil
}

var _ repository.TaskRepository = (*memTaskRepo)(nil)

// revealTestServer wires the reveal routes against a real sweep so the
// handlers exercise the same transitions the binary does.
func revealTestServer(t *testing.T, tasks repository.TaskRepository) *mux.Router {
	t.Helper()

	sweep := scheduler.NewSweep(tasks, nil, nil, nil, nil, 0, logging.NewNoOpLogger(), nil)
	handler := NewHandler(nil, nil, nil, nil, sweep, tasks, nil, nil, logging.NewNoOpLogger(), nil)

	router := mux.NewRouter()
	router.HandleFunc("/api/tasks/{id}/reveal-open", handler.OpenReveal).Methods("POST")
	router.HandleFunc("/api/tasks/{id}/reveal", handler.CloseReveal).Methods("POST")
	return router
}

func postStatus(router *mux.Router, path string) int {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec.Code
}

func TestRevealRoutesDriveTaskThroughRevealWindow(t *testing.T) {
	tasks := newMemTaskRepo()
	require.NoError(t, tasks.CreateTask(&types.TaskData{TaskID: "task-1", Status: types.TaskStatusAggregating}))
	router := revealTestServer(t, tasks)

	assert.Equal(t, http.StatusOK, postStatus(router, "/api/tasks/task-1/reveal-open"))
	task, err := tasks.GetTaskByID("task-1")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRevealOpen, task.Status)

	assert.Equal(t, http.StatusOK, postStatus(router, "/api/tasks/task-1/reveal"))
	task, err = tasks.GetTaskByID("task-1")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusRevealClosed, task.Status)
}

func TestRevealRoutesRejectBadRequests(t *testing.T) {
	tasks := newMemTaskRepo()
	require.NoError(t, tasks.CreateTask(&types.TaskData{TaskID: "task-1", Status: types.TaskStatusCreated}))
	router := revealTestServer(t, tasks)

	t.Run("unknown task is 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, postStatus(router, "/api/tasks/missing/reveal-open"))
		assert.Equal(t, http.StatusNotFound, postStatus(router, "/api/tasks/missing/reveal"))
	})

	t.Run("transition from wrong status is 409", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, postStatus(router, "/api/tasks/task-1/reveal-open"))
		assert.Equal(t, http.StatusConflict, postStatus(router, "/api/tasks/task-1/reveal"))

		task, err := tasks.GetTaskByID("task-1")
		require.NoError(t, err)
		assert.Equal(t, types.TaskStatusCreated, task.Status)
	})
}
