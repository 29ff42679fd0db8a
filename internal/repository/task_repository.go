package repository

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yukikurage/task-management-client/internal/dto"
	"github.com/yukikurage/task-management-client/internal/models"
)

// HTTPTaskRepository is the REST implementation of TaskRepository
type HTTPTaskRepository struct {
	client Requester
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(client Requester) TaskRepository {
	return &HTTPTaskRepository{client: client}
}

func (r *HTTPTaskRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Task, error) {
	var resp dto.TaskListResponse
	if err := r.client.Do(ctx, http.MethodGet, fmt.Sprintf("/tasks/user/%d", userID), nil, &resp); err != nil {
		return nil, err
	}
	return dto.ToTasks(resp.Tasks), nil
}

func (r *HTTPTaskRepository) List(ctx context.Context) ([]models.Task, error) {
	var resp dto.TaskListResponse
	if err := r.client.Do(ctx, http.MethodGet, "/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return dto.ToTasks(resp.Tasks), nil
}

func (r *HTTPTaskRepository) Create(ctx context.Context, input models.TaskInput) (*models.Task, error) {
	return r.send(ctx, http.MethodPost, "/tasks", dto.NewCreateTaskRequest(input))
}

func (r *HTTPTaskRepository) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	return r.send(ctx, http.MethodPut, taskPath(id), dto.NewUpdateTaskRequest(patch))
}

func (r *HTTPTaskRepository) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) (*models.Task, error) {
	return r.send(ctx, http.MethodPut, taskPath(id), dto.NewStatusRequest(status))
}

func (r *HTTPTaskRepository) Delete(ctx context.Context, id int64) error {
	return r.client.Do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (r *HTTPTaskRepository) send(ctx context.Context, method, path string, body interface{}) (*models.Task, error) {
	var resp dto.TaskDTO
	if err := r.client.Do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	task := dto.ToTask(resp)
	return &task, nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}
