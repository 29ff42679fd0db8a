package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/task-management-client/internal/cache"
	"github.com/yukikurage/task-management-client/internal/models"
	"github.com/yukikurage/task-management-client/internal/repository"
	"github.com/yukikurage/task-management-client/internal/session"
)

var (
	ErrNotSignedIn   = errors.New("not signed in")
	ErrTaskNotSynced = errors.New("task has not been saved yet")
	ErrInvalidStatus = errors.New("invalid task status")
)

// TaskUpdate is the input of the edit action.
type TaskUpdate struct {
	ID    int64
	Patch models.TaskPatch
}

// StatusChange is the input of the status action.
type StatusChange struct {
	ID     int64
	Status models.TaskStatus
}

// Dashboard is the dashboard screen's view model.
type Dashboard struct {
	Filter    models.TaskFilter
	Tasks     []models.Task
	Stats     models.TaskStats
	IsLoading bool
	IsStale   bool
	Err       error
}

var statusLabels = map[models.TaskStatus]string{
	models.TaskStatusPending:   "Pending",
	models.TaskStatusCompleted: "Completed",
	models.TaskStatusCanceled:  "Canceled",
}

// TaskService handles task reads and optimistic task writes for the
// signed-in user
type TaskService struct {
	repo   repository.TaskRepository
	store  *session.Store
	cache  *cache.Cache
	logger *slog.Logger

	create       *Action[models.TaskInput, models.Task]
	update       *Action[TaskUpdate, models.Task]
	updateStatus *Action[StatusChange, models.Task]
	remove       *Action[int64, struct{}]
}

// NewTaskService creates a new TaskService
func NewTaskService(repo repository.TaskRepository, store *session.Store, c *cache.Cache, notifier Notifier, logger *slog.Logger) *TaskService {
	s := &TaskService{repo: repo, store: store, cache: c, logger: logger}

	s.create = &Action[models.TaskInput, models.Task]{
		mutation: cache.NewMutation(c, cache.MutationSpec[owned[models.TaskInput], models.Task]{
			Name: "create_task",
			Key:  ownerKey[models.TaskInput],
			Apply: func(tasks []models.Task, v owned[models.TaskInput], placeholderID int64) []models.Task {
				return cache.InsertTask(tasks, models.Task{
					ID:          placeholderID,
					Title:       v.Input.Title,
					Description: v.Input.Description,
					Status:      models.TaskStatusPending,
					UserID:      v.OwnerID,
				})
			},
			Commit: func(ctx context.Context, v owned[models.TaskInput]) (models.Task, error) {
				task, err := repo.Create(ctx, v.Input)
				if err != nil {
					return models.Task{}, err
				}
				return *task, nil
			},
			Reconcile: func(tasks []models.Task, _ owned[models.TaskInput], task models.Task, placeholderID int64) []models.Task {
				return cache.ReplaceTask(tasks, placeholderID, task)
			},
		}),
		owner:        s.ownerID,
		notifier:     notifier,
		failureTitle: "Could not create task",
		success: func(_ models.TaskInput, task models.Task) (string, string) {
			return "Task created", fmt.Sprintf("%q was added", task.Title)
		},
	}

	s.update = &Action[TaskUpdate, models.Task]{
		mutation: cache.NewMutation(c, cache.MutationSpec[owned[TaskUpdate], models.Task]{
			Name: "update_task",
			Key:  ownerKey[TaskUpdate],
			Apply: func(tasks []models.Task, v owned[TaskUpdate], _ int64) []models.Task {
				return cache.UpdateTask(tasks, v.Input.ID, v.Input.Patch.Apply)
			},
			Commit: func(ctx context.Context, v owned[TaskUpdate]) (models.Task, error) {
				task, err := repo.Update(ctx, v.Input.ID, v.Input.Patch)
				if err != nil {
					return models.Task{}, err
				}
				return *task, nil
			},
			Reconcile: replaceWithServerCopy[TaskUpdate],
		}),
		owner:        s.ownerID,
		check:        func(u TaskUpdate) error { return synced(u.ID) },
		notifier:     notifier,
		failureTitle: "Could not update task",
		success: func(_ TaskUpdate, task models.Task) (string, string) {
			return "Task updated", fmt.Sprintf("%q was updated", task.Title)
		},
	}

	s.updateStatus = &Action[StatusChange, models.Task]{
		mutation: cache.NewMutation(c, cache.MutationSpec[owned[StatusChange], models.Task]{
			Name: "update_task_status",
			Key:  ownerKey[StatusChange],
			Apply: func(tasks []models.Task, v owned[StatusChange], _ int64) []models.Task {
				return cache.UpdateTask(tasks, v.Input.ID, func(t models.Task) models.Task {
					t.Status = v.Input.Status
					return t
				})
			},
			Commit: func(ctx context.Context, v owned[StatusChange]) (models.Task, error) {
				task, err := repo.UpdateStatus(ctx, v.Input.ID, v.Input.Status)
				if err != nil {
					return models.Task{}, err
				}
				return *task, nil
			},
			Reconcile: replaceWithServerCopy[StatusChange],
		}),
		owner: s.ownerID,
		check: func(c StatusChange) error {
			if !c.Status.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
			}
			return synced(c.ID)
		},
		notifier:     notifier,
		failureTitle: "Could not change status",
		success: func(_ StatusChange, task models.Task) (string, string) {
			return "Status updated", fmt.Sprintf("%q → %s", task.Title, statusLabels[task.Status])
		},
	}

	s.remove = &Action[int64, struct{}]{
		mutation: cache.NewMutation(c, cache.MutationSpec[owned[int64], struct{}]{
			Name: "delete_task",
			Key:  ownerKey[int64],
			Apply: func(tasks []models.Task, v owned[int64], _ int64) []models.Task {
				return cache.RemoveTask(tasks, v.Input)
			},
			Commit: func(ctx context.Context, v owned[int64]) (struct{}, error) {
				return struct{}{}, repo.Delete(ctx, v.Input)
			},
		}),
		owner:        s.ownerID,
		check:        synced,
		notifier:     notifier,
		failureTitle: "Could not delete task",
		success: func(int64, struct{}) (string, string) {
			return "Task deleted", "The task was deleted"
		},
	}

	return s
}

func ownerKey[I any](v owned[I]) cache.Key {
	return cache.TasksByUser(v.OwnerID)
}

func replaceWithServerCopy[I any](tasks []models.Task, _ owned[I], task models.Task, _ int64) []models.Task {
	return cache.UpdateTask(tasks, task.ID, func(models.Task) models.Task { return task })
}

func synced(id int64) error {
	if id < 0 {
		return ErrTaskNotSynced
	}
	return nil
}

func (s *TaskService) ownerID() (int64, error) {
	user := s.store.User()
	if user == nil {
		return 0, ErrNotSignedIn
	}
	return user.ID, nil
}

func (s *TaskService) fetcher(userID int64) cache.Fetcher {
	return func(ctx context.Context) ([]models.Task, error) {
		return s.repo.ListByOwner(ctx, userID)
	}
}

// Tasks reads the signed-in user's list. Without a user the query is
// disabled and returns an empty result.
func (s *TaskService) Tasks(ctx context.Context) cache.QueryResult {
	userID, err := s.ownerID()
	if err != nil {
		return cache.QueryResult{}
	}
	return s.cache.Query(ctx, cache.TasksByUser(userID), s.fetcher(userID))
}

// Refetch reloads the signed-in user's list.
func (s *TaskService) Refetch(ctx context.Context) cache.QueryResult {
	userID, err := s.ownerID()
	if err != nil {
		return cache.QueryResult{Err: err}
	}
	return s.cache.Refetch(ctx, cache.TasksByUser(userID), s.fetcher(userID))
}

// Dashboard returns the filtered list and the per-status counters.
func (s *TaskService) Dashboard(ctx context.Context, filter models.TaskFilter) Dashboard {
	if filter == "" {
		filter = models.FilterAll
	}
	res := s.Tasks(ctx)
	return Dashboard{
		Filter:    filter,
		Tasks:     models.FilterTasks(res.Data, filter),
		Stats:     models.ComputeStats(res.Data),
		IsLoading: res.IsLoading,
		IsStale:   res.IsStale,
		Err:       res.Err,
	}
}

func (s *TaskService) CreateTask() *Action[models.TaskInput, models.Task] { return s.create }

func (s *TaskService) UpdateTask() *Action[TaskUpdate, models.Task] { return s.update }

func (s *TaskService) UpdateTaskStatus() *Action[StatusChange, models.Task] { return s.updateStatus }

func (s *TaskService) DeleteTask() *Action[int64, struct{}] { return s.remove }
