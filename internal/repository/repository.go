package repository

import (
	"context"

	"github.com/yukikurage/task-management-client/internal/models"
)

// Requester is the transport the repositories run over; *gateway.Gateway
// implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, in, out interface{}) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// ListByOwner lists the tasks of one user
	ListByOwner(ctx context.Context, userID int64) ([]models.Task, error)

	// List lists every task visible to the caller
	List(ctx context.Context) ([]models.Task, error)

	// Create creates a new task and returns the server copy
	Create(ctx context.Context, input models.TaskInput) (*models.Task, error)

	// Update applies a partial update
	Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)

	// UpdateStatus changes only the status
	UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) (*models.Task, error)

	// Delete deletes a task
	Delete(ctx context.Context, id int64) error
}

// AuthRepository defines the interface for the authentication endpoints
type AuthRepository interface {
	// Login exchanges credentials for a user and a bearer token
	Login(ctx context.Context, credentials models.Credentials) (*models.AuthResult, error)

	// Register creates an account and signs it in
	Register(ctx context.Context, registration models.Registration) (*models.AuthResult, error)

	// Logout revokes the current token
	Logout(ctx context.Context) error

	// CurrentUser returns the user the token belongs to
	CurrentUser(ctx context.Context) (*models.User, error)

	// Refresh issues a new token for the current user
	Refresh(ctx context.Context) (*models.AuthResult, error)
}
