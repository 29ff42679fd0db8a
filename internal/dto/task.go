package dto

import (
	"time"

	"github.com/yukikurage/task-management-client/internal/models"
)

// UserDTO represents a user on the wire
type UserDTO struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskDTO represents a task on the wire
type TaskDTO struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	UserID      int64             `json:"user_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TaskListResponse wraps the task list endpoints
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

// MessageResponse is the body of endpoints that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	FirstName            string `json:"first_name" binding:"required,max=100"`
	LastName             string `json:"last_name" binding:"required,max=100"`
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// CreateTaskRequest is the body of POST /tasks
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=25"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateTaskRequest is the body of PUT /tasks/{id}; absent fields are left unchanged
type UpdateTaskRequest struct {
	Title       *string            `json:"title,omitempty" binding:"omitempty,min=3,max=25"`
	Description *string            `json:"description,omitempty" binding:"omitempty,max=500"`
	Status      *models.TaskStatus `json:"status,omitempty" binding:"omitempty,oneof=PENDING COMPLETED CANCELED"`
}

// Conversion functions

// ToUser converts a wire user to the client model
func ToUser(u UserDTO) models.User {
	return models.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// FromUser converts a client user to its wire form
func FromUser(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToTask converts a wire task to the client model
func ToTask(t TaskDTO) models.Task {
	return models.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToTasks converts a list of wire tasks, never returning nil
func ToTasks(items []TaskDTO) []models.Task {
	tasks := make([]models.Task, len(items))
	for i, item := range items {
		tasks[i] = ToTask(item)
	}
	return tasks
}

// FromTask converts a client task to its wire form
func FromTask(t models.Task) TaskDTO {
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewLoginRequest builds the login body
func NewLoginRequest(c models.Credentials) LoginRequest {
	return LoginRequest{Email: c.Email, Password: c.Password}
}

// NewRegisterRequest builds the registration body
func NewRegisterRequest(r models.Registration) RegisterRequest {
	return RegisterRequest{
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Email:                r.Email,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
	}
}

// NewCreateTaskRequest builds the create body
func NewCreateTaskRequest(in models.TaskInput) CreateTaskRequest {
	return CreateTaskRequest{Title: in.Title, Description: in.Description}
}

// NewUpdateTaskRequest builds a partial update body
func NewUpdateTaskRequest(p models.TaskPatch) UpdateTaskRequest {
	return UpdateTaskRequest{Title: p.Title, Description: p.Description}
}

// NewStatusRequest builds a status-only update body
func NewStatusRequest(status models.TaskStatus) UpdateTaskRequest {
	return UpdateTaskRequest{Status: &status}
}
