package backend

import (
	"time"

	"github.com/yukikurage/task-management-client/internal/database"
	"github.com/yukikurage/task-management-client/internal/dto"
	"github.com/yukikurage/task-management-client/internal/models"
	"gorm.io/gorm"
)

// User is the persisted account.
type User struct {
	ID           int64  `gorm:"primaryKey"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100;not null"`
	Email        string `gorm:"size:191;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Task is the persisted task row.
type Task struct {
	ID          int64             `gorm:"primaryKey"`
	Title       string            `gorm:"size:25;not null"`
	Description string            `gorm:"size:500"`
	Status      models.TaskStatus `gorm:"size:16;not null;default:PENDING"`
	UserID      int64             `gorm:"not null;index:idx_tasks_user_id"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevokedToken records a signed-out token until it would have expired.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"index:idx_revoked_tokens_expires_at"`
}

// Migrate creates the backend tables and indexes.
func Migrate(db *gorm.DB) error {
	return database.MigrateDatabase(db,
		[]interface{}{&User{}, &Task{}, &RevokedToken{}},
		database.Index{Model: &Task{}, Name: "idx_tasks_user_id"},
		database.Index{Model: &RevokedToken{}, Name: "idx_revoked_tokens_expires_at"},
	)
}

func toUserDTO(u User) dto.UserDTO {
	return dto.UserDTO{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTaskDTO(t Task) dto.TaskDTO {
	return dto.TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDTOs(tasks []Task) []dto.TaskDTO {
	out := make([]dto.TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskDTO(t)
	}
	return out
}
