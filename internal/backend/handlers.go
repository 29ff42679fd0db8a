package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/task-management-client/internal/database"
	"github.com/yukikurage/task-management-client/internal/dto"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"github.com/yukikurage/task-management-client/internal/models"
	"gorm.io/gorm"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	accounts *Accounts
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register creates an account and returns a token for it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := h.accounts.Register(req)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{AccessToken: token, User: toUserDTO(*user)})
}

// Login authenticates a user and returns a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := h.accounts.Login(req)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{AccessToken: token, User: toUserDTO(*user)})
}

// Logout revokes the caller's token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	if err := h.accounts.Revoke(claims); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

// Refresh swaps the caller's token for a new one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, token, err := h.accounts.Refresh(claims)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{AccessToken: token, User: toUserDTO(*user)})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.accounts.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserDTO(*user))
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		apierrors.BadRequestWithDetails(c, "The email has already been taken", gin.H{"email": []string{"The email has already been taken"}})
	case errors.Is(err, ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, ErrUserNotFound):
		apierrors.Unauthorized(c, "User no longer exists")
	default:
		apierrors.InternalError(c, "")
	}
}

// TaskHandler serves the caller's tasks.
type TaskHandler struct {
	db *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

type taskListResponse struct {
	Tasks      []dto.TaskDTO       `json:"tasks"`
	Pagination *PaginationResponse `json:"pagination,omitempty"`
}

// ListTasks returns the caller's tasks, newest first. page and limit are
// optional.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	h.list(c, userID)
}

// ListUserTasks returns the tasks of the user in the path, which must be
// the caller.
func (h *TaskHandler) ListUserTasks(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	ownerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}
	if ownerID != userID {
		apierrors.Forbidden(c, "You can only list your own tasks")
		return
	}
	h.list(c, userID)
}

func (h *TaskHandler) list(c *gin.Context, userID int64) {
	query := h.db.Model(&Task{}).Scopes(database.OwnedBy(userID))

	params, paginate := GetPaginationParams(c)
	var pagination *PaginationResponse
	if paginate {
		var total int64
		if err := query.Count(&total).Error; err != nil {
			apierrors.InternalError(c, "Failed to count tasks")
			return
		}
		pagination = &PaginationResponse{Page: params.Page, Limit: params.Limit, Total: total}
	}

	var tasks []Task
	err := h.db.Scopes(database.OwnedBy(userID), database.Newest, database.Paginate(params.window())).
		Find(&tasks).Error
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, taskListResponse{Tasks: toTaskDTOs(tasks), Pagination: pagination})
}

// CreateTask creates a pending task owned by the caller.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task := Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      models.TaskStatusPending,
		UserID:      userID,
	}
	if err := h.db.Create(&task).Error; err != nil {
		apierrors.InternalError(c, "Failed to create task")
		return
	}

	c.JSON(http.StatusCreated, toTaskDTO(task))
}

// UpdateTask applies a partial update; absent fields are left unchanged.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task := c.MustGet(ContextKeyTask).(Task)

	var req dto.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		apierrors.BadRequest(c, "No fields to update")
		return
	}

	if err := h.db.Model(&task).Updates(updates).Error; err != nil {
		apierrors.InternalError(c, "Failed to update task")
		return
	}
	if err := h.db.First(&task, task.ID).Error; err != nil {
		apierrors.InternalError(c, "Failed to reload task")
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(task))
}

// DeleteTask deletes the task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task := c.MustGet(ContextKeyTask).(Task)

	if err := h.db.Delete(&Task{}, task.ID).Error; err != nil {
		apierrors.InternalError(c, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully"})
}

// bindJSON binds the body and answers 400 with per-field details on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		apierrors.BadRequest(c, "Invalid request body")
		return false
	}

	details := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.Field())
		details[field] = append(details[field], fieldMessage(field, fe))
	}
	apierrors.BadRequestWithDetails(c, fieldMessage(jsonName(verrs[0].Field()), verrs[0]), details)
	return false
}

func fieldMessage(field string, fe validator.FieldError) string {
	label := strings.ReplaceAll(field, "_", " ")
	label = strings.ToUpper(label[:1]) + label[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s may not be greater than %s characters", label, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s does not match", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// jsonName turns a Go field name such as PasswordConfirmation into
// password_confirmation.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
