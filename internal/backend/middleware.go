package backend

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-management-client/internal/database"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "claims"
	ContextKeyTask   = "task"
)

// RequireAuth checks the bearer token and stores the caller in the context
func RequireAuth(accounts *Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			apierrors.Unauthorized(c, "")
			return
		}

		claims, err := accounts.Authenticate(strings.TrimSpace(raw))
		if err != nil {
			switch {
			case errors.Is(err, ErrExpiredToken):
				apierrors.Unauthorized(c, "Session expired")
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked):
				apierrors.Unauthorized(c, "Invalid token")
			default:
				apierrors.InternalError(c, "")
			}
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			apierrors.Unauthorized(c, "Invalid token")
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

func getClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// RequireTaskOwner loads the task named by :id. Tasks of other users are
// reported as missing.
func RequireTaskOwner(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		var task Task
		err = db.Scopes(database.OwnedBy(userID)).First(&task, taskID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			apierrors.InternalError(c, "Failed to load task")
			return
		}

		c.Set(ContextKeyTask, task)
		c.Next()
	}
}
