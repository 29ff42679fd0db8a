package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-management-client/internal/dto"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// Accounts handles registration, login and token revocation.
type Accounts struct {
	db     *gorm.DB
	tokens *TokenIssuer
}

func NewAccounts(db *gorm.DB, tokens *TokenIssuer) *Accounts {
	return &Accounts{db: db, tokens: tokens}
}

// Register creates a user and signs it in.
func (a *Accounts) Register(req dto.RegisterRequest) (*User, string, error) {
	email := normalizeEmail(req.Email)

	var count int64
	if err := a.db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, "", ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := a.db.Create(user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and issues a token.
func (a *Accounts) Login(req dto.LoginRequest) (*User, string, error) {
	var user User
	if err := a.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Authenticate resolves a bearer token to its claims, rejecting revoked ones.
func (a *Accounts) Authenticate(raw string) (*Claims, error) {
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := a.db.Model(&RevokedToken{}).Where("id = ?", claims.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if count > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates the token described by claims.
func (a *Accounts) Revoke(claims *Claims) error {
	expires := time.Now()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	err := a.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedToken{ID: claims.ID, ExpiresAt: expires}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Refresh revokes the current token and issues a new one.
func (a *Accounts) Refresh(claims *Claims) (*User, string, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, "", err
	}
	user, err := a.GetUser(userID)
	if err != nil {
		return nil, "", err
	}
	if err := a.Revoke(claims); err != nil {
		return nil, "", err
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser retrieves a user by ID.
func (a *Accounts) GetUser(id int64) (*User, error) {
	var user User
	if err := a.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// PurgeRevoked drops revocations whose tokens have expired anyway.
func (a *Accounts) PurgeRevoked(now time.Time) (int64, error) {
	res := a.db.Where("expires_at < ?", now).Delete(&RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
