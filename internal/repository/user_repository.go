package repository

import (
	"context"
	"net/http"

	"github.com/yukikurage/task-management-client/internal/dto"
	"github.com/yukikurage/task-management-client/internal/models"
)

// HTTPAuthRepository is the REST implementation of AuthRepository
type HTTPAuthRepository struct {
	client Requester
}

// NewAuthRepository creates a new AuthRepository
func NewAuthRepository(client Requester) AuthRepository {
	return &HTTPAuthRepository{client: client}
}

func (r *HTTPAuthRepository) Login(ctx context.Context, credentials models.Credentials) (*models.AuthResult, error) {
	return r.authenticate(ctx, "/auth/login", dto.NewLoginRequest(credentials))
}

func (r *HTTPAuthRepository) Register(ctx context.Context, registration models.Registration) (*models.AuthResult, error) {
	return r.authenticate(ctx, "/auth/register", dto.NewRegisterRequest(registration))
}

func (r *HTTPAuthRepository) Refresh(ctx context.Context) (*models.AuthResult, error) {
	return r.authenticate(ctx, "/auth/refresh", nil)
}

func (r *HTTPAuthRepository) Logout(ctx context.Context) error {
	return r.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (r *HTTPAuthRepository) CurrentUser(ctx context.Context) (*models.User, error) {
	var resp dto.UserDTO
	if err := r.client.Do(ctx, http.MethodGet, "/auth/user", nil, &resp); err != nil {
		return nil, err
	}
	user := dto.ToUser(resp)
	return &user, nil
}

func (r *HTTPAuthRepository) authenticate(ctx context.Context, path string, body interface{}) (*models.AuthResult, error) {
	var resp dto.AuthResponse
	if err := r.client.Do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &models.AuthResult{User: dto.ToUser(resp.User), Token: resp.AccessToken}, nil
}
