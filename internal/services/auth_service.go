package services

import (
	"context"
	"log/slog"

	"github.com/yukikurage/task-management-client/internal/cache"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"github.com/yukikurage/task-management-client/internal/models"
	"github.com/yukikurage/task-management-client/internal/repository"
	"github.com/yukikurage/task-management-client/internal/session"
)

// SessionView is what screens read from the session.
type SessionView struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	HasHydrated     bool
}

// AuthService handles authentication related flows.
type AuthService struct {
	repo     repository.AuthRepository
	store    *session.Store
	cache    *cache.Cache
	notifier Notifier
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo repository.AuthRepository, store *session.Store, c *cache.Cache, notifier Notifier, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		store:    store,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
}

// Session returns the current session view.
func (s *AuthService) Session() SessionView {
	st := s.store.State()
	return SessionView{
		User:            st.User,
		IsAuthenticated: st.IsAuthenticated,
		IsLoading:       st.IsLoading,
		HasHydrated:     st.HasHydrated,
	}
}

// Login signs in with email and password.
func (s *AuthService) Login(ctx context.Context, credentials models.Credentials) (*models.User, error) {
	return s.authenticate("Login failed", func() (*models.AuthResult, error) {
		return s.repo.Login(ctx, credentials)
	})
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, registration models.Registration) (*models.User, error) {
	return s.authenticate("Registration failed", func() (*models.AuthResult, error) {
		return s.repo.Register(ctx, registration)
	})
}

func (s *AuthService) authenticate(failureTitle string, call func() (*models.AuthResult, error)) (*models.User, error) {
	s.store.SetLoading(true)

	res, err := call()
	if err != nil {
		s.store.SetLoading(false)
		s.notifier.Error(failureTitle, apierrors.Message(err))
		return nil, err
	}

	s.cache.Clear()
	s.store.SetAuth(&res.User, res.Token)
	s.notifier.Success("Welcome", res.User.DisplayName())
	return &res.User, nil
}

// Logout revokes the token on the server. The local session and the task
// cache are cleared even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	err := s.repo.Logout(ctx)
	if err != nil {
		s.logger.Warn("server logout failed; signing out locally", "error", err)
	}
	s.store.ClearAuth()
	s.cache.Clear()
	s.notifier.Success("Signed out", "")
	return err
}

// RefreshUser reloads the profile of the signed-in user and keeps the token.
func (s *AuthService) RefreshUser(ctx context.Context) (*models.User, error) {
	token := s.store.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	user, err := s.repo.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s.store.SetAuth(user, token)
	return user, nil
}

// RefreshToken exchanges the current token for a new one.
func (s *AuthService) RefreshToken(ctx context.Context) error {
	if s.store.Token() == "" {
		return ErrNotSignedIn
	}
	res, err := s.repo.Refresh(ctx)
	if err != nil {
		return err
	}
	s.store.SetAuth(&res.User, res.Token)
	return nil
}
