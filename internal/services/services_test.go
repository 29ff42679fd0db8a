package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-management-client/internal/cache"
	apierrors "github.com/yukikurage/task-management-client/internal/errors"
	"github.com/yukikurage/task-management-client/internal/logger"
	"github.com/yukikurage/task-management-client/internal/models"
	"github.com/yukikurage/task-management-client/internal/session"
)

type note struct {
	ok             bool
	title, message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Success(title, message string) { n.add(note{true, title, message}) }
func (n *recordingNotifier) Error(title, message string)   { n.add(note{false, title, message}) }

func (n *recordingNotifier) add(x note) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, x)
}

func (n *recordingNotifier) last() note {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return note{}
	}
	return n.notes[len(n.notes)-1]
}

// fakeTasks is an in-memory task backend. When gate is set every write
// blocks until a value arrives on it; a non-nil value fails the write.
type fakeTasks struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int64
	gate   chan error
	lists  int
}

func (f *fakeTasks) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case err := <-f.gate:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTasks) ListByOwner(_ context.Context, userID int64) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := []models.Task{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) List(ctx context.Context) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneTasks(f.tasks), nil
}

func (f *fakeTasks) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := models.Task{ID: f.nextID, Title: in.Title, Description: in.Description, Status: models.TaskStatusPending, UserID: 42}
	f.tasks = append([]models.Task{t}, f.tasks...)
	return &t, nil
}

func (f *fakeTasks) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	return f.edit(ctx, id, patch.Apply)
}

func (f *fakeTasks) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) (*models.Task, error) {
	return f.edit(ctx, id, func(t models.Task) models.Task {
		t.Status = status
		return t
	})
}

func (f *fakeTasks) edit(ctx context.Context, id int64, fn func(models.Task) models.Task) (*models.Task, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i] = fn(t)
			out := f.tasks[i]
			return &out, nil
		}
	}
	return nil, apierrors.FromResponse(http.StatusNotFound, []byte(`{"message":"Task not found"}`))
}

func (f *fakeTasks) Delete(ctx context.Context, id int64) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = cache.RemoveTask(f.tasks, id)
	return nil
}

type fakeAuth struct {
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Login(_ context.Context, c models.Credentials) (*models.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.AuthResult{User: models.User{ID: 42, FirstName: "Ada", Email: c.Email}, Token: "tok-1"}, nil
}

func (f *fakeAuth) Register(_ context.Context, r models.Registration) (*models.AuthResult, error) {
	return &models.AuthResult{User: models.User{ID: 43, FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}, Token: "tok-new"}, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuth) CurrentUser(context.Context) (*models.User, error) {
	return &models.User{ID: 42, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, nil
}

func (f *fakeAuth) Refresh(context.Context) (*models.AuthResult, error) {
	return &models.AuthResult{User: models.User{ID: 42, FirstName: "Ada"}, Token: "tok-2"}, nil
}

type ServicesTestSuite struct {
	suite.Suite
	tasks    *fakeTasks
	auth     *fakeAuth
	store    *session.Store
	cache    *cache.Cache
	notifier *recordingNotifier
	taskSvc  *TaskService
	authSvc  *AuthService
	ctx      context.Context
}

func (s *ServicesTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.tasks = &fakeTasks{
		nextID: 100,
		tasks: []models.Task{
			{ID: 1, Title: "Task A", Status: models.TaskStatusPending, UserID: 42},
			{ID: 2, Title: "Task B", Status: models.TaskStatusCompleted, UserID: 42},
			{ID: 3, Title: "Other", Status: models.TaskStatusPending, UserID: 7},
		},
	}
	s.auth = &fakeAuth{}
	s.store = session.NewStore()
	s.cache = cache.New(cache.Options{StaleTime: time.Minute, RetryDelay: time.Millisecond, Logger: logger.Discard()})
	s.notifier = &recordingNotifier{}
	s.taskSvc = NewTaskService(s.tasks, s.store, s.cache, s.notifier, logger.Discard())
	s.authSvc = NewAuthService(s.auth, s.store, s.cache, s.notifier, logger.Discard())
}

func (s *ServicesTestSuite) TearDownTest() {
	s.cache.Wait()
}

func (s *ServicesTestSuite) login() {
	_, err := s.authSvc.Login(s.ctx, models.Credentials{Email: "ada@example.com", Password: "secret"})
	s.Require().NoError(err)
}

func (s *ServicesTestSuite) cached() []models.Task {
	tasks, _ := s.cache.Peek(cache.TasksByUser(42))
	return tasks
}

func (s *ServicesTestSuite) TestLoginStoresSession() {
	s.login()

	view := s.authSvc.Session()
	s.True(view.IsAuthenticated)
	s.False(view.IsLoading)
	s.Equal(int64(42), view.User.ID)
	s.Equal("tok-1", s.store.Token())
	s.Equal(note{true, "Welcome", "Ada"}, s.notifier.last())
}

func (s *ServicesTestSuite) TestLoginFailureLeavesSignedOut() {
	s.auth.loginErr = apierrors.FromResponse(http.StatusUnauthorized, []byte(`{"message":"Invalid email or password"}`))

	_, err := s.authSvc.Login(s.ctx, models.Credentials{Email: "ada@example.com", Password: "wrong"})

	s.Error(err)
	view := s.authSvc.Session()
	s.False(view.IsAuthenticated)
	s.False(view.IsLoading)
	s.Equal(note{false, "Login failed", "Invalid email or password"}, s.notifier.last())
}

func (s *ServicesTestSuite) TestRegisterSignsIn() {
	user, err := s.authSvc.Register(s.ctx, models.Registration{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})

	s.Require().NoError(err)
	s.Equal(int64(43), user.ID)
	s.Equal("tok-new", s.store.Token())
}

func (s *ServicesTestSuite) TestLogoutClearsEvenWhenServerFails() {
	s.login()
	s.taskSvc.Tasks(s.ctx)
	s.auth.logoutErr = errors.New("offline")

	err := s.authSvc.Logout(s.ctx)

	s.Error(err)
	s.Equal(1, s.auth.logouts)
	s.False(s.store.IsAuthenticated())
	_, ok := s.cache.Peek(cache.TasksByUser(42))
	s.False(ok)
}

func (s *ServicesTestSuite) TestRefreshUserKeepsToken() {
	s.login()

	user, err := s.authSvc.RefreshUser(s.ctx)

	s.Require().NoError(err)
	s.Equal("Lovelace", user.LastName)
	s.Equal("tok-1", s.store.Token())
	s.Equal("Lovelace", s.store.User().LastName)
}

func (s *ServicesTestSuite) TestRefreshRequiresSession() {
	_, err := s.authSvc.RefreshUser(s.ctx)
	s.ErrorIs(err, ErrNotSignedIn)
	s.ErrorIs(s.authSvc.RefreshToken(s.ctx), ErrNotSignedIn)

	s.login()
	s.Require().NoError(s.authSvc.RefreshToken(s.ctx))
	s.Equal("tok-2", s.store.Token())
}

func (s *ServicesTestSuite) TestTasksDisabledWithoutUser() {
	res := s.taskSvc.Tasks(s.ctx)

	s.Empty(res.Data)
	s.NoError(res.Err)
	s.Equal(0, s.tasks.lists)
}

func (s *ServicesTestSuite) TestDashboardFiltersAndCounts() {
	s.login()

	dash := s.taskSvc.Dashboard(s.ctx, models.FilterPending)

	s.Require().NoError(dash.Err)
	s.Len(dash.Tasks, 1)
	s.Equal("Task A", dash.Tasks[0].Title)
	s.Equal(2, dash.Stats.Total)
	s.Equal(1, dash.Stats.Completed)

	all := s.taskSvc.Dashboard(s.ctx, "")
	s.Equal(models.FilterAll, all.Filter)
	s.Len(all.Tasks, 2)
	s.Equal(1, s.tasks.lists)
}

func (s *ServicesTestSuite) TestCreateShowsPlaceholderThenServerCopy() {
	s.login()
	s.taskSvc.Tasks(s.ctx)
	s.tasks.gate = make(chan error)

	done := s.taskSvc.CreateTask().Mutate(s.ctx, models.TaskInput{Title: "Write tests"})

	tasks := s.cached()
	s.Require().Len(tasks, 3)
	s.Equal("Write tests", tasks[0].Title)
	s.True(tasks[0].IsPlaceholder())
	s.True(s.taskSvc.CreateTask().IsPending())

	s.tasks.gate <- nil
	res := <-done

	s.Require().True(res.OK())
	s.Equal(int64(101), res.Value.ID)
	tasks = s.cached()
	s.Equal(int64(101), tasks[0].ID)
	s.False(s.taskSvc.CreateTask().IsPending())
	s.Equal(cache.PhaseSucceeded, s.taskSvc.CreateTask().Phase())
	s.Equal(note{true, "Task created", `"Write tests" was added`}, s.notifier.last())
}

func (s *ServicesTestSuite) TestStatusChangeRollsBackOnFailure() {
	s.login()
	s.taskSvc.Tasks(s.ctx)
	s.tasks.gate = make(chan error, 1)
	s.tasks.gate <- apierrors.FromResponse(http.StatusInternalServerError, []byte(`{"message":"boom"}`))

	_, err := s.taskSvc.UpdateTaskStatus().MutateAsync(s.ctx, StatusChange{ID: 1, Status: models.TaskStatusCompleted})

	s.Error(err)
	s.Equal(models.TaskStatusPending, s.cached()[0].Status)
	s.Equal(cache.PhaseRolledBack, s.taskSvc.UpdateTaskStatus().Phase())
	s.Equal(note{false, "Could not change status", "boom"}, s.notifier.last())
}

func (s *ServicesTestSuite) TestStatusChangeSucceeds() {
	s.login()
	s.taskSvc.Tasks(s.ctx)

	task, err := s.taskSvc.UpdateTaskStatus().MutateAsync(s.ctx, StatusChange{ID: 1, Status: models.TaskStatusCanceled})

	s.Require().NoError(err)
	s.Equal(models.TaskStatusCanceled, task.Status)
	s.Equal(models.TaskStatusCanceled, s.cached()[0].Status)
	s.Equal(note{true, "Status updated", `"Task A" → Canceled`}, s.notifier.last())
}

func (s *ServicesTestSuite) TestUpdateAndDelete() {
	s.login()
	s.taskSvc.Tasks(s.ctx)

	title := "Task A, renamed"
	_, err := s.taskSvc.UpdateTask().MutateAsync(s.ctx, TaskUpdate{ID: 1, Patch: models.TaskPatch{Title: &title}})
	s.Require().NoError(err)
	s.Equal(title, s.cached()[0].Title)

	_, err = s.taskSvc.DeleteTask().MutateAsync(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(s.cached(), 1)
	s.Equal(note{true, "Task deleted", "The task was deleted"}, s.notifier.last())
}

func (s *ServicesTestSuite) TestWritesRejectedBeforeApply() {
	_, err := s.taskSvc.CreateTask().MutateAsync(s.ctx, models.TaskInput{Title: "nope"})
	s.ErrorIs(err, ErrNotSignedIn)

	s.login()
	s.taskSvc.Tasks(s.ctx)

	_, err = s.taskSvc.DeleteTask().MutateAsync(s.ctx, -1)
	s.ErrorIs(err, ErrTaskNotSynced)

	res := <-s.taskSvc.UpdateTaskStatus().Mutate(s.ctx, StatusChange{ID: 1, Status: "DONE"})
	s.ErrorIs(res.Err, ErrInvalidStatus)

	s.Len(s.cached(), 2)
	s.Equal(models.TaskStatusPending, s.cached()[0].Status)
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}
