package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-management-client/internal/app"
	"github.com/yukikurage/task-management-client/internal/config"
	"github.com/yukikurage/task-management-client/internal/guard"
	"github.com/yukikurage/task-management-client/internal/services"
)

var (
	ErrSignInRequired = errors.New("not signed in; run `todo login` first")
	ErrSignedIn       = errors.New("already signed in; run `todo logout` first")
)

// runtime opens one App per command invocation.
type runtime struct {
	cfg  *config.Config
	deps app.Deps
	out  io.Writer
}

// open builds and starts the App, waits for the session and navigates to
// route. The route guard may move the user elsewhere, which is reported as
// an error.
func (r *runtime) open(ctx context.Context, route string) (*app.App, error) {
	a, err := app.New(ctx, r.cfg, r.deps)
	if err != nil {
		return nil, err
	}
	a.Start(ctx)
	if err := a.Ready(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Persister.Wait()

	a.Router.Push(route)
	if location := a.Router.Location(); location != route {
		_ = a.Close()
		if guard.AreaOf(location) == guard.AreaAuth {
			return nil, ErrSignInRequired
		}
		return nil, ErrSignedIn
	}
	return a, nil
}

// run opens the App at route, runs fn and closes the App.
func (r *runtime) run(cmd *cobra.Command, route string, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := r.open(ctx, route)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close session storage: %w", err)
	}
	return runErr
}

// NewRootCommand builds the todo command tree.
func NewRootCommand(cfg *config.Config, deps app.Deps, out io.Writer) *cobra.Command {
	if deps.Notifier == nil {
		deps.Notifier = services.NewWriterNotifier(out)
	}
	if deps.LogOutput == nil {
		deps.LogOutput = os.Stderr
	}
	r := &runtime{cfg: cfg, deps: deps, out: out}

	root := &cobra.Command{
		Use:           "todo",
		Short:         "Manage your tasks from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(loginCmd(r))
	root.AddCommand(registerCmd(r))
	root.AddCommand(logoutCmd(r))
	root.AddCommand(whoamiCmd(r))
	root.AddCommand(tasksCmd(r))
	root.AddCommand(addCmd(r))
	root.AddCommand(editCmd(r))
	root.AddCommand(statusCmd(r))
	root.AddCommand(rmCmd(r))

	return root
}

// Execute runs the CLI with the environment configuration.
func Execute(version string) {
	root := NewRootCommand(config.Load(), app.Deps{}, os.Stdout)
	root.Version = version

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
