package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-management-client/internal/app"
	"github.com/yukikurage/task-management-client/internal/guard"
	"github.com/yukikurage/task-management-client/internal/models"
	"github.com/yukikurage/task-management-client/internal/services"
)

func tasksCmd(r *runtime) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List your tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilter(filter)
			if err != nil {
				return err
			}
			return r.run(cmd, guard.RouteDashboard, func(ctx context.Context, a *app.App) error {
				dash := a.Tasks.Dashboard(ctx, f)
				if dash.Err != nil {
					return dash.Err
				}
				printDashboard(r, dash)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, pending, completed or canceled")
	return cmd
}

func addCmd(r *runtime) *cobra.Command {
	var input models.TaskInput

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Title = args[0]
			return r.run(cmd, guard.RouteDashboard, func(ctx context.Context, a *app.App) error {
				a.Tasks.Tasks(ctx)
				_, err := a.Tasks.CreateTask().MutateAsync(ctx, input)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&input.Description, "description", "d", "", "Task description")
	return cmd
}

func editCmd(r *runtime) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch models.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change; pass --title or --description")
			}
			return r.run(cmd, guard.RouteDashboard, func(ctx context.Context, a *app.App) error {
				a.Tasks.Tasks(ctx)
				_, err := a.Tasks.UpdateTask().MutateAsync(ctx, services.TaskUpdate{ID: id, Patch: patch})
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func statusCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <pending|completed|canceled>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, ok := models.ParseTaskStatus(args[1])
			if !ok {
				return fmt.Errorf("%w: %q", services.ErrInvalidStatus, args[1])
			}
			return r.run(cmd, guard.RouteDashboard, func(ctx context.Context, a *app.App) error {
				a.Tasks.Tasks(ctx)
				_, err := a.Tasks.UpdateTaskStatus().MutateAsync(ctx, services.StatusChange{ID: id, Status: status})
				return err
			})
		},
	}
}

func rmCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return r.run(cmd, guard.RouteDashboard, func(ctx context.Context, a *app.App) error {
				a.Tasks.Tasks(ctx)
				_, err := a.Tasks.DeleteTask().MutateAsync(ctx, id)
				return err
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func parseFilter(raw string) (models.TaskFilter, error) {
	switch f := models.TaskFilter(strings.ToUpper(strings.TrimSpace(raw))); f {
	case models.FilterAll, models.FilterPending, models.FilterCompleted, models.FilterCanceled:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

func printDashboard(r *runtime, dash services.Dashboard) {
	s := dash.Stats
	fmt.Fprintf(r.out, "%d tasks: %d pending, %d completed, %d canceled\n", s.Total, s.Pending, s.Completed, s.Canceled)
	if len(dash.Tasks) == 0 {
		fmt.Fprintln(r.out, "No tasks")
		return
	}

	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tDESCRIPTION")
	for _, t := range dash.Tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Status, t.Title, t.Description)
	}
	_ = w.Flush()
}
