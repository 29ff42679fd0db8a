package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-management-client/internal/app"
	"github.com/yukikurage/task-management-client/internal/guard"
	"github.com/yukikurage/task-management-client/internal/models"
)

func loginCmd(r *runtime) *cobra.Command {
	var creds models.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, guard.RouteLogin, func(ctx context.Context, a *app.App) error {
				_, err := a.Auth.Login(ctx, creds)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func registerCmd(r *runtime) *cobra.Command {
	var reg models.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.PasswordConfirmation == "" {
				reg.PasswordConfirmation = reg.Password
			}
			return r.run(cmd, guard.RouteRegister, func(ctx context.Context, a *app.App) error {
				_, err := a.Auth.Register(ctx, reg)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Account password")
	cmd.Flags().StringVar(&reg.PasswordConfirmation, "password-confirmation", "", "Repeat the password (defaults to --password)")
	for _, name := range []string{"first-name", "last-name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func logoutCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, guard.RouteProfile, func(ctx context.Context, a *app.App) error {
				return a.Auth.Logout(ctx)
			})
		},
	}
}

func whoamiCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, guard.RouteProfile, func(ctx context.Context, a *app.App) error {
				user, err := a.Auth.RefreshUser(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(r.out, "%s <%s>\n", user.DisplayName(), user.Email)
				return nil
			})
		},
	}
}
