package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/boofmebel/auth/internal/auth/app"
	"github.com/boofmebel/auth/internal/auth/service"
	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/cryptox"
)

// NewUserCmd creates the user administration command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserDeactivateCmd())
	cmd.AddCommand(newUserSessionsCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var in service.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an active user",
		Long: `Create an active user. When --password is omitted a random password
is generated and printed once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			generated := in.Password == ""
			if generated {
				pw, err := cryptox.GeneratePassword()
				if err != nil {
					return oops.Code("PASSWORD_GENERATION_FAILED").Wrap(err)
				}
				in.Password = pw
			}

			return withStore(cmd.Context(), func(cfg app.Config, db store.Store) error {
				hasher, err := app.NewHasher(cfg)
				if err != nil {
					return err
				}

				users := &service.UserService{Store: db, Hasher: hasher}
				u, err := users.Create(cmd.Context(), in)
				if err != nil {
					return oops.Code("USER_CREATE_FAILED").With("email", in.Email).Wrap(err)
				}

				cmd.Printf("Created user %d <%s>\n", u.ID, u.Email)
				if generated {
					cmd.Printf("Password: %s\n", in.Password)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (generated when empty)")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	cmd.Flags().BoolVar(&in.IsSuperuser, "superuser", false, "mark the user as superuser")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <email>",
		Short: "Disable a user and revoke all of their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ app.Config, db store.Store) error {
				users := &service.UserService{Store: db}
				n, err := users.Deactivate(cmd.Context(), args[0])
				if err != nil {
					return oops.Code("USER_DEACTIVATE_FAILED").With("email", args[0]).Wrap(err)
				}
				cmd.Printf("Deactivated %s, revoked %d session(s)\n", args[0], n)
				return nil
			})
		},
	}
}

func newUserSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <email>",
		Short: "List a user's active sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ app.Config, db store.Store) error {
				users := &service.UserService{Store: db}
				sessions, err := users.Sessions(cmd.Context(), args[0])
				if err != nil {
					return oops.Code("USER_SESSIONS_FAILED").With("email", args[0]).Wrap(err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tISSUED\tDEVICE")
				for _, s := range sessions {
					device := "-"
					if s.DeviceInfo != nil {
						device = *s.DeviceInfo
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.IssuedAt.Format(time.RFC3339), device)
				}
				return w.Flush()
			})
		},
	}
}
