package cli

import (
	"github.com/spf13/cobra"
)

// passwordFlag returns the --password value or prompts for it.
func passwordFlag(cmd *cobra.Command, password, prompt string) (string, error) {
	if password != "" {
		return password, nil
	}
	return promptPassword(cmd.ErrOrStderr(), prompt)
}

func newSignupCmd(app *App) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlag(cmd, password, "Enter password: ")
			if err != nil {
				return err
			}
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				a.session.SignupUser(cmd.Context(), email, pw, name)
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlag(cmd, password, "Enter password: ")
			if err != nil {
				return err
			}
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				a.session.LoginUser(cmd.Context(), email, pw)
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				if err := a.requireUser(); err != nil {
					return err
				}
				a.session.LogoutUser(cmd.Context())
				return a.out.result()
			})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				u, ok := a.session.User()
				if !ok {
					return ErrNotLoggedIn
				}
				a.out.user(u)
				return nil
			})
		},
	}
}

func newRecoverCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Send a password recovery email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				a.session.CreatePasswordRecovery(cmd.Context(), email)
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address of the account")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd(app *App) *cobra.Command {
	var userID, secret, password, passwordAgain string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using the userId and secret from the recovery link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlag(cmd, password, "New password: ")
			if err != nil {
				return err
			}
			again := passwordAgain
			if again == "" {
				if password != "" {
					again = password
				} else if again, err = promptPassword(cmd.ErrOrStderr(), "Repeat password: "); err != nil {
					return err
				}
			}
			return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
				a.session.UpdatePasswordRecovery(cmd.Context(), userID, secret, pw, again)
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "userId from the recovery link")
	cmd.Flags().StringVar(&secret, "secret", "", "secret from the recovery link")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted when empty)")
	cmd.Flags().StringVar(&passwordAgain, "password-again", "", "Password confirmation (defaults to --password)")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
