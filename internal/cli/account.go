package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		Long: `Sign in with email and password. The returned credential is stored in
the state file and used by every job command.

Examples:
  docsum login --email ada@example.com
  docsum login --email ada@example.com --password 's3cretpass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = promptValue(cmd, email, "Email", false); err != nil {
				return err
			}
			if password, err = promptValue(cmd, password, "Password", true); err != nil {
				return err
			}

			if err := a.accounts.Login(cmd.Context(), map[string]string{
				"user_email":    email,
				"user_password": password,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. A six-digit code is sent to the email address;
finish with 'docsum confirm <code>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if name, err = promptValue(cmd, name, "Name", false); err != nil {
				return err
			}
			if email, err = promptValue(cmd, email, "Email", false); err != nil {
				return err
			}
			if password, err = promptValue(cmd, password, "Password", true); err != nil {
				return err
			}

			if err := a.accounts.Register(cmd.Context(), map[string]string{
				"user_name":     name,
				"user_email":    email,
				"user_password": password,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registration received. Check your email for the confirmation code.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted if omitted)")
	return cmd
}

func newConfirmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <code>",
		Short: "Confirm a registration with the emailed code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.accounts.ConfirmRegistration(cmd.Context(), map[string]string{"otp": args[0]}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registration confirmed. You can now log in.")
			return nil
		},
	}
}

func newForgotPasswordCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = promptValue(cmd, email, "Email", false); err != nil {
				return err
			}
			if err := a.accounts.RequestPasswordReset(cmd.Context(), map[string]string{"user_email": email}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset code sent to %s. Finish with 'docsum reset-password'.\n", email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCmd(a *app) *cobra.Command {
	var email, otp, password, confirm string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset code",
		Long: `Set a new password using the code from 'docsum forgot-password'.
On success you are signed in with the new password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = promptValue(cmd, email, "Email", false); err != nil {
				return err
			}
			if otp, err = promptValue(cmd, otp, "Code", false); err != nil {
				return err
			}
			if password, err = promptValue(cmd, password, "New password", true); err != nil {
				return err
			}
			if confirm, err = promptValue(cmd, confirm, "Confirm password", true); err != nil {
				return err
			}

			if err := a.accounts.CompletePasswordReset(cmd.Context(), map[string]string{
				"user_email":        email,
				"user_otp":          otp,
				"user_password":     password,
				"user_new_password": confirm,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated. Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "six-digit reset code")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (prompted if omitted)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "repeat the new password (prompted if omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.accounts.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the service and sign-in state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API host:   %s\n", a.cfg.APIHost)
			if a.ephemeral {
				fmt.Fprintln(out, "State file: (in memory)")
			} else {
				fmt.Fprintf(out, "State file: %s\n", a.cfg.StateFile)
			}

			if _, ok := a.session.Get(); !ok {
				fmt.Fprintln(out, "Signed in:  no")
				return nil
			}
			fmt.Fprintln(out, "Signed in:  yes")

			claims, err := a.session.Claims()
			if err != nil {
				a.logger.Debug("credential is not a decodable JWT", "error", err)
				return nil
			}
			if claims.Subject != "" {
				fmt.Fprintf(out, "Subject:    %s\n", claims.Subject)
			}
			if claims.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires:    %s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
