package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weatherdash/internal/client/client"
	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/spf13/cobra"
)

func newRegisterCmd(dial Dialer) *cobra.Command {
	var firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if firstName, err = valueOrPrompt(firstName, e.reader, "First name", out); err != nil {
				return err
			}
			if lastName, err = valueOrPrompt(lastName, e.reader, "Last name", out); err != nil {
				return err
			}
			if email, err = valueOrPrompt(email, e.reader, "Email", out); err != nil {
				return err
			}
			password, err := getPassword(out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			accounts, err := dial(e.cfg)
			if err != nil {
				return err
			}
			defer accounts.Close()

			ctx, cancel := e.call(cmd.Context())
			defer cancel()

			sess, err := accounts.Register(ctx, firstName, lastName, email, password)
			if err != nil {
				return explain(err)
			}
			return finishLogin(cmd, e, sess)
		},
	}
	cmd.Flags().StringVar(&firstName, "first", "", "first name")
	cmd.Flags().StringVar(&lastName, "last", "", "last name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	return cmd
}

func newLoginCmd(dial Dialer) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if email, err = valueOrPrompt(email, e.reader, "Email", out); err != nil {
				return err
			}
			password, err := getPassword(out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			accounts, err := dial(e.cfg)
			if err != nil {
				return err
			}
			defer accounts.Close()

			ctx, cancel := e.call(cmd.Context())
			defer cancel()

			sess, err := accounts.Login(ctx, email, password)
			if err != nil {
				return explain(err)
			}
			return finishLogin(cmd, e, sess)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	return cmd
}

func finishLogin(cmd *cobra.Command, e *env, sess *client.Session) error {
	if err := e.store.Save(sess.Token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	out := cmd.OutOrStdout()
	if sess.Message != "" {
		fmt.Fprintln(out, sess.Message)
	}
	fmt.Fprintf(out, "Logged in as %s %s <%s>\n", sess.Profile.FirstName, sess.Profile.LastName, sess.Profile.Email)
	return nil
}

func newWhoAmICmd(dial Dialer) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			token, err := e.store.Load()
			if err != nil {
				return explain(err)
			}

			accounts, err := dial(e.cfg)
			if err != nil {
				return err
			}
			defer accounts.Close()
			accounts.SetToken(token)

			ctx, cancel := e.call(cmd.Context())
			defer cancel()

			p, err := accounts.WhoAmI(ctx)
			if err != nil {
				if errors.Is(err, client.ErrUnauthenticated) {
					// expired or revoked by a secret change
					_ = e.store.Clear()
				}
				return explain(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:    %s\n", p.ID)
			fmt.Fprintf(out, "Name:  %s %s\n", p.FirstName, p.LastName)
			fmt.Fprintf(out, "Email: %s\n", p.Email)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if err := e.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
