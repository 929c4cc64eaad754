package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/fieldfinder/internal/client"
)

// readPassword takes the password from the flag, or else one line of stdin.
func readPassword(flag string, in io.Reader, prompt io.Writer) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(prompt, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

// authMessage turns the server's auth error codes into something readable.
func authMessage(err error) error {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case "INVALID_CREDENTIALS":
		return errors.New("wrong email or password")
	case "EMAIL_ALREADY_EXISTS":
		return errors.New("an account with that email already exists")
	}
	if apiErr.Kind == client.KindNetwork {
		return errors.New("could not reach the server")
	}
	if apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}

func newSignupCmd(a *app) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password, os.Stdin, a.errOut)
			if err != nil {
				return err
			}
			user, err := a.session.Signup(cmd.Context(), email, pw, name)
			if err != nil {
				return authMessage(err)
			}
			fmt.Fprintf(a.out, "Welcome, %s. You are logged in as %s.\n", user.Name, a.session.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password, os.Stdin, a.errOut)
			if err != nil {
				return err
			}
			user, err := a.session.Login(cmd.Context(), email, pw)
			if err != nil {
				return authMessage(err)
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s).\n", user.Name, a.session.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.Logout(cmd.Context())
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				fmt.Fprintln(a.out, "Not logged in.")
				return nil
			}
			user, ok := a.session.User()
			if !ok {
				fmt.Fprintf(a.out, "Logged in as user %s (%s).\n", a.session.UserID(), a.session.State())
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Name, user.Email, a.session.State())
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Health(cmd.Context()); err != nil {
				return fmt.Errorf("server unavailable: %w", err)
			}
			fmt.Fprintln(a.out, "Server is up.")
			return nil
		},
	}
}
