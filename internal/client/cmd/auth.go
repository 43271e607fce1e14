package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"medequip/internal/client/session"
)

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Username: ")
				if username, err = readLine(in); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(cmd, in, "Password: "); err != nil {
					return err
				}
			}
			ws, err := env.dash.Login(cmd.Context(), username, password)
			if err != nil {
				return surfaced(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(ws.Session.Profile().Username, username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			if err := env.dash.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type statusView struct {
	Status   string `json:"status"`
	Server   string `json:"server"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Validate the stored token and show the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd, flags)
			if err != nil {
				return err
			}
			view := statusView{Server: env.cfg.Server.URL}
			if env.dash.Status() == session.Validating {
				if ws, err := env.dash.Start(cmd.Context()); err == nil {
					p := ws.Session.Profile()
					view.Username, view.Role = p.Username, p.Role
				}
			}
			view.Status = env.dash.Status().String()
			return render(env.out, env.format, view, func(tw *tabwriter.Writer) {
				row(tw, "STATUS", view.Status)
				row(tw, "SERVER", view.Server)
				if view.Username != "" {
					row(tw, "USER", view.Username+" ("+view.Role+")")
				}
			})
		},
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo from a terminal and falls back to a
// plain line read otherwise.
func promptPassword(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		return string(pass), err
	}
	return readLine(in)
}

func displayName(profile, typed string) string {
	if profile != "" {
		return profile
	}
	return typed
}
