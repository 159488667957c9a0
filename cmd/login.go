package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print a session token",
	Long:  `Exchange credentials for a session token. Pass the token with --token or TASKDESK_SESSION_TOKEN.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		resp, err := newClient(cfg).Login(commandContext(cmd), gateway.LoginDTO{
			Email:    loginEmail,
			Password: loginPassword,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput() {
			return writeJSON(out, resp)
		}
		identity := resp.Identity()
		fmt.Fprintf(out, "Logged in as %s (%s)\n", identity.Name, identity.Role)
		fmt.Fprintln(out, resp.Token)
		return nil
	},
}

var whoamiPath string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the session identity and the view it lands on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(_ context.Context, s *dashboard.Session) error {
			identity := s.Identity()
			decision := s.Decide(whoamiPath)
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(out, struct {
					ID       string `json:"id"`
					Name     string `json:"name"`
					Email    string `json:"email"`
					Role     string `json:"role"`
					View     string `json:"view"`
					Redirect bool   `json:"redirect"`
				}{identity.ID, identity.Name, identity.Email, string(identity.Role), decision.Location, decision.Outcome == auth.OutcomeRedirect})
			}
			fmt.Fprintf(out, "%s <%s> %s\n", identity.Name, identity.Email, identity.Role)
			if decision.Outcome == auth.OutcomeRedirect {
				fmt.Fprintf(out, "%s redirects to %s\n", whoamiPath, decision.Location)
			} else {
				fmt.Fprintf(out, "view %s\n", decision.Location)
			}
			return nil
		})
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	whoamiCmd.Flags().StringVar(&whoamiPath, "path", "/", "requested view")
}
