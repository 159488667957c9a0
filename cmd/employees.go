package cmd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	errors "github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/internal/auth"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Manage employee accounts (admin)",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(_ context.Context, s *dashboard.Session) error {
			view, err := s.View()
			if err != nil {
				return err
			}
			if !view.Capabilities.Can(auth.ActionViewEmployees) {
				return errors.ErrActionForbidden
			}
			return printEmployees(cmd.OutOrStdout(), view.Employees)
		})
	},
}

var (
	accountName     string
	accountEmail    string
	accountPassword string
	accountRole     string
)

var employeesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an employee account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			err := d.CreateEmployee(ctx, gateway.CreateEmployeeDTO{
				Name:     accountName,
				Email:    accountEmail,
				Password: accountPassword,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Employee %s created\n", accountEmail)
			return nil
		})
	},
}

var employeesDeleteCmd = &cobra.Command{
	Use:   "delete <employee-id>",
	Short: "Delete an employee with all their tasks and messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.DeleteEmployee(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Employee deleted")
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an account with a chosen role (admin)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			err := d.RegisterUser(ctx, gateway.RegisterUserDTO{
				Name:     accountName,
				Email:    accountEmail,
				Password: accountPassword,
				Role:     user.Role(accountRole),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s registered\n", accountRole, accountEmail)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics (admin)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(_ context.Context, s *dashboard.Session) error {
			view, err := s.View()
			if err != nil {
				return err
			}
			if !view.Capabilities.Can(auth.ActionViewStats) {
				return errors.ErrActionForbidden
			}
			if view.Stats == nil {
				return stderrors.New("statistics are not loaded")
			}
			return printStats(cmd.OutOrStdout(), *view.Stats, view.CompletionRate)
		})
	},
}

func accountFlags(c *cobra.Command) {
	c.Flags().StringVar(&accountName, "name", "", "display name")
	c.Flags().StringVar(&accountEmail, "email", "", "login email")
	c.Flags().StringVar(&accountPassword, "password", "", "initial password")
}

func init() {
	accountFlags(employeesCreateCmd)
	accountFlags(registerCmd)
	registerCmd.Flags().StringVar(&accountRole, "role", string(user.RoleEmployee), "Admin or Employee")

	employeesCmd.AddCommand(employeesListCmd, employeesCreateCmd, employeesDeleteCmd)
}
