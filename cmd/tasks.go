package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/task"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and manage tasks",
}

var taskStatusFilter string

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks visible to the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(_ context.Context, s *dashboard.Session) error {
			view, err := s.View()
			if err != nil {
				return err
			}
			tasks, err := filterTasks(view, taskStatusFilter)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		})
	},
}

func filterTasks(view dashboard.View, status string) ([]task.Task, error) {
	switch task.Status(status) {
	case "":
		return append(append(append([]task.Task{}, view.Pending...), view.InProgress...), view.Completed...), nil
	case task.StatusPending:
		return view.Pending, nil
	case task.StatusInProgress:
		return view.InProgress, nil
	case task.StatusCompleted:
		return view.Completed, nil
	}
	return nil, fmt.Errorf("unknown status %q", status)
}

var (
	taskTitle       string
	taskDescription string
	taskAssignee    string
	taskFiles       []string
)

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Assign a new task to an employee",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, release, err := openAttachments(taskFiles)
		if err != nil {
			return err
		}
		defer release()

		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			err := d.CreateTask(ctx, gateway.CreateTaskDTO{
				Title:       taskTitle,
				Description: taskDescription,
				AssignedTo:  taskAssignee,
				Files:       files,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %q created\n", taskTitle)
			return nil
		})
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.DeleteTask(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task deleted")
			return nil
		})
	},
}

var tasksStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Move one of your pending tasks to in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.StartTask(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task started")
			return nil
		})
	},
}

var completionFiles []string

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Complete one of your tasks, optionally attaching files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, release, err := openAttachments(completionFiles)
		if err != nil {
			return err
		}
		defer release()

		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.CompleteTask(ctx, args[0], gateway.CompleteTaskDTO{Files: files}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task completed")
			return nil
		})
	},
}

func init() {
	tasksListCmd.Flags().StringVar(&taskStatusFilter, "status", "", "only tasks in this status (pending, in-progress, completed)")

	tasksCreateCmd.Flags().StringVar(&taskTitle, "title", "", "task title")
	tasksCreateCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	tasksCreateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "id of the employee the task is assigned to")
	tasksCreateCmd.Flags().StringSliceVarP(&taskFiles, "file", "f", nil, "file to attach (repeatable)")

	tasksCompleteCmd.Flags().StringSliceVarP(&completionFiles, "file", "f", nil, "completion file to attach (repeatable)")

	tasksCmd.AddCommand(tasksListCmd, tasksCreateCmd, tasksDeleteCmd, tasksStartCmd, tasksCompleteCmd)
}
