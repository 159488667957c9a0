package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/dashboard"
	"github.com/frahmantamala/taskdesk/internal/gateway"
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Read and send messages",
}

var messageBox string

var messagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List received, sent or unread messages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(_ context.Context, s *dashboard.Session) error {
			view, err := s.View()
			if err != nil {
				return err
			}
			var messages []message.Message
			switch messageBox {
			case "received":
				messages = view.Received
			case "sent":
				messages = view.Sent
			case "unread":
				messages = view.Unread
			default:
				return fmt.Errorf("unknown box %q", messageBox)
			}
			return printMessages(cmd.OutOrStdout(), messages)
		})
	},
}

var (
	messageReceiver string
	messageSubject  string
	messageContent  string
)

var messagesSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			err := d.SendMessage(ctx, gateway.SendMessageDTO{
				Receiver: messageReceiver,
				Subject:  messageSubject,
				Content:  messageContent,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Message sent")
			return nil
		})
	},
}

var messagesReplyCmd = &cobra.Command{
	Use:   "reply <message-id>",
	Short: "Reply to a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.Reply(ctx, args[0], messageContent); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reply sent")
			return nil
		})
	},
}

var messagesReadCmd = &cobra.Command{
	Use:   "read <message-id>",
	Short: "Mark a received message as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *dashboard.Dispatcher) error {
			if err := d.MarkRead(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Message marked as read")
			return nil
		})
	},
}

func init() {
	messagesListCmd.Flags().StringVar(&messageBox, "box", "received", "received, sent or unread")

	messagesSendCmd.Flags().StringVar(&messageReceiver, "to", "", "id of the receiver")
	messagesSendCmd.Flags().StringVar(&messageSubject, "subject", "", "message subject")
	messagesSendCmd.Flags().StringVar(&messageContent, "content", "", "message body")

	messagesReplyCmd.Flags().StringVar(&messageContent, "content", "", "reply body")

	messagesCmd.AddCommand(messagesListCmd, messagesSendCmd, messagesReplyCmd, messagesReadCmd)
}
