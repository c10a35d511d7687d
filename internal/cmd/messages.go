package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

// Listen output formats.
const (
	formatText   = "text"
	formatJSON   = "json"
	formatPrompt = "prompt"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <content>",
		Short: "Send a message to a team member",
		Example: `  squadron send --to worker-1 "Take the lexer next"
  squadron send --from overseer --to worker-2 --priority urgent --ttl 600 "Stop and rebase"`,
		Args: cobra.MinimumNArgs(1),
	}
	from := memberFlag(cmd, "from", "sending member id")
	to := cmd.Flags().String("to", "", "recipient member id (required)")
	msgType := cmd.Flags().String("type", "", "direct or help_response (default direct)")
	priority := cmd.Flags().String("priority", "", "low, normal, high or urgent")
	ttl := cmd.Flags().Int("ttl", 0, "seconds until the message expires (default from messages.default_ttl_seconds)")
	_ = cmd.MarkFlagRequired("to")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Send(cmd.Context(), orchestrator.SendRequest{
				From:       *from,
				To:         *to,
				Content:    strings.Join(args, " "),
				Type:       mailbox.MessageType(*msgType),
				Priority:   mailbox.Priority(*priority),
				TTLSeconds: *ttl,
			})
			if err != nil {
				return err
			}
			return printMessage(cmd, res)
		})
	}
	return cmd
}

func newBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast <content>",
		Short: "Send a message to the whole team",
		Args:  cobra.MinimumNArgs(1),
	}
	from := memberFlag(cmd, "from", "sending member id")
	priority := cmd.Flags().String("priority", "", "low, normal, high or urgent")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Broadcast(cmd.Context(), orchestrator.BroadcastRequest{
				From:     *from,
				Content:  strings.Join(args, " "),
				Priority: mailbox.Priority(*priority),
			})
			if err != nil {
				return err
			}
			return printMessage(cmd, res)
		})
	}
	return cmd
}

func newListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Read the messages waiting for a team member",
		Long: `Listen returns messages addressed to the member and broadcasts from
the rest of the team, then marks them read for that member.

With --follow, listen keeps running and prints new messages as they arrive
until interrupted.`,
		Args: cobra.NoArgs,
	}
	member := memberFlag(cmd, "member", "reading member id")
	var req orchestrator.ListenRequest
	var types []string
	var follow bool
	var format string
	cmd.Flags().BoolVar(&req.IncludeExpired, "include-expired", false, "include expired messages")
	cmd.Flags().BoolVar(&req.IncludeRead, "include-read", false, "include messages already read")
	cmd.Flags().BoolVar(&req.ByPriority, "by-priority", false, "order by priority, highest first")
	cmd.Flags().BoolVar(&req.Peek, "peek", false, "leave messages unread")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum number of messages")
	cmd.Flags().StringSliceVar(&types, "types", nil, "only these message types")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new messages")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, json or prompt")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if wantJSON(cmd) {
			format = formatJSON
		}
		switch format {
		case formatText, formatJSON, formatPrompt:
		default:
			return fmt.Errorf("unknown format %q", format)
		}
		req.MemberID = *member
		for _, t := range types {
			req.Types = append(req.Types, mailbox.MessageType(strings.TrimSpace(t)))
		}

		return withFacade(cmd, func(f *orchestrator.Facade) error {
			if !follow {
				res, err := f.Listen(cmd.Context(), req)
				if err != nil {
					return err
				}
				if format == formatText && len(res.Messages) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No new messages.")
					return err
				}
				return printMessages(cmd, res.MemberID, res.Messages, format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return f.Watch(ctx, req, func(m mailbox.Message) {
				_ = printMessages(cmd, req.MemberID, []mailbox.Message{m}, format)
			})
		})
	}
	return cmd
}
