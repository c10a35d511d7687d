package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

// newHelpCmd replaces cobra's help command. `squadron help <command>` still
// shows command help; the request and respond subcommands carry help
// traffic between members.
func newHelpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Show command help, or ask the team for help",
		Long: `Without a subcommand, shows help for a squadron command.

The request and respond subcommands exchange help requests between members.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				return cmd.Root().Help()
			}
			return target.Help()
		},
	}
	cmd.AddCommand(newHelpRequestCmd(), newHelpRespondCmd())
	return cmd
}

func newHelpRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <question>",
		Short: "Broadcast a help request to the team",
		Args:  cobra.MinimumNArgs(1),
	}
	from := memberFlag(cmd, "from", "requesting member id")
	priority := cmd.Flags().String("priority", "", "low, normal, high or urgent (default high)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.RequestHelp(cmd.Context(), orchestrator.HelpRequest{
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

func newHelpRespondCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "respond <request-id> <answer>",
		Short: "Answer a help request",
		Args:  cobra.MinimumNArgs(2),
	}
	from := memberFlag(cmd, "from", "responding member id")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.RespondHelp(cmd.Context(), orchestrator.HelpResponse{
				RequestID: args[0],
				From:      *from,
				Content:   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return printMessage(cmd, res)
		})
	}
	return cmd
}
