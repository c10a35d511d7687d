package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

func newHeartbeatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heartbeat <status>",
		Short: "Report what this member is doing",
		Args:  cobra.MinimumNArgs(1),
	}
	member := memberFlag(cmd, "member", "reporting member id")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			rec, err := f.Heartbeat(cmd.Context(), orchestrator.HeartbeatRequest{
				MemberID: *member,
				Status:   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return printHeartbeat(cmd, rec)
		})
	}
	return cmd
}

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show the latest heartbeat of every member",
		Example: `  squadron team
  squadron team --within 5m`,
		Args: cobra.NoArgs,
	}
	within := cmd.Flags().Duration("within", 0, "only members seen within this duration")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.TeamStatus(cmd.Context(), orchestrator.TeamStatusRequest{Within: *within})
			if err != nil {
				return err
			}
			return printTeam(cmd, res)
		})
	}
	return cmd
}
