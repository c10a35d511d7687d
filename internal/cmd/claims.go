package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

// errClaimDenied makes a lost claim race exit non-zero.
var errClaimDenied = errors.New("task already claimed")

func newClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim <task-key>",
		Short: "Claim a task before working on it",
		Long: `Claim records that the member owns the task. Exactly one member can hold
an active claim on a task key; claiming a task someone else holds reports
the current owner and exits with status 1.`,
		Args: cobra.ExactArgs(1),
	}
	member := memberFlag(cmd, "member", "claiming member id")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Claim(cmd.Context(), orchestrator.ClaimRequest{TaskKey: args[0], MemberID: *member})
			if err != nil {
				return err
			}
			if err := emit(cmd, res, func(w io.Writer) error {
				if res.Granted {
					_, err := fmt.Fprintf(w, "Claimed %s\n", render(cmd, runningStyle, res.TaskKey))
					return err
				}
				_, err := fmt.Fprintf(w, "%s is already claimed by %s\n", res.TaskKey, render(cmd, warnStyle, res.Owner))
				return err
			}); err != nil {
				return err
			}
			if !res.Granted {
				return errClaimDenied
			}
			return nil
		})
	}
	return cmd
}

func newReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release <task-key>",
		Short: "Release a task claim",
		Args:  cobra.ExactArgs(1),
	}
	member := memberFlag(cmd, "member", "releasing member id")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Release(cmd.Context(), orchestrator.ClaimRequest{TaskKey: args[0], MemberID: *member})
			if err != nil {
				return err
			}
			return emit(cmd, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Released %s\n", claimLine(res.Claim))
				return err
			})
		})
	}
	return cmd
}

func newClaimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claims",
		Short: "List active task claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacade(cmd, func(f *orchestrator.Facade) error {
				res, err := f.ActiveClaims(cmd.Context())
				if err != nil {
					return err
				}
				return printClaims(cmd, res)
			})
		},
	}
}
