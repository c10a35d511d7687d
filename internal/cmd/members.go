package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/team"
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a team member in a new session",
		Long: `Deploy starts an agent in its own tmux session with a startup prompt
built from its role template and mission.

The mission comes from --prompt, or from --prompt-file ("-" reads stdin).`,
		Example: `  squadron deploy --id overseer --name Lead --role overseer --model opus --prompt "Ship the parser"
  squadron deploy --id worker-1 --name Parser --role worker --model sonnet --prompt-file task.md`,
		Args: cobra.NoArgs,
	}
	var req orchestrator.DeployRequest
	var role, promptFile string
	cmd.Flags().StringVar(&req.ID, "id", "", "team member id (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&role, "role", "", "overseer, worker or helper (required)")
	cmd.Flags().StringVar(&req.Model, "model", "", "model passed to the agent (required)")
	cmd.Flags().StringVar(&req.Prompt, "prompt", "", "mission for the member")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "read the mission from a file")
	cmd.Flags().StringVar(&req.WorkDir, "work-dir", "", "working directory for the session")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
	for _, name := range []string{"id", "name", "role", "model"} {
		_ = cmd.MarkFlagRequired(name)
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		req.Role = team.Role(role)
		if promptFile != "" {
			prompt, err := readPromptFile(cmd, promptFile)
			if err != nil {
				return err
			}
			req.Prompt = prompt
		}
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Deploy(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emit(cmd, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deployed %s in session %s\nAttach with: tmux attach -t %s\n",
					render(cmd, runningStyle, res.MemberID), res.SessionName, res.SessionName)
				return err
			})
		})
	}
	return cmd
}

func readPromptFile(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <member-id>",
		Short: "Show a team member's record and live status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacade(cmd, func(f *orchestrator.Facade) error {
				res, err := f.Status(cmd.Context(), orchestrator.MemberRequest{MemberID: args[0]})
				if err != nil {
					return err
				}
				return printMember(cmd, res)
			})
		},
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List team members",
		Args:    cobra.NoArgs,
	}
	active := cmd.Flags().Bool("active", false, "only members whose session is running")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			list := f.List
			if *active {
				list = f.ActiveMembers
			}
			res, err := list(cmd.Context())
			if err != nil {
				return err
			}
			return printMembers(cmd, res)
		})
	}
	return cmd
}

func newScreenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen <member-id>",
		Short: "Print the recent terminal output of a team member",
		Args:  cobra.ExactArgs(1),
	}
	lines := cmd.Flags().IntP("lines", "n", 0, "number of lines (default from screen.default_lines)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Screen(cmd.Context(), orchestrator.ScreenRequest{MemberID: args[0], Lines: *lines})
			if err != nil {
				return err
			}
			return emit(cmd, res, func(w io.Writer) error {
				if !res.Running {
					fmt.Fprintln(w, render(cmd, stoppedStyle, "(session not running)"))
				}
				_, err := fmt.Fprintln(w, res.Content)
				return err
			})
		})
	}
	return cmd
}

func newInterveneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intervene <member-id> <text>",
		Short: "Type text into a team member's terminal",
		Args:  cobra.MinimumNArgs(2),
	}
	noSubmit := cmd.Flags().Bool("no-submit", false, "type the text without pressing Enter")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		submit := !*noSubmit
		return withFacade(cmd, func(f *orchestrator.Facade) error {
			res, err := f.Intervene(cmd.Context(), orchestrator.InterveneRequest{
				MemberID:   args[0],
				Text:       strings.Join(args[1:], " "),
				AutoSubmit: &submit,
			})
			if err != nil {
				return err
			}
			return emit(cmd, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Sent input to %s\n", res.MemberID)
				return err
			})
		})
	}
	return cmd
}

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <member-id>",
		Short: "Terminate a team member's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFacade(cmd, func(f *orchestrator.Facade) error {
				res, err := f.Kill(cmd.Context(), orchestrator.MemberRequest{MemberID: args[0]})
				if err != nil {
					return err
				}
				return emit(cmd, res, func(w io.Writer) error {
					msg := "Terminated " + res.MemberID
					if !res.HadSession {
						msg += " (session was already gone)"
					}
					if _, err := fmt.Fprintln(w, msg); err != nil {
						return err
					}
					if len(res.ReleasedClaims) > 0 {
						_, err := fmt.Fprintf(w, "Released claims: %s\n", strings.Join(res.ReleasedClaims, ", "))
						return err
					}
					return nil
				})
			})
		},
	}
}
