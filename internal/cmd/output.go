package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/heartbeat"
	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/team"
	"github.com/Iron-Ham/squadron/internal/util"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render applies style only when writing to a terminal.
func render(cmd *cobra.Command, style lipgloss.Style, s string) string {
	if !isTerminal(cmd.OutOrStdout()) {
		return s
	}
	return style.Render(s)
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit prints v as JSON when --json is set, otherwise calls text.
func emit(cmd *cobra.Command, v any, text func(io.Writer) error) error {
	if wantJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(cmd.OutOrStdout())
}

func newTable(cmd *cobra.Command, headers ...string) *table.Table {
	styled := isTerminal(cmd.OutOrStdout())
	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow && styled {
				return s.Inherit(headerStyle)
			}
			return s
		})
}

func statusText(cmd *cobra.Command, m team.MemberStatus) string {
	if m.Running {
		return render(cmd, runningStyle, string(team.StatusRunning))
	}
	return render(cmd, stoppedStyle, string(m.Status))
}

func printMembers(cmd *cobra.Command, res orchestrator.ListResult) error {
	return emit(cmd, res, func(w io.Writer) error {
		if len(res.Members) == 0 {
			_, err := fmt.Fprintln(w, "No team members.")
			return err
		}
		t := newTable(cmd, "ID", "NAME", "ROLE", "MODEL", "STATUS", "SESSION", "STARTED")
		for _, m := range res.Members {
			t.Row(m.ID, util.Truncate(m.Name, 24), string(m.Role), m.Model,
				statusText(cmd, m), m.SessionName, m.StartedAt.Local().Format(time.DateTime))
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}

func printMember(cmd *cobra.Command, m team.MemberStatus) error {
	return emit(cmd, m, func(w io.Writer) error {
		rows := [][2]string{
			{"ID", m.ID},
			{"Name", m.Name},
			{"Role", string(m.Role)},
			{"Model", m.Model},
			{"Status", statusText(cmd, m)},
			{"Session", m.SessionName},
			{"Prompt", m.PromptRef},
			{"Started", m.StartedAt.Local().Format(time.DateTime)},
		}
		if m.PID > 0 {
			rows = append(rows, [2]string{"PID", fmt.Sprint(m.PID)})
		}
		if m.WorkDir != "" {
			rows = append(rows, [2]string{"Work dir", m.WorkDir})
		}
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%s %s\n", render(cmd, labelStyle, fmt.Sprintf("%-9s", r[0]+":")), r[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

func printMessage(cmd *cobra.Command, res orchestrator.MessageResult) error {
	return emit(cmd, res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Sent %s %s to %s\n", res.Message.Type, res.Message.ID, res.Message.To)
		return err
	})
}

// printMessages renders messages in one of the listen formats.
func printMessages(cmd *cobra.Command, memberID string, msgs []mailbox.Message, format string) error {
	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		return writeJSON(w, orchestrator.ListenResult{MemberID: memberID, Messages: msgs})
	case formatPrompt:
		if block := mailbox.FormatForPrompt(msgs); block != "" {
			_, err := fmt.Fprintln(w, block)
			return err
		}
		return nil
	default:
		for _, m := range msgs {
			if err := printMessageLine(cmd, w, m); err != nil {
				return err
			}
		}
		return nil
	}
}

func printMessageLine(cmd *cobra.Command, w io.Writer, m mailbox.Message) error {
	head := fmt.Sprintf("[%s] %s %s", m.CreatedAt.Local().Format(time.TimeOnly), m.From, m.Type)
	if m.Priority == mailbox.PriorityHigh || m.Priority == mailbox.PriorityUrgent {
		head += " " + render(cmd, warnStyle, strings.ToUpper(string(m.Priority)))
	}
	if m.Type == mailbox.TypeHelpRequest {
		head += " (" + m.ID + ")"
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", render(cmd, labelStyle, head), m.Content)
	return err
}

func printClaims(cmd *cobra.Command, res orchestrator.ClaimsResult) error {
	return emit(cmd, res, func(w io.Writer) error {
		if len(res.Claims) == 0 {
			_, err := fmt.Fprintln(w, "No active claims.")
			return err
		}
		t := newTable(cmd, "TASK", "OWNER", "CLAIMED")
		for _, c := range res.Claims {
			t.Row(c.TaskKey, c.ClaimedBy, c.ClaimedAt.Local().Format(time.DateTime))
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}

func claimLine(c claims.Claim) string {
	return fmt.Sprintf("%s held by %s since %s", c.TaskKey, c.ClaimedBy, c.ClaimedAt.Local().Format(time.DateTime))
}

func printTeam(cmd *cobra.Command, res orchestrator.TeamStatusResult) error {
	return emit(cmd, res, func(w io.Writer) error {
		if len(res.Members) == 0 {
			_, err := fmt.Fprintln(w, "No heartbeats.")
			return err
		}
		t := newTable(cmd, "MEMBER", "LAST SEEN", "STATUS")
		for _, r := range res.Members {
			t.Row(r.MemberID, r.LastSeenAt.Local().Format(time.DateTime), util.Truncate(r.LastStatus, 60))
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	})
}

func printHeartbeat(cmd *cobra.Command, r heartbeat.Record) error {
	return emit(cmd, r, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Heartbeat recorded for %s at %s\n", r.MemberID, r.LastSeenAt.Local().Format(time.TimeOnly))
		return err
	})
}
