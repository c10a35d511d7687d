package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/util"
)

func memberColumns(width int) []table.Column {
	nameWidth := 20
	if width > 100 {
		nameWidth = width - 80
	}
	return []table.Column{
		{Title: "ID", Width: 16},
		{Title: "Name", Width: nameWidth},
		{Title: "Role", Width: 9},
		{Title: "Model", Width: 10},
		{Title: "Status", Width: 11},
		{Title: "Uptime", Width: 9},
	}
}

func memberRows(res orchestrator.ListResult) []table.Row {
	rows := make([]table.Row, 0, len(res.Members))
	for _, m := range res.Members {
		status := string(m.Status)
		if m.Running {
			status = "running"
		}
		uptime := "-"
		if m.Running {
			uptime = formatAge(time.Since(m.StartedAt))
		}
		rows = append(rows, table.Row{
			m.ID,
			util.Truncate(m.Name, 40),
			string(m.Role),
			m.Model,
			status,
			uptime,
		})
	}
	return rows
}

// formatAge renders d coarsely: seconds, minutes or hours.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	running := 0
	for _, mem := range m.snap.members.Members {
		if mem.Running {
			running++
		}
	}
	header := titleStyle.Render("squadron top") + "  " + mutedStyle.Render(fmt.Sprintf(
		"%d members, %d running, %d claims", len(m.snap.members.Members), running, len(m.snap.claims.Claims)))
	if !m.snap.at.IsZero() {
		header += mutedStyle.Render("  updated " + m.snap.at.Format("15:04:05"))
	}
	b.WriteString(header + "\n\n")

	b.WriteString(panelStyle.Render(panelTitleStyle.Render("Members") + "\n" + m.membersView()))
	b.WriteString("\n")

	side := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(panelTitleStyle.Render("Claims")+"\n"+m.claimsView()),
		" ",
		panelStyle.Render(panelTitleStyle.Render("Heartbeats")+"\n"+m.heartbeatsView()),
	)
	b.WriteString(side + "\n")

	if m.screen != nil {
		title := "Screen: " + m.screen.MemberID
		content := m.screen.Content
		if !m.screen.Running {
			content = mutedStyle.Render("(not running)")
		}
		b.WriteString(panelStyle.Render(panelTitleStyle.Render(title) + "\n" + content))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}

	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) membersView() string {
	if len(m.snap.members.Members) == 0 {
		return mutedStyle.Render("no members deployed")
	}
	return m.members.View() + "\n" + m.legend()
}

// legend colors the status of the selected member below the table.
func (m Model) legend() string {
	idx := m.members.Cursor()
	members := m.snap.members.Members
	if idx < 0 || idx >= len(members) {
		return ""
	}
	sel := members[idx]
	status := string(sel.Status)
	if sel.Running {
		status = "running"
	}
	line := fmt.Sprintf("%s  %s  session %s", sel.ID, statusStyle(string(sel.Status), sel.Running).Render(status), sel.SessionName)
	if sel.PID > 0 {
		line += fmt.Sprintf("  pid %d", sel.PID)
	}
	return mutedStyle.Render("selected: ") + line
}

func (m Model) claimsView() string {
	claims := m.snap.claims.Claims
	if len(claims) == 0 {
		return mutedStyle.Render("no active claims")
	}
	lines := make([]string, 0, len(claims))
	for _, c := range claims {
		lines = append(lines, fmt.Sprintf("%-24s %s %s",
			util.Truncate(c.TaskKey, 24), c.ClaimedBy,
			mutedStyle.Render(formatAge(time.Since(c.ClaimedAt))+" ago")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) heartbeatsView() string {
	records := m.snap.team.Members
	if len(records) == 0 {
		return mutedStyle.Render("no heartbeats yet")
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%-16s %s %s",
			r.MemberID, util.Truncate(r.LastStatus, 32),
			mutedStyle.Render(formatAge(time.Since(r.LastSeenAt))+" ago")))
	}
	return strings.Join(lines, "\n")
}

func (m Model) helpView() string {
	bindings := []struct{ key, desc string }{
		{keys.Up.Help().Key, keys.Up.Help().Desc},
		{keys.Down.Help().Key, keys.Down.Help().Desc},
		{keys.Screen.Help().Key, keys.Screen.Help().Desc},
		{keys.Refresh.Help().Key, keys.Refresh.Help().Desc},
		{keys.Quit.Help().Key, keys.Quit.Help().Desc},
	}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = helpKeyStyle.Render(kb.key) + " " + mutedStyle.Render(kb.desc)
	}
	return strings.Join(parts, "  ")
}
