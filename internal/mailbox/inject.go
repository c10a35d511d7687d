package mailbox

import (
	"fmt"
	"strings"
)

// FormatForPrompt renders messages as a block suitable for typing into a
// member's terminal. Messages are grouped by type, in order of first
// appearance, keeping their order within each group. Help requests show
// their ID so the reader can respond to them.
//
// Returns an empty string if there are no messages.
func FormatForPrompt(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	groups := make(map[MessageType][]Message)
	var typeOrder []MessageType
	for _, msg := range messages {
		if _, exists := groups[msg.Type]; !exists {
			typeOrder = append(typeOrder, msg.Type)
		}
		groups[msg.Type] = append(groups[msg.Type], msg)
	}

	var b strings.Builder
	b.WriteString("<team-messages>\n")

	for i, mt := range typeOrder {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]\n", strings.ToUpper(string(mt)))
		for _, msg := range groups[mt] {
			fmt.Fprintf(&b, "  From: %s", msg.From)
			if msg.Priority != "" && msg.Priority != PriorityNormal {
				fmt.Fprintf(&b, " (%s)", msg.Priority)
			}
			b.WriteString("\n")
			switch {
			case msg.Type == TypeHelpRequest:
				fmt.Fprintf(&b, "  Request ID: %s\n", msg.ID)
			case msg.ReplyTo != "":
				fmt.Fprintf(&b, "  In reply to: %s\n", msg.ReplyTo)
			}
			for _, line := range strings.Split(strings.TrimRight(msg.Content, "\n"), "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("</team-messages>")
	return b.String()
}
