package mailbox

import (
	"strings"
	"testing"
)

func TestFormatForPrompt_Empty(t *testing.T) {
	if got := FormatForPrompt(nil); got != "" {
		t.Errorf("FormatForPrompt(nil) = %q, want empty", got)
	}
}

func TestFormatForPrompt(t *testing.T) {
	msgs := []Message{
		{ID: "m1", From: "overseer", Type: TypeDirect, Priority: PriorityNormal, Content: "take build-step-3"},
		{ID: "req-1", From: "worker-2", Type: TypeHelpRequest, Priority: PriorityHigh, Content: "stuck on\nmigrations"},
		{ID: "m3", From: "overseer", Type: TypeDirect, Priority: PriorityUrgent, Content: "then deploy"},
		{ID: "m4", From: "helper-1", Type: TypeHelpResponse, Priority: PriorityNormal, Content: "see docs", ReplyTo: "req-0"},
	}

	got := FormatForPrompt(msgs)

	want := strings.Join([]string{
		"<team-messages>",
		"[DIRECT]",
		"  From: overseer",
		"  take build-step-3",
		"",
		"  From: overseer (urgent)",
		"  then deploy",
		"",
		"",
		"[HELP_REQUEST]",
		"  From: worker-2 (high)",
		"  Request ID: req-1",
		"  stuck on",
		"  migrations",
		"",
		"",
		"[HELP_RESPONSE]",
		"  From: helper-1",
		"  In reply to: req-0",
		"  see docs",
		"",
		"</team-messages>",
	}, "\n")
	if got != want {
		t.Errorf("FormatForPrompt() =\n%s\nwant\n%s", got, want)
	}
}

func TestPriority_Rank(t *testing.T) {
	tests := []struct {
		p    Priority
		want int
	}{
		{PriorityLow, 0},
		{PriorityNormal, 1},
		{PriorityHigh, 2},
		{PriorityUrgent, 3},
		{Priority(""), 1},
	}
	for _, tt := range tests {
		if got := tt.p.Rank(); got != tt.want {
			t.Errorf("Priority(%q).Rank() = %d, want %d", tt.p, got, tt.want)
		}
	}
}
