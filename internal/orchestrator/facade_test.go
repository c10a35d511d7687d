package orchestrator_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Iron-Ham/squadron/internal/config"
	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/session/sessiontest"
	"github.com/Iron-Ham/squadron/internal/team"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "squadron.db")
	cfg.Agent.Command = "claude --dangerously-skip-permissions"
	cfg.Session.QueryTimeoutMs = 200
	cfg.Session.KillGraceMs = 0
	cfg.Screen.DefaultLines = 2
	cfg.Screen.MaxLines = 3
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) (*orchestrator.App, *sessiontest.FakeManager) {
	t.Helper()
	fake := sessiontest.NewFakeManager()
	app, err := orchestrator.NewWithComponents(context.Background(), cfg, nil, orchestrator.Components{Sessions: fake})
	if err != nil {
		t.Fatalf("NewWithComponents() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, fake
}

func deployWorker(t *testing.T, app *orchestrator.App, id string) orchestrator.DeployResult {
	t.Helper()
	res, err := app.Deploy(context.Background(), orchestrator.DeployRequest{
		ID:     id,
		Name:   "Worker " + id,
		Role:   team.RoleWorker,
		Model:  "sonnet",
		Prompt: "Build step three.",
	})
	if err != nil {
		t.Fatalf("Deploy(%s) error = %v", id, err)
	}
	return res
}

func TestFacade_DeployStatusKill(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	app, _ := newApp(t, cfg)

	res := deployWorker(t, app, "worker-1")
	if !res.Success {
		t.Fatalf("Deploy() = %+v, want success", res)
	}
	if want := filepath.Join(filepath.Dir(cfg.Store.Path), "prompts"); filepath.Dir(res.PromptPath) != want {
		t.Errorf("PromptPath = %q, want a file in %q", res.PromptPath, want)
	}

	st, err := app.Status(ctx, orchestrator.MemberRequest{MemberID: "worker-1"})
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Running {
		t.Errorf("Status().Running = false, want true")
	}

	kill, err := app.Kill(ctx, orchestrator.MemberRequest{MemberID: "worker-1"})
	if err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if !kill.Success || !kill.HadSession {
		t.Errorf("Kill() = %+v, want success with a session", kill)
	}

	st, err = app.Status(ctx, orchestrator.MemberRequest{MemberID: "worker-1"})
	if err != nil {
		t.Fatalf("Status() after kill error = %v", err)
	}
	if st.Running {
		t.Errorf("Status().Running after kill = true, want false")
	}

	active, err := app.ActiveMembers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active.Members) != 0 {
		t.Errorf("ActiveMembers() = %+v, want none", active.Members)
	}
	all, err := app.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Members) != 1 {
		t.Errorf("List() len = %d, want 1", len(all.Members))
	}
}

func TestFacade_ClaimScenario(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, testConfig(t))

	got, err := app.Claim(ctx, orchestrator.ClaimRequest{TaskKey: "build-step-3", MemberID: "worker-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Granted || got.Owner != "worker-1" || got.TaskKey != "build-step-3" {
		t.Errorf("Claim(worker-1) = %+v, want granted to worker-1", got)
	}

	got, err = app.Claim(ctx, orchestrator.ClaimRequest{TaskKey: "build-step-3", MemberID: "worker-2"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Granted || got.Owner != "worker-1" {
		t.Errorf("Claim(worker-2) = %+v, want denied with owner worker-1", got)
	}

	_, err = app.Release(ctx, orchestrator.ClaimRequest{TaskKey: "build-step-3", MemberID: "worker-2"})
	var ownErr *errors.OwnershipError
	if !errors.As(err, &ownErr) {
		t.Errorf("Release(worker-2) error = %v, want OwnershipError", err)
	}

	active, err := app.ActiveClaims(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active.Claims) != 1 || active.Claims[0].ClaimedBy != "worker-1" {
		t.Errorf("ActiveClaims() = %+v, want worker-1's claim", active.Claims)
	}

	rel, err := app.Release(ctx, orchestrator.ClaimRequest{TaskKey: "build-step-3", MemberID: "worker-1"})
	if err != nil || !rel.Success {
		t.Errorf("Release(worker-1) = %+v, %v, want success", rel, err)
	}
}

func TestFacade_KillReleasesClaims(t *testing.T) {
	tests := []struct {
		name          string
		releaseOnKill bool
		wantReleased  int
		wantActive    int
	}{
		{"release on kill", true, 2, 0},
		{"keep claims", false, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t)
			cfg.Claims.ReleaseOnKill = tt.releaseOnKill
			app, _ := newApp(t, cfg)

			deployWorker(t, app, "worker-1")
			for _, key := range []string{"lint", "test"} {
				if _, err := app.Claim(ctx, orchestrator.ClaimRequest{TaskKey: key, MemberID: "worker-1"}); err != nil {
					t.Fatal(err)
				}
			}

			kill, err := app.Kill(ctx, orchestrator.MemberRequest{MemberID: "worker-1"})
			if err != nil {
				t.Fatal(err)
			}
			if len(kill.ReleasedClaims) != tt.wantReleased {
				t.Errorf("ReleasedClaims = %v, want %d", kill.ReleasedClaims, tt.wantReleased)
			}
			active, _ := app.ActiveClaims(ctx)
			if len(active.Claims) != tt.wantActive {
				t.Errorf("ActiveClaims() len = %d, want %d", len(active.Claims), tt.wantActive)
			}
		})
	}
}

func TestFacade_ScreenLines(t *testing.T) {
	ctx := context.Background()
	app, fake := newApp(t, testConfig(t))
	res := deployWorker(t, app, "worker-1")
	fake.SetScreen(res.SessionName, "a", "b", "c", "d", "e")

	tests := []struct {
		name  string
		lines int
		want  string
	}{
		{"default", 0, "d\ne"},
		{"explicit", 1, "e"},
		{"clamped", 50, "c\nd\ne"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Screen(ctx, orchestrator.ScreenRequest{MemberID: "worker-1", Lines: tt.lines})
			if err != nil {
				t.Fatal(err)
			}
			if got.Content != tt.want {
				t.Errorf("Screen(%d).Content = %q, want %q", tt.lines, got.Content, tt.want)
			}
		})
	}

	if _, err := app.Screen(ctx, orchestrator.ScreenRequest{MemberID: "worker-1", Lines: -1}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Screen(-1) error = %v, want ErrInvalidInput", err)
	}
}

func TestFacade_InterveneSubmitsByDefault(t *testing.T) {
	ctx := context.Background()
	app, fake := newApp(t, testConfig(t))
	res := deployWorker(t, app, "worker-1")

	out, err := app.Intervene(ctx, orchestrator.InterveneRequest{MemberID: "worker-1", Text: "run the tests"})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Success {
		t.Errorf("Intervene() = %+v, want success", out)
	}

	noSubmit := false
	if _, err := app.Intervene(ctx, orchestrator.InterveneRequest{MemberID: "worker-1", Text: "draft", AutoSubmit: &noSubmit}); err != nil {
		t.Fatal(err)
	}

	sess, _ := fake.Get(res.SessionName)
	if strings.Join(sess.Screen, "|") != "> run the tests" {
		t.Errorf("screen = %v, want only the submitted text", sess.Screen)
	}
	if len(sess.Inputs) != 2 {
		t.Errorf("Inputs = %v, want 2", sess.Inputs)
	}
}

func TestFacade_Messaging(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, testConfig(t))

	if _, err := app.Send(ctx, orchestrator.SendRequest{From: "overseer", To: "worker-1", Content: "take lint", TTLSeconds: -1}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Send(negative ttl) error = %v, want ErrInvalidInput", err)
	}
	for _, ttl := range []int{int(mailbox.MaxTTL/time.Second) + 1, math.MaxInt64 / int(time.Second), math.MaxInt} {
		if _, err := app.Send(ctx, orchestrator.SendRequest{From: "overseer", To: "worker-1", Content: "take lint", TTLSeconds: ttl}); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Send(ttl %d) error = %v, want ErrInvalidInput", ttl, err)
		}
	}

	sent, err := app.Send(ctx, orchestrator.SendRequest{From: "overseer", To: "worker-1", Content: "take lint"})
	if err != nil {
		t.Fatal(err)
	}
	if !sent.Success || sent.Message.Type != mailbox.TypeDirect {
		t.Errorf("Send() = %+v, want a direct message", sent)
	}
	if _, err := app.Broadcast(ctx, orchestrator.BroadcastRequest{From: "overseer", Content: "standup", Priority: mailbox.PriorityUrgent}); err != nil {
		t.Fatal(err)
	}

	got, err := app.Listen(ctx, orchestrator.ListenRequest{MemberID: "worker-1", ByPriority: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "standup" {
		t.Errorf("Listen() = %+v, want urgent broadcast first", got.Messages)
	}

	again, err := app.Listen(ctx, orchestrator.ListenRequest{MemberID: "worker-1"})
	if err != nil {
		t.Fatal(err)
	}
	if again.Messages == nil || len(again.Messages) != 0 {
		t.Errorf("second Listen() = %#v, want an empty non-nil list", again.Messages)
	}
}

func TestFacade_HelpRoundTrip(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, testConfig(t))

	req, err := app.RequestHelp(ctx, orchestrator.HelpRequest{From: "worker-1", Content: "where is the schema?"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Message.Priority != mailbox.PriorityHigh {
		t.Errorf("help request priority = %q, want %q", req.Message.Priority, mailbox.PriorityHigh)
	}

	resp, err := app.RespondHelp(ctx, orchestrator.HelpResponse{RequestID: req.Message.ID, From: "helper-1", Content: "internal/store"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Message.To != "worker-1" || resp.Message.ReplyTo != req.Message.ID {
		t.Errorf("RespondHelp() = %+v, want reply to worker-1", resp.Message)
	}
}

func TestFacade_TeamStatus(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, testConfig(t))

	for _, id := range []string{"worker-2", "worker-1"} {
		if _, err := app.Heartbeat(ctx, orchestrator.HeartbeatRequest{MemberID: id, Status: "busy"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := app.TeamStatus(ctx, orchestrator.TeamStatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Members) != 2 || got.Members[0].MemberID != "worker-1" {
		t.Errorf("TeamStatus() = %+v, want two records ordered by id", got.Members)
	}

	recent, err := app.TeamStatus(ctx, orchestrator.TeamStatusRequest{Within: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if len(recent.Members) != 2 {
		t.Errorf("TeamStatus(within 1h) = %+v, want both members", recent.Members)
	}

	if _, err := app.TeamStatus(ctx, orchestrator.TeamStatusRequest{Within: -time.Second}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("TeamStatus(negative) error = %v, want ErrInvalidInput", err)
	}
}

func TestNew_RedisClaims(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Claims.Backend = config.ClaimsBackendRedis
	cfg.Claims.RedisAddr = mr.Addr()
	app, _ := newApp(t, cfg)

	if _, err := app.Claim(ctx, orchestrator.ClaimRequest{TaskKey: "deploy", MemberID: "worker-1"}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists(cfg.Claims.RedisPrefix + ":owners") {
		t.Errorf("redis key %s:owners missing, want the claim stored in redis", cfg.Claims.RedisPrefix)
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Claims.Backend = config.ClaimsBackendRedis
	cfg.Claims.RedisAddr = addr

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := orchestrator.NewWithComponents(ctx, cfg, nil, orchestrator.Components{Sessions: sessiontest.NewFakeManager()}); err == nil {
		t.Error("NewWithComponents() error = nil, want unreachable redis error")
	}
}

func TestNew_BadRolesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.RolesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := orchestrator.NewWithComponents(context.Background(), cfg, nil, orchestrator.Components{Sessions: sessiontest.NewFakeManager()}); err == nil {
		t.Error("NewWithComponents() error = nil, want roles error")
	}
}
