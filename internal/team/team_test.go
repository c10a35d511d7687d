package team_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/session"
	"github.com/Iron-Ham/squadron/internal/session/sessiontest"
	"github.com/Iron-Ham/squadron/internal/store"
	"github.com/Iron-Ham/squadron/internal/team"
)

type fixture struct {
	store     *store.Store
	mgr       *sessiontest.FakeManager
	events    *event.Bus
	registry  *team.Registry
	deployer  *team.Deployer
	promptDir string
}

// newFixture builds a registry and deployer over an in-memory store. wrap,
// when set, decorates the repository the registry writes through.
func newFixture(t *testing.T, wrap func(team.Repository) team.Repository) *fixture {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	var repo team.Repository = s
	if wrap != nil {
		repo = wrap(s)
	}

	f := &fixture{
		store:     s,
		mgr:       sessiontest.NewFakeManager(),
		events:    event.NewBus(nil),
		promptDir: t.TempDir(),
	}
	f.registry = team.NewRegistry(repo, f.mgr,
		team.WithEventBus(f.events),
		team.WithHandleOptions(session.WithQueryTimeout(50*time.Millisecond), session.WithKillGrace(0)),
	)
	f.deployer = team.NewDeployer(f.registry, nil, team.DeployerConfig{
		AgentCommand:  []string{"claude", "--dangerously-skip-permissions"},
		ModelFlag:     "--model",
		PromptDir:     f.promptDir,
		SessionPrefix: "sq",
		Width:         200,
		Height:        50,
	})
	return f
}

func workerRequest(id string) team.DeployRequest {
	return team.DeployRequest{
		ID:     id,
		Name:   "Worker " + id,
		Role:   team.RoleWorker,
		Model:  "sonnet",
		Prompt: "Implement the build pipeline.",
	}
}

func promptFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDeployStatusKillScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if !res.Success || res.MemberID != "worker-1" || res.SessionName != "sq-worker-1" {
		t.Errorf("Deploy() = %+v, want success for worker-1 in sq-worker-1", res)
	}

	st, err := f.registry.Get(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !st.Running || st.Status != team.StatusRunning {
		t.Errorf("Get() running = %v, status = %q, want running", st.Running, st.Status)
	}
	if st.PID == 0 {
		t.Error("PID = 0, want the session's pid")
	}

	kill, err := f.registry.Kill(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if !kill.HadSession {
		t.Error("Kill().HadSession = false, want true")
	}

	st, err = f.registry.Get(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Get() after kill error = %v", err)
	}
	if st.Running || st.Status != team.StatusTerminated {
		t.Errorf("Get() after kill running = %v, status = %q, want terminated", st.Running, st.Status)
	}
}

func TestDeploy_StartupCommandAndPrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	res, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if err != nil {
		t.Fatal(err)
	}

	sess, ok := f.mgr.Get(res.SessionName)
	if !ok {
		t.Fatalf("session %s not spawned", res.SessionName)
	}
	cmd := sess.Options.Command
	for _, want := range []string{"claude", "--dangerously-skip-permissions", "--model", "sonnet", res.PromptPath} {
		if !strings.Contains(cmd, want) {
			t.Errorf("startup command %q missing %q", cmd, want)
		}
	}
	foundEnv := false
	for _, kv := range sess.Options.Env {
		if kv == team.MemberIDEnv+"=worker-1" {
			foundEnv = true
		}
	}
	if !foundEnv {
		t.Errorf("Env = %v, want %s=worker-1", sess.Options.Env, team.MemberIDEnv)
	}

	data, err := os.ReadFile(res.PromptPath)
	if err != nil {
		t.Fatalf("read prompt: %v", err)
	}
	prompt := string(data)
	for _, want := range []string{"Worker: Worker worker-1", `"worker-1"`, "Release the claim", "Implement the build pipeline."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	m, err := f.store.GetMember(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if m.PromptRef != res.PromptPath {
		t.Errorf("PromptRef = %q, want %q", m.PromptRef, res.PromptPath)
	}
}

func TestDeploy_SpawnFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.mgr.SpawnErr = fmt.Errorf("out of ptys")

	_, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	var spawnErr *errors.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Deploy() error = %v, want SpawnError", err)
	}
	if spawnErr.MemberID != "worker-1" {
		t.Errorf("SpawnError.MemberID = %q, want %q", spawnErr.MemberID, "worker-1")
	}

	list, err := f.registry.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %+v, want empty", list)
	}
	if files := promptFiles(t, f.promptDir); len(files) != 0 {
		t.Errorf("prompt files = %v, want none", files)
	}
}

type failingUpserts struct {
	team.Repository
}

func (failingUpserts) UpsertMember(context.Context, team.Member) error {
	return fmt.Errorf("disk full")
}

func TestDeploy_RecordFailureTerminatesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(r team.Repository) team.Repository {
		return failingUpserts{Repository: r}
	})

	if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err == nil {
		t.Fatal("Deploy() error = nil, want record failure")
	}
	if names := f.mgr.Names(); len(names) != 0 {
		t.Errorf("sessions = %v, want none after rollback", names)
	}
	if files := promptFiles(t, f.promptDir); len(files) != 0 {
		t.Errorf("prompt files = %v, want none", files)
	}
}

func TestDeploy_RejectsActiveID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err != nil {
		t.Fatal(err)
	}
	_, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if !errors.Is(err, errors.ErrMemberActive) {
		t.Errorf("second Deploy() error = %v, want ErrMemberActive", err)
	}
	if f.mgr.SpawnCount != 1 {
		t.Errorf("SpawnCount = %d, want 1", f.mgr.SpawnCount)
	}
}

func TestDeploy_ConcurrentSameID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Errorf("successful deploys = %d, want 1", got)
	}
	list, _ := f.registry.List(ctx)
	if len(list) != 1 {
		t.Errorf("List() len = %d, want 1", len(list))
	}
}

func TestDeploy_RedeployAfterKill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.registry.Kill(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err != nil {
		t.Fatalf("redeploy error = %v", err)
	}

	list, _ := f.registry.List(ctx)
	if len(list) != 1 || !list[0].Running {
		t.Errorf("List() = %+v, want one running worker-1", list)
	}
}

func TestDeploy_Validation(t *testing.T) {
	f := newFixture(t, nil)
	valid := workerRequest("worker-1")

	tests := []struct {
		name   string
		mutate func(*team.DeployRequest)
	}{
		{"missing id", func(r *team.DeployRequest) { r.ID = "" }},
		{"malformed id", func(r *team.DeployRequest) { r.ID = "worker 1" }},
		{"reserved id", func(r *team.DeployRequest) { r.ID = "broadcast" }},
		{"missing name", func(r *team.DeployRequest) { r.Name = "" }},
		{"missing role", func(r *team.DeployRequest) { r.Role = "" }},
		{"unknown role", func(r *team.DeployRequest) { r.Role = "boss" }},
		{"missing model", func(r *team.DeployRequest) { r.Model = " " }},
		{"missing prompt", func(r *team.DeployRequest) { r.Prompt = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.deployer.Deploy(context.Background(), req)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Deploy() error = %v, want ErrInvalidInput", err)
			}
		})
	}
	if f.mgr.SpawnCount != 0 {
		t.Errorf("SpawnCount = %d, want 0", f.mgr.SpawnCount)
	}
}

func TestRegistry_ReconcilesExitedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	var exited []string
	f.events.Subscribe(event.TypeMemberExited, func(e event.Event) {
		exited = append(exited, e.(event.MemberExitedEvent).MemberID)
	})

	res, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if err != nil {
		t.Fatal(err)
	}
	f.mgr.Exit(res.SessionName)

	st, err := f.registry.Get(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Running || st.Status != team.StatusExited {
		t.Errorf("Get() = running %v status %q, want exited", st.Running, st.Status)
	}
	stored, _ := f.store.GetMember(ctx, "worker-1")
	if stored.Status != team.StatusExited {
		t.Errorf("stored status = %q, want %q", stored.Status, team.StatusExited)
	}

	// A second read does not report the exit again.
	if _, err := f.registry.Get(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	if len(exited) != 1 {
		t.Errorf("member.exited events = %v, want exactly one", exited)
	}
}

func TestRegistry_UnreachableSessionCountsAsDead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	if _, err := f.deployer.Deploy(ctx, workerRequest("worker-1")); err != nil {
		t.Fatal(err)
	}

	f.mgr.SetHang(true)
	start := time.Now()
	st, err := f.registry.Get(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Running {
		t.Error("Get().Running = true for hung session, want false")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Get() took %v, want bounded by the query timeout", elapsed)
	}

	// Once the session answers again it is running.
	f.mgr.SetHang(false)
	st, _ = f.registry.Get(ctx, "worker-1")
	if !st.Running || st.Status != team.StatusRunning {
		t.Errorf("Get() after recovery = running %v status %q, want running", st.Running, st.Status)
	}
}

func TestRegistry_ListOrderAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	var tick atomic.Int64
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.registry = team.NewRegistry(f.store, f.mgr, team.WithClock(func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}))
	f.deployer = team.NewDeployer(f.registry, nil, team.DeployerConfig{
		AgentCommand: []string{"claude"},
		PromptDir:    f.promptDir,
	})

	for _, id := range []string{"overseer", "worker-2", "helper-1"} {
		req := workerRequest(id)
		if _, err := f.deployer.Deploy(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	list, err := f.registry.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, m := range list {
		got = append(got, m.ID)
	}
	if strings.Join(got, ",") != "overseer,worker-2,helper-1" {
		t.Errorf("List() order = %v, want deployment order", got)
	}

	if _, err := f.registry.Get(ctx, "ghost"); !errors.Is(err, &errors.NotFoundError{}) {
		t.Errorf("Get(ghost) error = %v, want NotFoundError", err)
	}
	if _, err := f.registry.Kill(ctx, "ghost"); !errors.Is(err, &errors.NotFoundError{}) {
		t.Errorf("Kill(ghost) error = %v, want NotFoundError", err)
	}
}

func TestRegistry_ScreenAndIntervene(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	res, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if err != nil {
		t.Fatal(err)
	}
	f.mgr.SetScreen(res.SessionName, "line 1", "line 2", "line 3")

	screen, err := f.registry.Screen(ctx, "worker-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !screen.Running || screen.Content != "line 2\nline 3" {
		t.Errorf("Screen() = %+v, want last two lines", screen)
	}

	if err := f.registry.Intervene(ctx, "worker-1", "focus on tests", true); err != nil {
		t.Fatalf("Intervene() error = %v", err)
	}
	sess, _ := f.mgr.Get(res.SessionName)
	if len(sess.Inputs) != 1 || sess.Inputs[0] != "focus on tests" {
		t.Errorf("Inputs = %v, want [focus on tests]", sess.Inputs)
	}

	if err := f.registry.Intervene(ctx, "worker-1", "  ", true); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Intervene(blank) error = %v, want ErrInvalidInput", err)
	}

	if _, err := f.registry.Kill(ctx, "worker-1"); err != nil {
		t.Fatal(err)
	}
	screen, err = f.registry.Screen(ctx, "worker-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if screen.Running || screen.Content != "" {
		t.Errorf("Screen() after kill = %+v, want empty and not running", screen)
	}

	err = f.registry.Intervene(ctx, "worker-1", "hello?", true)
	var injErr *errors.InjectionError
	if !errors.As(err, &injErr) {
		t.Errorf("Intervene() after kill error = %v, want InjectionError", err)
	}
}

func TestRegistry_KillDeadMemberSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	res, err := f.deployer.Deploy(ctx, workerRequest("worker-1"))
	if err != nil {
		t.Fatal(err)
	}
	f.mgr.Exit(res.SessionName)

	kill, err := f.registry.Kill(ctx, "worker-1")
	if err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if kill.HadSession {
		t.Error("Kill().HadSession = true, want false for an exited session")
	}
	st, _ := f.registry.Get(ctx, "worker-1")
	if st.Status != team.StatusTerminated {
		t.Errorf("Status = %q, want %q", st.Status, team.StatusTerminated)
	}

	if _, err := f.registry.Kill(ctx, "worker-1"); err != nil {
		t.Errorf("second Kill() error = %v, want nil", err)
	}
}

func TestSessionName(t *testing.T) {
	tests := []struct {
		prefix, id, want string
	}{
		{"squadron", "worker-1", "squadron-worker-1"},
		{"squadron", "a.b:c", "squadron-a_b_c"},
		{"", "helper", "helper"},
	}
	for _, tt := range tests {
		if got := team.SessionName(tt.prefix, tt.id); got != tt.want {
			t.Errorf("SessionName(%q, %q) = %q, want %q", tt.prefix, tt.id, got, tt.want)
		}
	}
}
