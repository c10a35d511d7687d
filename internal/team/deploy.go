package team

import (
	"context"
	"os"
	"strings"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/session"
)

// MemberIDEnv is set in every member's session to its team member id.
const MemberIDEnv = "SQUADRON_MEMBER_ID"

// DeployerConfig describes how member sessions are launched.
type DeployerConfig struct {
	// AgentCommand is the agent program and its fixed flags.
	AgentCommand []string
	// ModelFlag passes the model to the agent, e.g. "--model".
	// Empty means the model is not passed.
	ModelFlag string
	// PromptDir is where startup prompts are written.
	PromptDir string
	// WorkDir is the default working directory of new sessions.
	WorkDir string
	// SessionPrefix is prepended to every session name.
	SessionPrefix string
	// Env holds extra KEY=VALUE pairs for every session.
	Env []string

	Width        int
	Height       int
	HistoryLimit int
}

// DeployRequest describes a member to deploy.
type DeployRequest struct {
	ID      string `json:"team_member_id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	WorkDir string `json:"work_dir,omitempty"`
}

// DeployResult is returned by a successful deploy.
type DeployResult struct {
	Success     bool   `json:"success"`
	MemberID    string `json:"team_member_id"`
	SessionName string `json:"session_name"`
	PromptPath  string `json:"prompt_path"`
}

// Deployer creates team members: it builds the startup payload, spawns the
// session and records the member. Either both the session and the record
// exist afterwards or neither does.
type Deployer struct {
	registry *Registry
	roles    Roles
	cfg      DeployerConfig
}

// NewDeployer creates a Deployer that records members in registry.
// A nil roles uses DefaultRoles.
func NewDeployer(registry *Registry, roles Roles, cfg DeployerConfig) *Deployer {
	if roles == nil {
		roles = DefaultRoles()
	}
	return &Deployer{registry: registry, roles: roles, cfg: cfg}
}

// SessionName returns the session name used for member id under prefix.
// Characters tmux treats as target separators are replaced.
func SessionName(prefix, id string) string {
	name := strings.NewReplacer(".", "_", ":", "_").Replace(id)
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}

// Deploy starts a new member. It fails with *errors.ValidationError on bad
// input, *errors.AlreadyExistsError when the id is already running, and
// *errors.SpawnError when the session cannot be created. A member that
// exited or was killed can be deployed again under the same id.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	if err := validateDeploy(req); err != nil {
		return DeployResult{}, err
	}

	r := d.registry
	unlock := r.locks.Lock(req.ID)
	defer unlock()

	log := r.logger.WithMember(req.ID)

	existing, err := r.repo.GetMember(ctx, req.ID)
	switch {
	case err == nil:
		if st := r.reconcile(ctx, existing); st.Running {
			return DeployResult{}, errors.NewAlreadyExistsError("team member", req.ID).WithCause(errors.ErrMemberActive)
		}
		log.Info("redeploying member", "previous_status", string(existing.Status))
	case !errors.Is(err, &errors.NotFoundError{}):
		return DeployResult{}, errors.Wrapf(err, "look up member %s", req.ID)
	}

	now := r.now()
	m := Member{
		ID:          req.ID,
		Name:        req.Name,
		Role:        req.Role,
		Model:       req.Model,
		SessionName: SessionName(d.cfg.SessionPrefix, req.ID),
		WorkDir:     req.WorkDir,
		Status:      StatusRunning,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if m.WorkDir == "" {
		m.WorkDir = d.cfg.WorkDir
	}

	argv := append([]string(nil), d.cfg.AgentCommand...)
	if d.cfg.ModelFlag != "" {
		argv = append(argv, d.cfg.ModelFlag, req.Model)
	}

	spawned, err := session.Spawn(ctx, r.mgr, session.Spec{
		Name:         m.SessionName,
		Argv:         argv,
		Prompt:       d.roles.BuildPrompt(m, req.Prompt),
		PromptDir:    d.cfg.PromptDir,
		WorkDir:      m.WorkDir,
		Env:          append(append([]string(nil), d.cfg.Env...), MemberIDEnv+"="+m.ID),
		Width:        d.cfg.Width,
		Height:       d.cfg.Height,
		HistoryLimit: d.cfg.HistoryLimit,
	}, r.handleOpts...)
	if err != nil {
		var spawnErr *errors.SpawnError
		if errors.As(err, &spawnErr) {
			spawnErr.WithMemberID(m.ID)
		}
		log.Warn("spawn failed", "error", err.Error())
		return DeployResult{}, err
	}

	m.PromptRef = spawned.PromptPath
	m.PID = spawned.Handle.PID(ctx)

	if err := r.repo.UpsertMember(context.WithoutCancel(ctx), m); err != nil {
		// No record means no member: take the session down with it.
		spawned.Handle.Terminate(context.WithoutCancel(ctx))
		_ = os.Remove(spawned.PromptPath)
		return DeployResult{}, errors.Wrapf(err, "record member %s", m.ID)
	}

	log.Info("member deployed",
		"role", string(m.Role),
		"model", m.Model,
		"session", m.SessionName,
		"pid", m.PID,
	)
	r.events.Publish(event.NewMemberDeployedEvent(m.ID, m.Name, string(m.Role), m.Model, m.SessionName))

	return DeployResult{
		Success:     true,
		MemberID:    m.ID,
		SessionName: m.SessionName,
		PromptPath:  spawned.PromptPath,
	}, nil
}

func validateDeploy(req DeployRequest) error {
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return errors.NewValidationError("name is required").WithField("name")
	}
	if req.Role == "" {
		return errors.NewValidationError("role is required").WithField("role")
	}
	if !req.Role.IsValid() {
		return errors.NewValidationError("unknown role").WithField("role").WithValue(req.Role)
	}
	if strings.TrimSpace(req.Model) == "" {
		return errors.NewValidationError("model is required").WithField("model")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.NewValidationError("prompt is required").WithField("prompt")
	}
	return nil
}
