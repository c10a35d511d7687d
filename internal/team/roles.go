package team

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRolesYAML []byte

// RoleTemplate is the bootstrap text for one role.
type RoleTemplate struct {
	Title        string `yaml:"title"`
	Instructions string `yaml:"instructions"`
}

// Roles maps each role to its bootstrap template.
type Roles map[Role]RoleTemplate

// DefaultRoles returns the built-in role templates.
func DefaultRoles() Roles {
	roles, err := ParseRoles(defaultRolesYAML)
	if err != nil {
		panic(fmt.Sprintf("team: invalid embedded roles: %v", err))
	}
	return roles
}

// ParseRoles decodes role templates from YAML. Unknown role names are
// rejected.
func ParseRoles(data []byte) (Roles, error) {
	var raw map[string]RoleTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	roles := make(Roles, len(raw))
	for name, tmpl := range raw {
		role := Role(name)
		if !role.IsValid() {
			return nil, fmt.Errorf("parse roles: unknown role %q", name)
		}
		roles[role] = tmpl
	}
	return roles, nil
}

// LoadRoles reads role templates from path and merges them over the
// built-in ones. An empty path returns the built-in templates.
func LoadRoles(path string) (Roles, error) {
	roles := DefaultRoles()
	if path == "" {
		return roles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	overrides, err := ParseRoles(data)
	if err != nil {
		return nil, err
	}
	for role, tmpl := range overrides {
		roles[role] = tmpl
	}
	return roles, nil
}

// BuildPrompt assembles the startup payload for m: role bootstrap,
// communication instructions naming the member, then the caller's prompt.
func (r Roles) BuildPrompt(m Member, prompt string) string {
	tmpl, ok := r[m.Role]
	if !ok {
		tmpl = RoleTemplate{Title: string(m.Role)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", tmpl.Title, m.Name)
	fmt.Fprintf(&b, "Your team member id is %q. Use it in every squadron command.\n\n", m.ID)
	if instr := strings.TrimSpace(tmpl.Instructions); instr != "" {
		b.WriteString(instr)
		b.WriteString("\n\n")
	}
	b.WriteString("## Communication\n\n")
	fmt.Fprintf(&b, "- Read your messages: squadron listen --member %s\n", m.ID)
	fmt.Fprintf(&b, "- Message a member: squadron send --from %s --to <id> \"<text>\"\n", m.ID)
	fmt.Fprintf(&b, "- Announce to the team: squadron broadcast --from %s \"<text>\"\n", m.ID)
	fmt.Fprintf(&b, "- Ask for help: squadron help request --from %s \"<question>\"\n", m.ID)
	fmt.Fprintf(&b, "- Claim a task: squadron claim --member %s <task-key>\n", m.ID)
	fmt.Fprintf(&b, "- Release a task: squadron release --member %s <task-key>\n", m.ID)
	fmt.Fprintf(&b, "- Report status: squadron heartbeat --member %s \"<status>\"\n\n", m.ID)
	b.WriteString("## Mission\n\n")
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n")
	return b.String()
}
