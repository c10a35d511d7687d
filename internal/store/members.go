package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/team"
)

const memberColumns = `id, name, role, model, session_name, pid, prompt_ref, work_dir, status, started_at, updated_at`

// UpsertMember inserts m or replaces the record with the same ID.
func (s *Store) UpsertMember(ctx context.Context, m team.Member) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   role = excluded.role,
		   model = excluded.model,
		   session_name = excluded.session_name,
		   pid = excluded.pid,
		   prompt_ref = excluded.prompt_ref,
		   work_dir = excluded.work_dir,
		   status = excluded.status,
		   started_at = excluded.started_at,
		   updated_at = excluded.updated_at`,
		m.ID, m.Name, string(m.Role), m.Model, m.SessionName, m.PID, m.PromptRef, m.WorkDir,
		string(m.Status), toNanos(m.StartedAt), toNanos(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", m.ID, err)
	}
	return nil
}

// GetMember returns the member with the given ID.
func (s *Store) GetMember(ctx context.Context, id string) (team.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM team_members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return team.Member{}, errors.NewNotFoundError("team member", id)
	}
	if err != nil {
		return team.Member{}, fmt.Errorf("get member %s: %w", id, err)
	}
	return m, nil
}

// ListMembers returns every member in deployment order.
func (s *Store) ListMembers(ctx context.Context) ([]team.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM team_members ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []team.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SetMemberStatus sets the status of id regardless of its current value.
func (s *Store) SetMemberStatus(ctx context.Context, id string, status team.Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE team_members SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toNanos(at), id,
	)
	if err != nil {
		return fmt.Errorf("set member status %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("team member", id)
	}
	return nil
}

// TransitionMemberStatus moves id from one status to another. It reports
// false without error when the member is not currently in "from".
func (s *Store) TransitionMemberStatus(ctx context.Context, id string, from, to team.Status, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE team_members SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), toNanos(at), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("transition member status %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (team.Member, error) {
	var (
		m                    team.Member
		role, status         string
		startedAt, updatedAt int64
	)
	if err := row.Scan(&m.ID, &m.Name, &role, &m.Model, &m.SessionName, &m.PID, &m.PromptRef, &m.WorkDir,
		&status, &startedAt, &updatedAt); err != nil {
		return team.Member{}, err
	}
	m.Role = team.Role(role)
	m.Status = team.Status(status)
	m.StartedAt = fromNanos(startedAt)
	m.UpdatedAt = fromNanos(updatedAt)
	return m, nil
}
