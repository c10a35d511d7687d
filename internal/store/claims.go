package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/errors"
)

const claimColumns = `id, task_key, claimed_by, claimed_at, released_at`

// TryClaim inserts an active claim unless one exists for taskKey and returns
// the active claim afterwards. The partial unique index on active task keys
// makes the insert a compare-and-set: of any number of concurrent attempts,
// across processes, exactly one row is written.
func (s *Store) TryClaim(ctx context.Context, taskKey, memberID string, at time.Time) (claims.Claim, error) {
	var active claims.Claim
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_claims (id, task_key, claimed_by, claimed_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), taskKey, memberID, toNanos(at),
		); err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		c, err := activeClaim(ctx, tx, taskKey)
		if err != nil {
			return err
		}
		active = c
		return nil
	})
	if err != nil {
		return claims.Claim{}, err
	}
	return active, nil
}

// ReleaseClaim releases the active claim on taskKey if memberID owns it.
func (s *Store) ReleaseClaim(ctx context.Context, taskKey, memberID string, at time.Time) (claims.Claim, error) {
	var released claims.Claim
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := activeClaim(ctx, tx, taskKey)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("claim", taskKey).WithCause(errors.ErrNoActiveClaim)
		}
		if err != nil {
			return err
		}
		if c.ClaimedBy != memberID {
			return errors.NewOwnershipError(taskKey, c.ClaimedBy, memberID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE task_claims SET released_at = ? WHERE id = ?`, toNanos(at), c.ID,
		); err != nil {
			return fmt.Errorf("release claim: %w", err)
		}
		releasedAt := fromNanos(toNanos(at))
		c.ReleasedAt = &releasedAt
		released = c
		return nil
	})
	if err != nil {
		return claims.Claim{}, err
	}
	return released, nil
}

// ActiveClaims returns every unreleased claim, oldest first.
func (s *Store) ActiveClaims(ctx context.Context) ([]claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM task_claims WHERE released_at IS NULL ORDER BY claimed_at, task_key`)
	if err != nil {
		return nil, fmt.Errorf("active claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

// ReleaseClaimsHeldBy releases every active claim held by memberID.
func (s *Store) ReleaseClaimsHeldBy(ctx context.Context, memberID string, at time.Time) ([]claims.Claim, error) {
	var released []claims.Claim
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+claimColumns+` FROM task_claims WHERE claimed_by = ? AND released_at IS NULL ORDER BY claimed_at, task_key`,
			memberID,
		)
		if err != nil {
			return fmt.Errorf("query held claims: %w", err)
		}
		held, err := scanClaims(rows)
		rows.Close()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE task_claims SET released_at = ? WHERE claimed_by = ? AND released_at IS NULL`,
			toNanos(at), memberID,
		); err != nil {
			return fmt.Errorf("release held claims: %w", err)
		}
		releasedAt := fromNanos(toNanos(at))
		for i := range held {
			held[i].ReleasedAt = &releasedAt
		}
		released = held
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func activeClaim(ctx context.Context, tx *sql.Tx, taskKey string) (claims.Claim, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM task_claims WHERE task_key = ? AND released_at IS NULL`, taskKey)
	c, err := scanClaim(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return claims.Claim{}, fmt.Errorf("select active claim: %w", err)
	}
	return c, err
}

func scanClaims(rows *sql.Rows) ([]claims.Claim, error) {
	var out []claims.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClaim(row rowScanner) (claims.Claim, error) {
	var (
		c          claims.Claim
		claimedAt  int64
		releasedAt sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.TaskKey, &c.ClaimedBy, &claimedAt, &releasedAt); err != nil {
		return claims.Claim{}, err
	}
	c.ClaimedAt = fromNanos(claimedAt)
	c.ReleasedAt = timePtr(releasedAt)
	return c, nil
}
