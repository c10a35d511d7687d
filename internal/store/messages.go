package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/mailbox"
)

const messageColumns = `m.seq, m.id, m.from_member, m.to_member, m.type, m.content, m.priority, m.reply_to, m.created_at, m.expires_at, m.consumed_at`

// AppendMessage stores msg and assigns its Seq.
func (s *Store) AppendMessage(ctx context.Context, msg *mailbox.Message) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, from_member, to_member, type, content, priority, reply_to, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.From, msg.To, string(msg.Type), msg.Content, string(msg.Priority), msg.ReplyTo,
		toNanos(msg.CreatedAt), nullNanos(msg.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message seq: %w", err)
	}
	msg.Seq = seq
	return nil
}

// GetMessage returns the message with the given ID.
func (s *Store) GetMessage(ctx context.Context, id string) (mailbox.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mailbox.Message{}, errors.NewNotFoundError("message", id)
	}
	if err != nil {
		return mailbox.Message{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// Receive returns the messages visible to q.Reader in Seq order. With
// q.Consume set, selection and consumption happen in one transaction so two
// concurrent readers of the same inbox never both receive a direct message.
//
// Direct messages carry a single consumed_at stamp. Broadcasts are consumed
// per reader through message_reads, so one reader never hides a broadcast
// from another.
func (s *Store) Receive(ctx context.Context, q mailbox.Query) ([]mailbox.Message, error) {
	query, args := receiveQuery(q)

	var out []mailbox.Message
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query messages: %w", err)
		}
		for rows.Next() {
			msg, err := scanMessage(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan message: %w", err)
			}
			out = append(out, msg)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if !q.Consume {
			return nil
		}
		at := toNanos(q.Now)
		for i := range out {
			msg := &out[i]
			if msg.IsBroadcast() {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO message_reads (message_id, reader, read_at) VALUES (?, ?, ?)`,
					msg.ID, q.Reader, at,
				); err != nil {
					return fmt.Errorf("mark broadcast read: %w", err)
				}
				continue
			}
			if msg.ConsumedAt != nil {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE messages SET consumed_at = ? WHERE seq = ? AND consumed_at IS NULL`,
				at, msg.Seq,
			); err != nil {
				return fmt.Errorf("mark message consumed: %w", err)
			}
			consumed := fromNanos(at)
			msg.ConsumedAt = &consumed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// priorityRankExpr evaluates mailbox.Priority.Rank in SQL.
var priorityRankExpr = func() string {
	var b strings.Builder
	b.WriteString(`CASE m.priority`)
	for _, p := range mailbox.ValidPriorities() {
		fmt.Fprintf(&b, ` WHEN '%s' THEN %d`, p, p.Rank())
	}
	fmt.Fprintf(&b, ` ELSE %d END`, mailbox.PriorityNormal.Rank())
	return b.String()
}()

func receiveQuery(q mailbox.Query) (string, []any) {
	var (
		where []string
		args  []any
	)

	where = append(where, `(m.to_member = ? OR (m.to_member = ? AND m.from_member <> ?))`)
	args = append(args, q.Reader, mailbox.BroadcastRecipient, q.Reader)

	if !q.IncludeRead {
		where = append(where, `((m.to_member <> ? AND m.consumed_at IS NULL) OR
			(m.to_member = ? AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.reader = ?)))`)
		args = append(args, mailbox.BroadcastRecipient, mailbox.BroadcastRecipient, q.Reader)
	}
	if !q.IncludeExpired {
		where = append(where, `(m.expires_at IS NULL OR m.expires_at > ?)`)
		args = append(args, toNanos(q.Now))
	}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, `m.type IN (`+strings.Join(placeholders, ", ")+`)`)
	}
	if q.AfterSeq > 0 {
		where = append(where, `m.seq > ?`)
		args = append(args, q.AfterSeq)
	}

	order := `m.seq`
	if q.ByPriority {
		order = priorityRankExpr + ` DESC, m.seq`
	}
	query := `SELECT ` + messageColumns + ` FROM messages m WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	return query, args
}

// LatestPerSender returns the newest message of type t from each sender.
func (s *Store) LatestPerSender(ctx context.Context, t mailbox.MessageType) ([]mailbox.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages m
		 JOIN (SELECT from_member, MAX(seq) AS seq FROM messages WHERE type = ? GROUP BY from_member) latest
		   ON latest.seq = m.seq
		 ORDER BY m.from_member`,
		string(t),
	)
	if err != nil {
		return nil, fmt.Errorf("latest per sender: %w", err)
	}
	defer rows.Close()

	var out []mailbox.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// LastSeq returns the largest message Seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM messages`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanMessage(row rowScanner) (mailbox.Message, error) {
	var (
		msg                   mailbox.Message
		msgType, priority     string
		createdAt             int64
		expiresAt, consumedAt sql.NullInt64
	)
	if err := row.Scan(&msg.Seq, &msg.ID, &msg.From, &msg.To, &msgType, &msg.Content, &priority, &msg.ReplyTo,
		&createdAt, &expiresAt, &consumedAt); err != nil {
		return mailbox.Message{}, err
	}
	msg.Type = mailbox.MessageType(msgType)
	msg.Priority = mailbox.Priority(priority)
	msg.CreatedAt = fromNanos(createdAt)
	msg.ExpiresAt = timePtr(expiresAt)
	msg.ConsumedAt = timePtr(consumedAt)
	return msg, nil
}
