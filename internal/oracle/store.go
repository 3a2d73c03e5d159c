package oracle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/db"
	"github.com/ziadkadry99/shopagent/internal/llm"
)

// Store persists thread messages and verdicts so a later message on the
// same thread resumes the conversation.
type Store struct {
	db *db.DB
}

// NewStore creates a thread store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// EnsureThread creates the thread if it does not exist.
func (s *Store) EnsureThread(ctx context.Context, threadID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		threadID, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensuring thread %s: %w", threadID, err)
	}
	return nil
}

// Append adds messages to the end of the thread.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO thread_messages (thread_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			threadID, string(m.Role), m.Content, now,
		); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}
	return tx.Commit()
}

// Messages returns up to limit of the most recent messages in the thread,
// oldest first. A limit <= 0 returns all of them.
func (s *Store) Messages(ctx context.Context, threadID string, limit int) ([]llm.Message, error) {
	query := `SELECT role, content FROM (
		SELECT seq, role, content FROM thread_messages WHERE thread_id = ? ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []llm.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, llm.Message{Role: llm.Role(role), Content: content})
	}
	return msgs, rows.Err()
}

// SaveVerdict records the thread's current verdict, replacing any earlier one.
func (s *Store) SaveVerdict(ctx context.Context, threadID string, v Verdict) error {
	sources, err := json.Marshal(nonNil(v.Sources))
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO thread_verdicts (thread_id, status, message, confidence, sources, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET
		   status = excluded.status, message = excluded.message, confidence = excluded.confidence,
		   sources = excluded.sources, updated_at = excluded.updated_at`,
		threadID, string(v.Status), v.Message, v.Confidence, string(sources), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving verdict: %w", err)
	}
	return nil
}

// ClearVerdict removes the thread's verdict.
func (s *Store) ClearVerdict(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thread_verdicts WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("clearing verdict: %w", err)
	}
	return nil
}

// Verdict returns the thread's verdict, or nil if none is recorded.
func (s *Store) Verdict(ctx context.Context, threadID string) (*Verdict, error) {
	var v Verdict
	var status, sources string
	err := s.db.QueryRowContext(ctx,
		`SELECT status, message, confidence, sources FROM thread_verdicts WHERE thread_id = ?`, threadID,
	).Scan(&status, &v.Message, &v.Confidence, &sources)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying verdict: %w", err)
	}
	v.Status = agent.Status(status)
	if err := json.Unmarshal([]byte(sources), &v.Sources); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	return &v, nil
}

// DeleteThread removes a thread with its messages and verdict.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID); err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
