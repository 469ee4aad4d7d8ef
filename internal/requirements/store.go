package requirements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/db"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

// Store persists sessions, transcripts and generated code.
type Store struct {
	db *db.DB
}

// NewStore creates a new requirements store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// TurnUpdate is everything one turn writes. It is applied atomically.
type TurnUpdate struct {
	SessionID string
	State     State
	Record    Record
	Append    []llm.Message
	Code      *CodeRecord
}

// CreateSession inserts a new session whose transcript starts with opening.
func (s *Store) CreateSession(ctx context.Context, userID, opening string) (*Session, error) {
	if userID == "" {
		userID = "anonymous"
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     StateCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.State, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	if opening != "" {
		msg := llm.Message{Role: llm.RoleAssistant, Content: opening}
		if err := appendMessages(ctx, tx, sess.ID, 0, []llm.Message{msg}, now); err != nil {
			return nil, err
		}
		sess.Transcript = append(sess.Transcript, msg)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session: %w", err)
	}
	return sess, nil
}

// GetSession loads a session with its transcript. It returns nil if the
// session does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, state, entity, trigger_event, fields, logic, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.State,
		&sess.Record.Entity, &sess.Record.Trigger, &sess.Record.Fields, &sess.Record.Logic,
		&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM session_messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("getting transcript: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m llm.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		sess.Transcript = append(sess.Transcript, m)
	}
	return &sess, rows.Err()
}

// SaveTurn appends the turn's messages, stores the new record and state and
// records generated code, all in one transaction.
func (s *Store) SaveTurn(ctx context.Context, u TurnUpdate) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET state = ?, entity = ?, trigger_event = ?, fields = ?, logic = ?, updated_at = ?
		 WHERE id = ?`,
		u.State, u.Record.Entity, u.Record.Trigger, u.Record.Fields, u.Record.Logic, now, u.SessionID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}

	if len(u.Append) > 0 {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM session_messages WHERE session_id = ?`, u.SessionID,
		).Scan(&next); err != nil {
			return fmt.Errorf("reading transcript length: %w", err)
		}
		if err := appendMessages(ctx, tx, u.SessionID, next, u.Append, now); err != nil {
			return err
		}
	}

	if u.Code != nil {
		u.Code.SessionID = u.SessionID
		if err := insertCode(ctx, tx, u.Code, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ResetSession clears the transcript, record, confirmation and code history
// of a session and seeds it with opening.
func (s *Store) ResetSession(ctx context.Context, id, opening string) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET state = ?, entity = '', trigger_event = '', fields = '', logic = '', updated_at = ?
		 WHERE id = ?`, StateCollecting, now, id)
	if err != nil {
		return fmt.Errorf("resetting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	for _, stmt := range []string{
		`DELETE FROM session_messages WHERE session_id = ?`,
		`DELETE FROM code_history WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("resetting session: %w", err)
		}
	}
	if opening != "" {
		if err := appendMessages(ctx, tx, id, 0, []llm.Message{{Role: llm.RoleAssistant, Content: opening}}, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddCode stores a generated plug-in outside of a turn.
func (s *Store) AddCode(ctx context.Context, rec CodeRecord) (*CodeRecord, error) {
	now := time.Now().UTC()
	if err := insertCode(ctx, s.db, &rec, now); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestCode returns the most recent generated plug-in of a session, or nil.
func (s *Store) LatestCode(ctx context.Context, sessionID string) (*CodeRecord, error) {
	history, err := s.CodeHistory(ctx, sessionID)
	if err != nil || len(history) == 0 {
		return nil, err
	}
	return &history[len(history)-1], nil
}

// CodeHistory returns every generated plug-in of a session, oldest first.
func (s *Store) CodeHistory(ctx context.Context, sessionID string) ([]CodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, plugin_name, entity, trigger_event, fields, logic, code, created_at
		 FROM code_history WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing code history: %w", err)
	}
	defer rows.Close()

	var out []CodeRecord
	for rows.Next() {
		var c CodeRecord
		if err := rows.Scan(&c.ID, &c.SessionID, &c.PluginName, &c.Entity, &c.Trigger,
			&c.Fields, &c.Logic, &c.Code, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning code history: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountSessions returns the number of sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendMessages(ctx context.Context, ex execer, sessionID string, start int, msgs []llm.Message, at time.Time) error {
	for i, m := range msgs {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, start+i, m.Role, m.Content, at,
		)
		if err != nil {
			return fmt.Errorf("adding message: %w", err)
		}
	}
	return nil
}

func insertCode(ctx context.Context, ex execer, c *CodeRecord, at time.Time) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = at
	_, err := ex.ExecContext(ctx,
		`INSERT INTO code_history (id, session_id, plugin_name, entity, trigger_event, fields, logic, code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.PluginName, c.Entity, c.Trigger, c.Fields, c.Logic, c.Code, at,
	)
	if err != nil {
		return fmt.Errorf("saving generated code: %w", err)
	}
	return nil
}
