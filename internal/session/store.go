package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docchat/internal/db"
)

// ErrNotFound is returned when a session ID does not exist.
var ErrNotFound = errors.New("session not found")

// Store provides CRUD operations for chat sessions and their messages.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new session and returns it.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_sessions (id) VALUES (?)", id)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return s.Get(ctx, id)
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, updated_at FROM chat_sessions WHERE id = ?", id)

	var sess Session
	var createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.CreatedAt = parseSQLiteTime(createdAt)
	sess.UpdatedAt = parseSQLiteTime(updatedAt)
	return &sess, nil
}

// Append adds a message to a session. If msg.ID is empty a UUID is
// generated. The session's updated_at timestamp is refreshed.
func (s *Store) Append(ctx context.Context, sessionID string, msg Message) (*Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.SessionID = sessionID

	sources, err := json.Marshal(msg.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}
	if msg.Sources == nil {
		sources = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE chat_sessions SET updated_at = datetime('now') WHERE id = ?", sessionID)
	if err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, sources)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, sessionID, msg.Role, msg.Content, string(sources))
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	msg.CreatedAt = time.Now().UTC()
	return &msg, nil
}

// History returns a session's messages in insertion order. The ordering
// column is the autoincrement sequence, not created_at: its one-second
// resolution cannot separate a question from the answer recorded right
// after it.
func (s *Store) History(ctx context.Context, sessionID string) ([]Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var sourcesJSON, createdAt string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &sourcesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &msg.Sources); err != nil {
			msg.Sources = nil
		}
		msg.CreatedAt = parseSQLiteTime(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
