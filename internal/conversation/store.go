// Package conversation persists agent conversations: an append-only log of
// user and agent messages per conversation, plus the opaque continuation
// token that resumes the model-side context.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/taskpilot/internal/storage"
	"github.com/google/uuid"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("conversation not found")
	ErrForbidden   = errors.New("conversation belongs to another user")
	ErrInvalidRole = errors.New("invalid message role")
)

// Role is the author kind of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Conversation is the header of a message log.
type Conversation struct {
	ID           string `json:"id"`
	UserID       int64  `json:"user_id"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// Message is one immutable turn.
type Message struct {
	ID             int64           `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// Store is the SQLite-backed conversation log. It performs no ownership
// checks; Service does.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) conversations.db under dataDir.
func Open(dataDir string) (*Store, error) {
	db, err := storage.Open(dataDir, "conversations.db")
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conversation: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	return storage.Migrate(s.db, `
		CREATE TABLE IF NOT EXISTS conversations (
			id                 TEXT    PRIMARY KEY,
			user_id            INTEGER NOT NULL,
			continuation_token TEXT,
			created_at         TEXT    NOT NULL,
			updated_at         TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT    NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role            TEXT    NOT NULL CHECK (role IN ('user', 'agent')),
			content         TEXT    NOT NULL,
			metadata        TEXT,
			created_at      TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conv_user     ON conversations(user_id, updated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_msg_conv      ON messages(conversation_id, id);
	`)
}

// ─── Conversations ───────────────────────────────────────────────────────────

// CreateConversation starts an empty conversation for userID.
func (s *Store) CreateConversation(ctx context.Context, userID int64) (*Conversation, error) {
	now := storage.Now()
	c := &Conversation{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation returns a conversation header with its message count.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *Store) ListConversations(ctx context.Context, userID int64, page Page) (*Paged[Conversation], error) {
	page = page.Normalize()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC, c.rowid DESC
		LIMIT ? OFFSET ?`, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newPaged(items, total, page), nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ContinuationToken returns the stored token, or "" when none was saved.
func (s *Store) ContinuationToken(ctx context.Context, id string) (string, error) {
	var tok sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT continuation_token FROM conversations WHERE id = ?`, id,
	).Scan(&tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return tok.String, nil
}

// SetContinuationToken replaces the stored token.
func (s *Store) SetContinuationToken(ctx context.Context, id, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET continuation_token = ? WHERE id = ?`,
		storage.NullableString(token), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Messages ────────────────────────────────────────────────────────────────

// AppendMessage adds a message to the end of a conversation. metadata, when
// non-nil, is stored as JSON.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role Role, content string, metadata any) (*Message, error) {
	if role != RoleUser && role != RoleAgent {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("conversation: encode metadata: %w", err)
		}
		raw = b
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	m := &Message{ConversationID: conversationID, Role: role, Content: content, Metadata: raw, CreatedAt: storage.Now()}
	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, m.CreatedAt, conversationID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	var meta *string
	if raw != nil {
		str := string(raw)
		meta = &str
	}
	res, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ConversationID, string(m.Role), m.Content, meta, m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns one page of a conversation in creation order.
func (s *Store) ListMessages(ctx context.Context, conversationID string, page Page) (*Paged[Message], error) {
	page = page.Normalize()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&total); err != nil {
		return nil, err
	}

	items, err := s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY id LIMIT ? OFFSET ?`, conversationID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	return newPaged(items, total, page), nil
}

// RecentMessages returns up to n latest messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, n int) ([]Message, error) {
	if n <= 0 {
		return []Message{}, nil
	}
	return s.queryMessages(ctx, `
		SELECT id, conversation_id, role, content, metadata, created_at FROM (
			SELECT * FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`, conversationID, n)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Message{}
	for rows.Next() {
		var (
			m    Message
			role string
			meta sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		if meta.Valid {
			m.Metadata = json.RawMessage(meta.String)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
