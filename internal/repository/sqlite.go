package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", connectionDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Shared-cache connections fail with "table is locked" instead of waiting.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, "cache=shared") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations. Timestamps are stored as unix nanoseconds.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			use_memory INTEGER NOT NULL DEFAULT 1,
			memory_summary TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a conversation. Missing id and timestamps are filled in.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.ConversationID == "" {
		conv.ConversationID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, owner_id, title, use_memory, memory_summary, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ConversationID, conv.OwnerID, conv.Title, conv.UseMemory, nullString(conv.MemorySummary),
		conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, owner_id, title, use_memory, memory_summary, created_at, updated_at
		FROM conversations WHERE conversation_id = ?`, conversationID)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, ownerID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, owner_id, title, use_memory, memory_summary, created_at, updated_at
		FROM conversations WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

// UpdateConversation writes the client-editable fields and bumps updated_at.
// The memory summary is left untouched.
func (s *SQLiteStore) UpdateConversation(ctx context.Context, conv *domain.Conversation) error {
	conv.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, use_memory = ?, updated_at = ? WHERE conversation_id = ?`,
		conv.Title, conv.UseMemory, conv.UpdatedAt.UnixNano(), conv.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return expectAffected(res)
}

// DeleteConversation removes a conversation and, by cascade, its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return expectAffected(res)
}

// UpdateMemorySummary stores a new memory summary.
func (s *SQLiteStore) UpdateMemorySummary(ctx context.Context, conversationID, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET memory_summary = ?, updated_at = ? WHERE conversation_id = ?`,
		nullString(summary), s.now().UnixNano(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to update memory summary: %w", err)
	}
	return expectAffected(res)
}

// Touch bumps the conversation's update timestamp.
func (s *SQLiteStore) Touch(ctx context.Context, conversationID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
		s.now().UnixNano(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return expectAffected(res)
}

// AppendMessage stores a message with a fresh id. Its timestamp never precedes
// the latest message already in the conversation.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE conversation_id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_at), 0) FROM messages WHERE conversation_id = ?`,
		conversationID).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read latest message time: %w", err)
	}
	ts := s.now().UnixNano()
	if ts < last {
		ts = last
	}

	msg := &domain.Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Unix(0, ts).UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, string(msg.Role), msg.Content, ts); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns at most limit of the newest messages, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryMessages(ctx,
		`SELECT message_id, conversation_id, role, content, created_at FROM (
			SELECT seq, message_id, conversation_id, role, content, created_at FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		) ORDER BY created_at ASC, seq ASC`,
		conversationID, limit)
}

// AllMessages returns every message of a conversation, oldest first.
func (s *SQLiteStore) AllMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT message_id, conversation_id, role, content, created_at FROM messages
		WHERE conversation_id = ? ORDER BY created_at ASC, seq ASC`,
		conversationID)
}

// CountMessages returns the number of messages in a conversation.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// UpdateMessageContent replaces the content of a message.
func (s *SQLiteStore) UpdateMessageContent(ctx context.Context, messageID, content string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET content = ? WHERE message_id = ?`, content, messageID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return expectAffected(res)
}

// ClearMessages deletes every message of a conversation.
func (s *SQLiteStore) ClearMessages(ctx context.Context, conversationID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// DeleteMessage deletes one message if it belongs to the conversation.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ? AND message_id = ?`, conversationID, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return expectAffected(res)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		var createdAt int64
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var conv domain.Conversation
	var summary sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&conv.ConversationID, &conv.OwnerID, &conv.Title, &conv.UseMemory,
		&summary, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	conv.MemorySummary = summary.String
	conv.CreatedAt = time.Unix(0, createdAt).UTC()
	conv.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &conv, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// connectionParams apply to every pooled connection. Writers wait up to 5s
// for the lock, and transactions take the write lock at BEGIN.
var connectionParams = []struct{ key, value string }{
	{"_foreign_keys", "on"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
	{"_journal_mode", "WAL"},
}

func connectionDSN(dsn string) string {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	for _, p := range connectionParams {
		if strings.Contains(dsn, p.key+"=") || (memory && p.key == "_journal_mode") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.key + "=" + p.value
	}
	return dsn
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
