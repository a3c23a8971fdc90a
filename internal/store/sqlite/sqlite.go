package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/innerview/realtime-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and ensures the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, string(role))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ConversationStore implementation ====

// CreateConversation creates the thread for a practitioner/client pair,
// or returns the existing one.
func (s *SQLiteStore) CreateConversation(ctx context.Context, practitionerID, clientID int64) (*store.Conversation, error) {
	query := `
		INSERT INTO conversations (practitioner_id, client_id)
		VALUES (?, ?)
		ON CONFLICT (practitioner_id, client_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, practitionerID, clientID); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.getConversationByPair(ctx, practitionerID, clientID)
}

func (s *SQLiteStore) getConversationByPair(ctx context.Context, practitionerID, clientID int64) (*store.Conversation, error) {
	query := `
		SELECT id, practitioner_id, client_id, created_at, last_message_at
		FROM conversations
		WHERE practitioner_id = ? AND client_id = ?
	`
	return s.scanConversation(s.db.QueryRowContext(ctx, query, practitionerID, clientID))
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*store.Conversation, error) {
	query := `
		SELECT id, practitioner_id, client_id, created_at, last_message_at
		FROM conversations
		WHERE id = ?
	`
	conv, err := s.scanConversation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("conversation %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return conv, nil
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*store.Conversation, error) {
	var conv store.Conversation
	var lastMessageAt sql.NullTime
	err := row.Scan(
		&conv.ID,
		&conv.PractitionerID,
		&conv.ClientID,
		&conv.CreatedAt,
		&lastMessageAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if lastMessageAt.Valid {
		conv.LastMessageAt = &lastMessageAt.Time
	}
	return &conv, nil
}

// ListConversations returns all conversations for a user, most recently
// active first, with unread counts from the user's perspective.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]store.ConversationSummary, error) {
	query := `
		SELECT c.id, c.practitioner_id, c.client_id, c.created_at, c.last_message_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id
		          AND m.author_id != ?
		          AND m.read_at IS NULL) AS unread
		FROM conversations c
		WHERE c.practitioner_id = ? OR c.client_id = ?
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []store.ConversationSummary
	for rows.Next() {
		var sum store.ConversationSummary
		var lastMessageAt sql.NullTime
		if err := rows.Scan(
			&sum.ID,
			&sum.PractitionerID,
			&sum.ClientID,
			&sum.CreatedAt,
			&lastMessageAt,
			&sum.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if lastMessageAt.Valid {
			sum.LastMessageAt = &lastMessageAt.Time
		}
		sum.PeerID = sum.Peer(userID)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// TouchConversation advances last_message_at.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE conversations SET last_message_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch conversation rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ==== MessageStore implementation ====

// CreateMessage appends a message to a conversation.
func (s *SQLiteStore) CreateMessage(ctx context.Context, conversationID, authorID int64, body string, at time.Time) (*store.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, conversationID, authorID, body, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetMessage(ctx, id)
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, conversation_id, author_id, body, created_at, read_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var readAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.AuthorID,
		&msg.Body,
		&msg.CreatedAt,
		&readAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return &msg, nil
}

// ListMessages returns up to limit messages in ascending id order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID, beforeID int64, limit int) ([]store.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// Select newest-first so the limit keeps the most recent page, then
	// reverse into ascending order for the caller.
	query := `
		SELECT id, conversation_id, author_id, body, created_at, read_at
		FROM messages
		WHERE conversation_id = ? AND (? = 0 OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var page []store.Message
	for rows.Next() {
		var msg store.Message
		var readAt sql.NullTime
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.AuthorID,
			&msg.Body,
			&msg.CreatedAt,
			&readAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if readAt.Valid {
			msg.ReadAt = &readAt.Time
		}
		page = append(page, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// MarkMessageRead sets read_at once. Subsequent calls are no-ops.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), id); err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}
