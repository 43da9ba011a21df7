package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/agroai/internal/models"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUsernameUsed = errors.New("username already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL,
    content TEXT NOT NULL,
    is_user BOOLEAN NOT NULL DEFAULT 1,
    message_type TEXT NOT NULL DEFAULT 'text',
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts4(
    content,
    tokenize=porter
);

-- Triggers to keep the FTS index up to date
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(docid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    DELETE FROM messages_fts WHERE docid = old.id;
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE OF content ON messages BEGIN
    DELETE FROM messages_fts WHERE docid = old.id;
    INSERT INTO messages_fts(docid, content) VALUES (new.id, new.content);
END;`

type Database struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Conn exposes the underlying pool so other stores can share it.
func (db *Database) Conn() *sql.DB {
	return db.db
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) CreateUser(ctx context.Context, user *models.User) error {
	user.CreatedAt = db.now()
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO users (username, email, password_hash, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrUsernameUsed
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, "username = ?", username)
}

func (db *Database) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

func (db *Database) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := db.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (db *Database) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return n > 0, nil
}

func (db *Database) CreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, error) {
	now := db.now()
	conv := &models.Conversation{UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO conversations (user_id, title, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`,
		userID, title, now, now).Scan(&conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns ErrNotFound both for missing rows and for rows owned by another user.
func (db *Database) GetConversation(ctx context.Context, userID, id int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := db.db.QueryRowContext(ctx, `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// GetOrCreateConversation returns the user's most recently updated conversation with the
// given title, creating one when none exists.
func (db *Database) GetOrCreateConversation(ctx context.Context, userID int64, title string) (*models.Conversation, bool, error) {
	var conv models.Conversation
	err := db.db.QueryRowContext(ctx, `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE user_id = ? AND title = ?
        ORDER BY updated_at DESC, id DESC
        LIMIT 1`, userID, title).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == nil {
		return &conv, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up conversation: %w", err)
	}
	created, err := db.CreateConversation(ctx, userID, title)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (db *Database) ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE user_id = ?
        ORDER BY updated_at DESC, id DESC`, userID)
	if err != nil {
		return []models.Conversation{}, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return []models.Conversation{}, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (db *Database) UpdateConversationTitle(ctx context.Context, userID, id int64, title string) error {
	res, err := db.db.ExecContext(ctx,
		"UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		title, db.now(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Database) DeleteConversation(ctx context.Context, userID, id int64) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE id = ? AND user_id = ?", id, userID).Scan(&owned); err != nil {
		return err
	}
	if owned == 0 {
		return ErrNotFound
	}

	// Delete messages
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return err
	}

	// Delete conversation
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = db.now()
	}
	if msg.Type == "" {
		msg.Type = models.TypeText
	}
	err := db.db.QueryRowContext(ctx, `
        INSERT INTO messages (conversation_id, content, is_user, message_type, created_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id`,
		msg.ConvID, msg.Content, msg.IsUser, msg.Type, msg.Timestamp).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (db *Database) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&n)
	return n, err
}

// GetConversationHistory returns the latest limit messages, oldest first. A limit <= 0
// returns the whole transcript.
func (db *Database) GetConversationHistory(ctx context.Context, conversationID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, conversation_id, content, is_user, message_type, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, conversationID, limit)
	if err != nil {
		return []models.Message{}, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return []models.Message{}, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SearchMessages runs a full-text query over the transcripts owned by userID.
func (db *Database) SearchMessages(ctx context.Context, userID int64, query string, limit int) ([]models.Message, error) {
	match := ftsQuery(query)
	if match == "" {
		return []models.Message{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT m.id, m.conversation_id, m.content, m.is_user, m.message_type, m.created_at
        FROM messages m
        JOIN messages_fts fts ON m.id = fts.docid
        JOIN conversations c ON c.id = m.conversation_id
        WHERE fts.content MATCH ? AND c.user_id = ?
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT ?`, match, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConvID, &msg.Content, &msg.IsUser, &msg.Type, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ftsQuery quotes every term so user input cannot inject FTS operators.
func ftsQuery(q string) string {
	terms := strings.Fields(strings.ReplaceAll(q, `"`, " "))
	for i, t := range terms {
		terms[i] = `"` + t + `"`
	}
	return strings.Join(terms, " ")
}
