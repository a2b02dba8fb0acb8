package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/banterlabs/banter/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/banter.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/banter.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		token_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		image_type TEXT DEFAULT '',
		ts DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		earned REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount REAL NOT NULL,
		net_amount REAL NOT NULL,
		status TEXT NOT NULL,
		error TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_threads_user ON threads(user_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, id);
	CREATE INDEX IF NOT EXISTS idx_referrals_user ON referrals(user_id);
	CREATE INDEX IF NOT EXISTS idx_payouts_user ON payouts(user_id, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record with a hashed token secret.
func (s *SQLiteStore) CreateUser(ctx context.Context, tokenHash string) (*models.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, token_hash, created_at)
		VALUES (?, ?, ?)
	`, id, tokenHash, now)
	if err != nil {
		return nil, err
	}

	return &models.User{ID: id, TokenHash: tokenHash, CreatedAt: now}, nil
}

// GetUser retrieves a user by ID. Returns nil, nil when not found.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token_hash, created_at
		FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.TokenHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountUsers returns the total number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateThread creates a new thread owned by the given user.
func (s *SQLiteStore) CreateThread(ctx context.Context, userID, title string) (*models.Thread, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, title, now, now)
	if err != nil {
		return nil, err
	}

	return &models.Thread{ID: id, UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

// GetThread retrieves a thread by ID, scoped to its owner.
// Returns nil, nil when not found.
func (s *SQLiteStore) GetThread(ctx context.Context, userID, id string) (*models.Thread, error) {
	thread := &models.Thread{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM threads WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Title,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return thread, nil
}

// ListThreads retrieves all threads for a user, most recently updated first.
func (s *SQLiteStore) ListThreads(ctx context.Context, userID string) ([]models.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM threads
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var thread models.Thread
		err := rows.Scan(
			&thread.ID,
			&thread.UserID,
			&thread.Title,
			&thread.CreatedAt,
			&thread.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}

	return threads, rows.Err()
}

// TouchThread updates the updated_at timestamp.
func (s *SQLiteStore) TouchThread(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE threads SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	return err
}

// DeleteThread removes a thread and its messages. Returns false when the
// thread does not exist or belongs to another user.
func (s *SQLiteStore) DeleteThread(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM threads WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountThreads returns the total number of threads.
func (s *SQLiteStore) CountThreads(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&count)
	return count, err
}

// AddMessage stores a message. If the ID is empty a new ULID is assigned,
// preserving insertion order within the thread.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, role, content, image_type, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ThreadID, msg.Role, msg.Content, msg.ImageType, msg.Timestamp)
	return err
}

// ListMessages retrieves all messages in a thread in ULID order.
func (s *SQLiteStore) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, role, content, image_type, ts
		FROM messages
		WHERE thread_id = ?
		ORDER BY id ASC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.Role,
			&msg.Content,
			&msg.ImageType,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// CountMessages returns the total number of stored messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountReferrals returns the number of referrals credited to a user.
func (s *SQLiteStore) CountReferrals(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM referrals WHERE user_id = ?
	`, userID).Scan(&count)
	return count, err
}

// SumReferralEarnings returns the total amount earned from referrals.
func (s *SQLiteStore) SumReferralEarnings(ctx context.Context, userID string) (float64, error) {
	var sum float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(earned), 0) FROM referrals WHERE user_id = ?
	`, userID).Scan(&sum)
	return sum, err
}

// SumPayouts returns the total amount already requested in payouts,
// excluding failed ones.
func (s *SQLiteStore) SumPayouts(ctx context.Context, userID string) (float64, error) {
	var sum float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payouts
		WHERE user_id = ? AND status != ?
	`, userID, models.PayoutFailed).Scan(&sum)
	return sum, err
}

// CreatePayout stores a payout request. Assigns a ULID when the ID is empty.
func (s *SQLiteStore) CreatePayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID == "" {
		payout.ID = ulid.Make().String()
	}
	if payout.CreatedAt.IsZero() {
		payout.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payouts (id, user_id, amount, net_amount, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, payout.ID, payout.UserID, payout.Amount, payout.NetAmount, payout.Status, payout.Error, payout.CreatedAt)
	return err
}

// ListPayouts retrieves all payout requests for a user, newest first.
func (s *SQLiteStore) ListPayouts(ctx context.Context, userID string) ([]models.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, net_amount, status, error, created_at
		FROM payouts
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []models.Payout
	for rows.Next() {
		var p models.Payout
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Amount,
			&p.NetAmount,
			&p.Status,
			&p.Error,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}

	return payouts, rows.Err()
}
