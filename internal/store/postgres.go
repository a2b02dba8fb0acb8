package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/banterlabs/banter/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record with a hashed token secret.
func (s *PostgresStore) CreateUser(ctx context.Context, tokenHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, token_hash)
		VALUES ($1, $2)
		RETURNING id, token_hash, created_at
	`, uuid.New().String(), tokenHash).Scan(
		&user.ID,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID. Returns nil, nil when not found.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, token_hash, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.TokenHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CountUsers returns the total number of registered users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateThread creates a new thread owned by the given user.
func (s *PostgresStore) CreateThread(ctx context.Context, userID, title string) (*models.Thread, error) {
	thread := &models.Thread{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO threads (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, created_at, updated_at
	`, uuid.New().String(), userID, title).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Title,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread retrieves a thread by ID, scoped to its owner.
// Returns nil, nil when not found.
func (s *PostgresStore) GetThread(ctx context.Context, userID, id string) (*models.Thread, error) {
	thread := &models.Thread{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM threads WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Title,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return thread, nil
}

// ListThreads retrieves all threads for a user, most recently updated first.
func (s *PostgresStore) ListThreads(ctx context.Context, userID string) ([]models.Thread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM threads
		WHERE user_id = $1
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
func (s *PostgresStore) TouchThread(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE threads SET updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

// DeleteThread removes a thread and its messages. Returns false when the
// thread does not exist or belongs to another user.
func (s *PostgresStore) DeleteThread(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM threads WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountThreads returns the total number of threads.
func (s *PostgresStore) CountThreads(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM threads`).Scan(&count)
	return count, err
}

// AddMessage stores a message. If the ID is empty a new ULID is assigned,
// preserving insertion order within the thread.
func (s *PostgresStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, thread_id, role, content, image_type, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.ThreadID, msg.Role, msg.Content, msg.ImageType, msg.Timestamp)
	return err
}

// ListMessages retrieves all messages in a thread in ULID order.
func (s *PostgresStore) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, role, content, image_type, ts
		FROM messages
		WHERE thread_id = $1
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
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// CountReferrals returns the number of referrals credited to a user.
func (s *PostgresStore) CountReferrals(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM referrals WHERE user_id = $1
	`, userID).Scan(&count)
	return count, err
}

// SumReferralEarnings returns the total amount earned from referrals.
func (s *PostgresStore) SumReferralEarnings(ctx context.Context, userID string) (float64, error) {
	var sum float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(earned), 0) FROM referrals WHERE user_id = $1
	`, userID).Scan(&sum)
	return sum, err
}

// SumPayouts returns the total amount already requested in payouts,
// excluding failed ones.
func (s *PostgresStore) SumPayouts(ctx context.Context, userID string) (float64, error) {
	var sum float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payouts
		WHERE user_id = $1 AND status != $2
	`, userID, models.PayoutFailed).Scan(&sum)
	return sum, err
}

// CreatePayout stores a payout request. Assigns a ULID when the ID is empty.
func (s *PostgresStore) CreatePayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID == "" {
		payout.ID = ulid.Make().String()
	}
	if payout.CreatedAt.IsZero() {
		payout.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO payouts (id, user_id, amount, net_amount, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, payout.ID, payout.UserID, payout.Amount, payout.NetAmount, payout.Status, payout.Error, payout.CreatedAt)
	return err
}

// ListPayouts retrieves all payout requests for a user, newest first.
func (s *PostgresStore) ListPayouts(ctx context.Context, userID string) ([]models.Payout, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, net_amount, status, error, created_at
		FROM payouts
		WHERE user_id = $1
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
