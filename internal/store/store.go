package store

import (
	"context"

	"github.com/banterlabs/banter/internal/models"
)

// DataStore defines the interface for persistent storage of users, threads,
// messages, and referral earnings. Both PostgresStore and SQLiteStore
// implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, tokenHash string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Thread operations
	CreateThread(ctx context.Context, userID, title string) (*models.Thread, error)
	GetThread(ctx context.Context, userID, id string) (*models.Thread, error)
	ListThreads(ctx context.Context, userID string) ([]models.Thread, error)
	TouchThread(ctx context.Context, id string) error
	DeleteThread(ctx context.Context, userID, id string) (bool, error)
	CountThreads(ctx context.Context) (int64, error)

	// Message operations
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	CountMessages(ctx context.Context) (int64, error)

	// Referral and payout operations
	CountReferrals(ctx context.Context, userID string) (int64, error)
	SumReferralEarnings(ctx context.Context, userID string) (float64, error)
	SumPayouts(ctx context.Context, userID string) (float64, error)
	CreatePayout(ctx context.Context, payout *models.Payout) error
	ListPayouts(ctx context.Context, userID string) ([]models.Payout, error)
}
