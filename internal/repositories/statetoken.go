package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/exportify/internal/models"
)

// StateTokenStore defines the nonce/state-token operations the OAuth flow needs.
//
// Implementations must make GetAndDelete destructive and atomic: a pair is
// consumed by exactly one caller, even under concurrent callbacks.
type StateTokenStore interface {
	// Put records a (nonce, stateToken) pair for a login attempt.
	Put(ctx context.Context, nonce, stateToken string) error

	// GetAndDelete consumes a pair: the matching record is returned and
	// removed in one atomic operation. Returns (nil, nil) when no matching
	// record exists.
	GetAndDelete(ctx context.Context, nonce, stateToken string) (*models.StateToken, error)

	// DeleteExpired removes records older than maxAge and reports how many were swept.
	DeleteExpired(ctx context.Context, maxAge time.Duration) (int64, error)
}

// StateTokenRepository implements [StateTokenStore] on SQLite.
type StateTokenRepository struct {
	db *sql.DB
}

var _ StateTokenStore = (*StateTokenRepository)(nil)

// NewStateTokenRepository creates a new StateTokenRepository with the given database connection
func NewStateTokenRepository(db *sql.DB) *StateTokenRepository {
	return &StateTokenRepository{db: db}
}

// Put inserts a state token record after validating it.
func (r *StateTokenRepository) Put(ctx context.Context, nonce, stateToken string) error {
	record := &models.StateToken{Nonce: nonce, Token: stateToken, CreatedAt: time.Now().UTC()}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO state_tokens (nonce, state_token, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, record.Nonce, record.Token, record.CreatedAt); err != nil {
		return fmt.Errorf("failed to store state token: %w", err)
	}

	return nil
}

// GetAndDelete consumes a (nonce, stateToken) record in a single statement.
//
// DELETE with RETURNING makes the lookup and the delete one atomic write, so
// two callers racing on the same pair cannot both observe the row. The loser
// sees an absent record, never a stale copy.
func (r *StateTokenRepository) GetAndDelete(ctx context.Context, nonce, stateToken string) (*models.StateToken, error) {
	var record models.StateToken
	query := `DELETE FROM state_tokens WHERE nonce = ? AND state_token = ? RETURNING nonce, state_token, created_at`
	err := r.db.QueryRowContext(ctx, query, nonce, stateToken).Scan(&record.Nonce, &record.Token, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state token: %w", err)
	}

	return &record, nil
}

// DeleteExpired sweeps records older than maxAge to bound store growth.
func (r *StateTokenRepository) DeleteExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	result, err := r.db.ExecContext(ctx, `DELETE FROM state_tokens WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired state tokens: %w", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept state tokens: %w", err)
	}

	return swept, nil
}
