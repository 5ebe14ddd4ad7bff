package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aquarelle/internal/domain"
)

// BillingProfileRepositoryPG implements domain.BillingProfileRepository.
type BillingProfileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBillingProfileRepository creates a new billing profile repository backed by PostgreSQL.
func NewBillingProfileRepository(pool *pgxpool.Pool) *BillingProfileRepositoryPG {
	return &BillingProfileRepositoryPG{pool: pool}
}

// GetByUserID fetches the billing profile for a user.
func (r *BillingProfileRepositoryPG) GetByUserID(ctx context.Context, userID string) (*domain.BillingProfile, error) {
	query := `
SELECT user_id, subscription_tier, credits_remaining, created_at, updated_at
FROM billing_profiles
WHERE user_id = $1;
`
	row := r.pool.QueryRow(ctx, query, userID)
	var profile domain.BillingProfile
	if err := row.Scan(
		&profile.UserID,
		&profile.SubscriptionTier,
		&profile.CreditsRemaining,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// DecrementCredits consumes one credit. The guard clause keeps the balance
// from ever going below zero.
func (r *BillingProfileRepositoryPG) DecrementCredits(ctx context.Context, userID string) error {
	query := `
UPDATE billing_profiles
SET credits_remaining = credits_remaining - 1,
    updated_at = NOW()
WHERE user_id = $1 AND credits_remaining > 0;
`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoCredits
	}
	return nil
}
