package domain

import "time"

// BillingProfile carries the subscription state gating render submissions.
type BillingProfile struct {
	UserID           string
	SubscriptionTier Tier
	CreditsRemaining int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsFree reports whether the profile is on the free subscription tier.
func (p BillingProfile) IsFree() bool {
	return p.SubscriptionTier == TierFree
}
