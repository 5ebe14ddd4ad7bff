package domain

import (
	"context"
	"time"
)

// RenderJobRepository defines persistence for render jobs.
//
// State machine: jobs are created in StatusProcessing and transition exactly
// once to StatusCompleted or StatusFailed. Terminal states are immutable and
// jobs are never deleted here.
type RenderJobRepository interface {
	Create(ctx context.Context, job *RenderJob) error
	// GetByIDForUser returns ErrNotFound when the job is absent or owned by
	// a different user.
	GetByIDForUser(ctx context.Context, jobID, userID string) (*RenderJob, error)
	MarkCompleted(ctx context.Context, jobID, outputURL string, durationMS int64) error
	MarkFailed(ctx context.Context, jobID, message string, durationMS int64) error

	// ClaimNext atomically claims the oldest unclaimed processing job for a
	// worker. Returns ErrNotFound when no job is available.
	ClaimNext(ctx context.Context) (*RenderJob, error)
	// FailStale terminates claimed processing jobs whose claim is older than
	// the deadline, returning how many were swept.
	FailStale(ctx context.Context, olderThan time.Time) (int, error)
}

// BillingProfileRepository defines access to subscription and credit state.
type BillingProfileRepository interface {
	// GetByUserID returns ErrProfileNotFound when the user has no profile.
	GetByUserID(ctx context.Context, userID string) (*BillingProfile, error)
	// DecrementCredits atomically consumes one credit. The balance never
	// goes below zero; ErrNoCredits is returned when nothing remained.
	DecrementCredits(ctx context.Context, userID string) error
}
