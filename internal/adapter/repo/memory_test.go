package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"aquarelle/internal/domain"
)

func newJob(id, userID string) *domain.RenderJob {
	return &domain.RenderJob{
		ID:             id,
		UserID:         userID,
		SourceImageURL: "https://example.com/in.jpg",
		Style:          domain.StyleClassic,
		Status:         domain.StatusProcessing,
	}
}

func TestMemoryRepoOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRenderJobRepository()
	if err := store.Create(ctx, newJob("job-1", "alice")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := store.GetByIDForUser(ctx, "job-1", "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := store.GetByIDForUser(ctx, "job-1", "alice"); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}

func TestMemoryRepoTerminalTransitionsAreFinal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRenderJobRepository()
	if err := store.Create(ctx, newJob("job-1", "alice")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := store.MarkCompleted(ctx, "job-1", "https://cdn.example.com/out.png", 1200); err != nil {
		t.Fatalf("MarkCompleted error: %v", err)
	}
	if err := store.MarkFailed(ctx, "job-1", "late failure", 1300); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("terminal job accepted second transition: %v", err)
	}

	first, err := store.GetByIDForUser(ctx, "job-1", "alice")
	if err != nil {
		t.Fatalf("GetByIDForUser error: %v", err)
	}
	second, err := store.GetByIDForUser(ctx, "job-1", "alice")
	if err != nil {
		t.Fatalf("GetByIDForUser error: %v", err)
	}
	if *first != *second {
		t.Fatal("terminal job mutated between reads")
	}
	if first.Status != domain.StatusCompleted || first.OutputImageURL == "" {
		t.Fatalf("unexpected terminal state: %+v", first)
	}
}

func TestMemoryRepoClaimNextIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRenderJobRepository()
	if err := store.Create(ctx, newJob("job-1", "alice")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	first, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext error: %v", err)
	}
	if first.ID != "job-1" {
		t.Fatalf("unexpected claim: %s", first.ID)
	}
	if _, err := store.ClaimNext(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("claimed job handed out twice: %v", err)
	}
}

func TestMemoryRepoFailStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRenderJobRepository()
	if err := store.Create(ctx, newJob("job-1", "alice")); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext error: %v", err)
	}

	// Claim is fresh; nothing to sweep.
	swept, err := store.FailStale(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("FailStale error: %v", err)
	}
	if swept != 0 {
		t.Fatalf("fresh claim swept: %d", swept)
	}

	swept, err = store.FailStale(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("FailStale error: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept job, got %d", swept)
	}
	job, err := store.GetByIDForUser(ctx, "job-1", "alice")
	if err != nil {
		t.Fatalf("GetByIDForUser error: %v", err)
	}
	if job.Status != domain.StatusFailed || job.ErrorMessage == "" {
		t.Fatalf("stale job not terminated: %+v", job)
	}
}

func TestMemoryProfileCreditsNeverNegative(t *testing.T) {
	ctx := context.Background()
	profiles := NewMemoryBillingProfileRepository()
	profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 1})

	if err := profiles.DecrementCredits(ctx, "alice"); err != nil {
		t.Fatalf("DecrementCredits error: %v", err)
	}
	if err := profiles.DecrementCredits(ctx, "alice"); !errors.Is(err, domain.ErrNoCredits) {
		t.Fatalf("expected ErrNoCredits, got %v", err)
	}
	profile, err := profiles.GetByUserID(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUserID error: %v", err)
	}
	if profile.CreditsRemaining != 0 {
		t.Fatalf("credits went negative: %d", profile.CreditsRemaining)
	}
}
