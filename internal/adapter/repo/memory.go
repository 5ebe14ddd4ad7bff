package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"aquarelle/internal/domain"
)

// MemoryRenderJobRepository is an in-process domain.RenderJobRepository used
// by tests and local development.
type MemoryRenderJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.RenderJob
}

func NewMemoryRenderJobRepository() *MemoryRenderJobRepository {
	return &MemoryRenderJobRepository{jobs: make(map[string]*domain.RenderJob)}
}

func (s *MemoryRenderJobRepository) Create(_ context.Context, job *domain.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	stored := *job
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.jobs[stored.ID] = &stored
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (s *MemoryRenderJobRepository) GetByIDForUser(_ context.Context, jobID, userID string) (*domain.RenderJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryRenderJobRepository) MarkCompleted(_ context.Context, jobID, outputURL string, durationMS int64) error {
	return s.terminal(jobID, func(job *domain.RenderJob) {
		job.Status = domain.StatusCompleted
		job.OutputImageURL = outputURL
		job.ProcessingMS = durationMS
	})
}

func (s *MemoryRenderJobRepository) MarkFailed(_ context.Context, jobID, message string, durationMS int64) error {
	return s.terminal(jobID, func(job *domain.RenderJob) {
		job.Status = domain.StatusFailed
		job.ErrorMessage = message
		job.ProcessingMS = durationMS
	})
}

func (s *MemoryRenderJobRepository) terminal(jobID string, apply func(*domain.RenderJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.StatusProcessing {
		return domain.ErrNotFound
	}
	apply(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryRenderJobRepository) ClaimNext(_ context.Context) (*domain.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []*domain.RenderJob
	for _, job := range s.jobs {
		if job.Status == domain.StatusProcessing && job.ClaimedAt == nil {
			candidates = append(candidates, job)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	claimed := candidates[0]
	now := time.Now().UTC()
	claimed.ClaimedAt = &now
	copied := *claimed
	return &copied, nil
}

func (s *MemoryRenderJobRepository) FailStale(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for _, job := range s.jobs {
		if job.Status == domain.StatusProcessing && job.ClaimedAt != nil && job.ClaimedAt.Before(olderThan) {
			job.Status = domain.StatusFailed
			job.ErrorMessage = "processing deadline exceeded"
			job.UpdatedAt = time.Now().UTC()
			swept++
		}
	}
	return swept, nil
}

// MemoryBillingProfileRepository is an in-process domain.BillingProfileRepository.
type MemoryBillingProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.BillingProfile
}

func NewMemoryBillingProfileRepository() *MemoryBillingProfileRepository {
	return &MemoryBillingProfileRepository{profiles: make(map[string]*domain.BillingProfile)}
}

// Put registers or replaces a profile.
func (s *MemoryBillingProfileRepository) Put(profile domain.BillingProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = &profile
}

func (s *MemoryBillingProfileRepository) GetByUserID(_ context.Context, userID string) (*domain.BillingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *MemoryBillingProfileRepository) DecrementCredits(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok || profile.CreditsRemaining <= 0 {
		return domain.ErrNoCredits
	}
	profile.CreditsRemaining--
	profile.UpdatedAt = time.Now().UTC()
	return nil
}

var (
	_ domain.RenderJobRepository      = (*MemoryRenderJobRepository)(nil)
	_ domain.BillingProfileRepository = (*MemoryBillingProfileRepository)(nil)
	_ domain.RenderJobRepository      = (*RenderJobRepositoryPG)(nil)
	_ domain.BillingProfileRepository = (*BillingProfileRepositoryPG)(nil)
)
