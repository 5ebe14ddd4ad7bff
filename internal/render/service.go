package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aquarelle/internal/domain"
	"aquarelle/internal/pipeline"
	"aquarelle/internal/prompt"
)

// PipelineRunner is the slice of the orchestrator the service depends on.
type PipelineRunner interface {
	Run(ctx context.Context, sourceImageURL string, cfg domain.TierConfig, positive, negative string) (pipeline.Result, error)
}

// Waker nudges the worker pool after a submission.
type Waker interface {
	Wake()
}

// SubmitInput is a validated render request.
type SubmitInput struct {
	UserID         string
	SourceImageURL string
	Tier           string
	RoomType       string
	Style          domain.RenderStyle
	Atmosphere     string
	ColorTone      string
	ProjectID      string
}

// SubmitResult is returned to the caller immediately; the pipeline itself
// runs in the background and is observed by polling Status.
type SubmitResult struct {
	RenderID      string
	EstimatedTime string
}

// Service is the render entry point: it validates entitlement, persists the
// job record, and hands execution to the worker pool.
type Service struct {
	jobs     domain.RenderJobRepository
	profiles domain.BillingProfileRepository
	runner   PipelineRunner
	logger   zerolog.Logger
	metrics  *Metrics
	waker    Waker
}

func NewService(jobs domain.RenderJobRepository, profiles domain.BillingProfileRepository, runner PipelineRunner, logger zerolog.Logger, metrics *Metrics) *Service {
	return &Service{
		jobs:     jobs,
		profiles: profiles,
		runner:   runner,
		logger:   logger,
		metrics:  metrics,
	}
}

// AttachWaker wires the worker pool nudge. Optional; without it the pool
// picks jobs up on its next poll tick.
func (s *Service) AttachWaker(w Waker) {
	s.waker = w
}

// Submit validates entitlement and creates the job record in processing
// state. Returns the job id and a human-readable duration estimate; the
// caller never waits for the pipeline.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if in.UserID == "" {
		return SubmitResult{}, domain.ErrUnauthorized
	}

	profile, err := s.profiles.GetByUserID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return SubmitResult{}, err
		}
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrProfileNotFound, err)
	}

	cfg, err := domain.ResolveTier(in.Tier)
	if err != nil {
		return SubmitResult{}, err
	}

	if cfg.Name != domain.TierFree && profile.IsFree() {
		return SubmitResult{}, domain.ErrUpgradeRequired
	}
	if profile.IsFree() && profile.CreditsRemaining <= 0 {
		return SubmitResult{}, domain.ErrInsufficientCredits
	}

	job := &domain.RenderJob{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		ProjectID:      in.ProjectID,
		SourceImageURL: in.SourceImageURL,
		Style:          in.Style,
		Settings: domain.RenderSettings{
			Tier:       string(cfg.Name),
			RoomType:   in.RoomType,
			Atmosphere: in.Atmosphere,
			ColorTone:  in.ColorTone,
		},
		Status: domain.StatusProcessing,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return SubmitResult{}, fmt.Errorf("create render job: %w", err)
	}

	s.metrics.submitted(string(cfg.Name))
	if s.waker != nil {
		s.waker.Wake()
	}
	s.logger.Info().Str("job_id", job.ID).Str("user_id", in.UserID).Str("tier", string(cfg.Name)).Msg("render: submitted")

	return SubmitResult{RenderID: job.ID, EstimatedTime: EstimatedTime(cfg.Name)}, nil
}

// Status returns the current job record, scoped by owner.
func (s *Service) Status(ctx context.Context, jobID, userID string) (*domain.RenderJob, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.jobs.GetByIDForUser(ctx, jobID, userID)
}

// Process is the background completion handler invoked by the worker pool.
// It always terminates the job record, even when the pipeline panics; if the
// terminal update itself fails, the error is logged and not retried.
func (s *Service) Process(ctx context.Context, job *domain.RenderJob) {
	start := time.Now()
	s.metrics.renderStarted()
	defer s.metrics.renderStopped()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job_id", job.ID).Interface("panic", r).Msg("render: pipeline panicked")
			s.fail(ctx, job, fmt.Sprintf("internal error: %v", r), time.Since(start))
		}
	}()

	cfg, err := domain.ResolveTier(job.Settings.Tier)
	if err != nil {
		s.fail(ctx, job, err.Error(), time.Since(start))
		return
	}

	positive, negative := prompt.Build(job.Settings.RoomType, job.Style, job.Settings.Atmosphere, job.Settings.ColorTone)

	result, err := s.runner.Run(ctx, job.SourceImageURL, cfg, positive, negative)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Str("tier", string(cfg.Name)).Msg("render: pipeline failed")
		s.fail(ctx, job, err.Error(), elapsed)
		return
	}

	if err := s.jobs.MarkCompleted(ctx, job.ID, result.OutputImageURL, elapsed.Milliseconds()); err != nil {
		// The record may stay in processing; the stale sweep bounds that gap.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("render: completion update failed")
		return
	}
	s.metrics.finished(job.Settings.Tier, string(domain.StatusCompleted), elapsed.Seconds())
	s.logger.Info().Str("job_id", job.ID).Str("backend_job", result.BackendJobRef).Dur("took", elapsed).Msg("render: completed")

	// Credits are consumed only by successful free-tier renders. The
	// decrement is a second independent operation; a failure here leaves the
	// completed record intact.
	if cfg.Name == domain.TierFree {
		if err := s.profiles.DecrementCredits(ctx, job.UserID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Str("user_id", job.UserID).Msg("render: credit decrement failed")
			return
		}
		s.metrics.creditConsumed()
	}
}

func (s *Service) fail(ctx context.Context, job *domain.RenderJob, message string, elapsed time.Duration) {
	if err := s.jobs.MarkFailed(ctx, job.ID, message, elapsed.Milliseconds()); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("render: failure update failed")
		return
	}
	s.metrics.finished(job.Settings.Tier, string(domain.StatusFailed), elapsed.Seconds())
}

// EstimatedTime returns the human-readable duration estimate for a tier. The
// default arm covers unrecognized tiers defensively; validated submissions
// never reach it.
func EstimatedTime(tier domain.Tier) string {
	switch tier {
	case domain.TierFree:
		return "10-15 seconds"
	case domain.TierProfessional:
		return "20-30 seconds"
	case domain.TierStudio:
		return "45-60 seconds"
	default:
		return "30 seconds"
	}
}
