package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aquarelle/internal/domain"
)

// RenderJobRepositoryPG implements domain.RenderJobRepository.
type RenderJobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRenderJobRepository creates a new render job repository backed by PostgreSQL.
func NewRenderJobRepository(pool *pgxpool.Pool) *RenderJobRepositoryPG {
	return &RenderJobRepositoryPG{pool: pool}
}

const renderJobColumns = `id, user_id, project_id, source_image_url, style, settings, status, output_image_url, error_message, processing_ms, claimed_at, created_at, updated_at`

// Create inserts a new render job record.
func (r *RenderJobRepositoryPG) Create(ctx context.Context, job *domain.RenderJob) error {
	query := `
INSERT INTO render_jobs (id, user_id, project_id, source_image_url, style, settings, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		nullableText(job.ProjectID),
		job.SourceImageURL,
		job.Style,
		job.SettingsJSON(),
		job.Status,
	)
	return err
}

// GetByIDForUser fetches a job scoped by owner.
func (r *RenderJobRepositoryPG) GetByIDForUser(ctx context.Context, jobID, userID string) (*domain.RenderJob, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM render_jobs
WHERE id = $1 AND user_id = $2;
`, renderJobColumns)
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID, userID))
}

// MarkCompleted applies the processing -> completed transition.
func (r *RenderJobRepositoryPG) MarkCompleted(ctx context.Context, jobID, outputURL string, durationMS int64) error {
	query := `
UPDATE render_jobs
SET status = 'completed',
    output_image_url = $2,
    processing_ms = $3,
    updated_at = NOW()
WHERE id = $1 AND status = 'processing';
`
	return r.applyTerminal(ctx, query, jobID, outputURL, durationMS)
}

// MarkFailed applies the processing -> failed transition.
func (r *RenderJobRepositoryPG) MarkFailed(ctx context.Context, jobID, message string, durationMS int64) error {
	query := `
UPDATE render_jobs
SET status = 'failed',
    error_message = $2,
    processing_ms = $3,
    updated_at = NOW()
WHERE id = $1 AND status = 'processing';
`
	return r.applyTerminal(ctx, query, jobID, message, durationMS)
}

func (r *RenderJobRepositoryPG) applyTerminal(ctx context.Context, query, jobID string, payload any, durationMS int64) error {
	tag, err := r.pool.Exec(ctx, query, jobID, payload, durationMS)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimNext claims the oldest unclaimed processing job using SKIP LOCKED so
// concurrent workers never receive the same job.
func (r *RenderJobRepositoryPG) ClaimNext(ctx context.Context) (*domain.RenderJob, error) {
	query := fmt.Sprintf(`
UPDATE render_jobs
SET claimed_at = NOW()
WHERE id = (
	SELECT id FROM render_jobs
	WHERE status = 'processing' AND claimed_at IS NULL
	ORDER BY created_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING %s;
`, renderJobColumns)
	return r.scanJob(r.pool.QueryRow(ctx, query))
}

// FailStale terminates claimed processing jobs whose claim predates the
// deadline. Keeps the stuck-in-processing window bounded.
func (r *RenderJobRepositoryPG) FailStale(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
UPDATE render_jobs
SET status = 'failed',
    error_message = 'processing deadline exceeded',
    updated_at = NOW()
WHERE status = 'processing' AND claimed_at IS NOT NULL AND claimed_at < $1;
`
	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *RenderJobRepositoryPG) scanJob(row pgx.Row) (*domain.RenderJob, error) {
	var (
		job       domain.RenderJob
		projectID *string
		settings  []byte
		outputURL *string
		errMsg    *string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&projectID,
		&job.SourceImageURL,
		&job.Style,
		&settings,
		&job.Status,
		&outputURL,
		&errMsg,
		&job.ProcessingMS,
		&job.ClaimedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if projectID != nil {
		job.ProjectID = *projectID
	}
	if outputURL != nil {
		job.OutputImageURL = *outputURL
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if len(settings) > 0 {
		_ = json.Unmarshal(settings, &job.Settings)
	}
	return &job, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
