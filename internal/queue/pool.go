package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aquarelle/internal/domain"
)

// Handler processes one claimed render job. It must terminate the job record
// itself; the pool never retries.
type Handler func(ctx context.Context, job *domain.RenderJob)

// Options tune the pool. Zero values fall back to defaults.
type Options struct {
	Workers       int
	PollInterval  time.Duration
	StaleDeadline time.Duration
}

// Pool is a bounded worker pool consuming the persisted render job table.
// Each worker loops claim -> handle -> claim; jobs survive process restarts
// because the table, not process memory, is the queue. A periodic reconciler
// sweeps jobs whose claim outlived the stale deadline so a crashed worker
// cannot leave a record in processing forever.
type Pool struct {
	repo    domain.RenderJobRepository
	handler Handler
	logger  zerolog.Logger
	opts    Options

	wake chan struct{}
	wg   sync.WaitGroup
}

func NewPool(repo domain.RenderJobRepository, handler Handler, logger zerolog.Logger, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.StaleDeadline <= 0 {
		opts.StaleDeadline = 15 * time.Minute
	}
	return &Pool{
		repo:    repo,
		handler: handler,
		logger:  logger,
		opts:    opts,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the workers and the reconciler. It returns immediately;
// call Wait after cancelling ctx to drain in-flight jobs.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.runWorker(ctx, worker)
		}(i)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runReconciler(ctx)
	}()
	p.logger.Info().Int("workers", p.opts.Workers).Msg("queue: started")
}

// Wake nudges an idle worker so a fresh submission is picked up without
// waiting for the next poll tick. Non-blocking; coalesces with a pending nudge.
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until all workers and the reconciler have stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.repo.ClaimNext(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.logger.Error().Err(err).Int("worker", worker).Msg("queue: claim failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			case <-time.After(p.opts.PollInterval):
			}
			continue
		}

		p.logger.Info().Int("worker", worker).Str("job_id", job.ID).Msg("queue: picked job")
		p.handler(ctx, job)
	}
}

func (p *Pool) runReconciler(ctx context.Context) {
	interval := p.opts.StaleDeadline / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := p.repo.FailStale(ctx, time.Now().Add(-p.opts.StaleDeadline))
			if err != nil {
				p.logger.Error().Err(err).Msg("queue: stale sweep failed")
				continue
			}
			if swept > 0 {
				p.logger.Warn().Int("swept", swept).Msg("queue: terminated stale jobs")
			}
		}
	}
}
