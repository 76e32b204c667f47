// Package jobs provides the job status polling hook used by the CLI views.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// DefaultInterval is the status poll cadence.
const DefaultInterval = 5 * time.Second

// StatusFetcher fetches the lightweight status record for a job.
type StatusFetcher interface {
	GetTaskStatus(ctx context.Context, taskID string) (*models.JobStatus, error)
}

// Poller repeatedly fetches one job's status. Each cycle carries an abort
// handle: starting a new cycle cancels any request still in flight from the
// previous one, so a slow old response can never overwrite a newer one.
type Poller struct {
	client   StatusFetcher
	interval time.Duration

	mu    sync.Mutex
	abort context.CancelFunc
}

// Option configures the poller.
type Option func(*Poller)

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// NewPoller creates a status poller.
func NewPoller(client StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// beginCycle cancels the previous in-flight request and registers a new
// abort handle for this cycle.
func (p *Poller) beginCycle(ctx context.Context) (context.Context, context.CancelFunc) {
	cycleCtx, cancel := context.WithTimeout(ctx, p.interval)

	p.mu.Lock()
	if p.abort != nil {
		p.abort()
	}
	p.abort = cancel
	p.mu.Unlock()

	return cycleCtx, cancel
}

// Dispose cancels any in-flight request. Safe to call multiple times.
func (p *Poller) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abort != nil {
		p.abort()
		p.abort = nil
	}
}

// Watch polls the job until it reaches a final status or the context is
// cancelled, invoking onStatus for every observation (including the final
// one). Poll errors are logged and skipped; the next tick retries.
func (p *Poller) Watch(ctx context.Context, taskID string, onStatus func(models.JobStatus)) (*models.JobStatus, error) {
	defer p.Dispose()

	ctx = logging.WithTaskID(ctx, taskID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First observation happens immediately, not one interval in.
	if status, done := p.poll(ctx, taskID, onStatus); done {
		return status, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if status, done := p.poll(ctx, taskID, onStatus); done {
				return status, nil
			}
		}
	}
}

// poll runs one cycle. It reports the observed status and whether it is
// final.
func (p *Poller) poll(ctx context.Context, taskID string, onStatus func(models.JobStatus)) (*models.JobStatus, bool) {
	cycleCtx, cancel := p.beginCycle(ctx)
	defer cancel()

	status, err := p.client.GetTaskStatus(cycleCtx, taskID)
	if err != nil {
		if ctx.Err() == nil {
			logging.Warn(ctx, "status poll failed",
				slog.String("error", err.Error()))
		}
		return nil, false
	}

	if onStatus != nil {
		onStatus(*status)
	}
	return status, models.IsTerminalStatus(status.Status)
}

// WaitForTerminal polls until the job reaches a final status or the timeout
// elapses.
func (p *Poller) WaitForTerminal(ctx context.Context, taskID string, timeout time.Duration) (*models.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := p.Watch(ctx, taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("waiting for task %s to finish: %w", taskID, err)
	}
	return status, nil
}
