// Package logview implements the auto-refreshing log viewer: a UI-agnostic
// state machine that tails a log stream, pauses when the reader moves away
// from the bottom, and coordinates polling across console processes.
package logview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
	"github.com/ymghtzz/LMeterX-sub000/internal/metrics"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

const (
	// PollInterval is the steady-state refresh cadence.
	PollInterval = 3 * time.Second

	// PauseThreshold is the distance from the bottom (rows) beyond which an
	// upward scroll pauses following.
	PauseThreshold = 50

	// ResumeThreshold is the distance from the bottom within which the view
	// snaps back to following.
	ResumeThreshold = 10

	// ResumeGrace is the delay before auto-refresh resumes after the reader
	// jumps back to the bottom via the affordance.
	ResumeGrace = 2 * time.Second

	// StaleAge forces an immediate refresh when the view becomes visible
	// again and the last successful fetch is older than this.
	StaleAge = 30 * time.Second
)

// ErrRefreshDisabled is returned when toggling auto-refresh on a view whose
// job has reached a final status.
var ErrRefreshDisabled = errors.New("auto-refresh is disabled for finished tasks")

// Chunk is one fetched window of log content.
type Chunk struct {
	Content string
	Offset  int64
}

// Fetcher retrieves log content for one target. offset selects the read
// position for incremental fetches; tail limits the initial window (0 = all).
type Fetcher interface {
	Fetch(ctx context.Context, offset int64, tail int) (Chunk, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, offset int64, tail int) (Chunk, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, offset int64, tail int) (Chunk, error) {
	return f(ctx, offset, tail)
}

// Target identifies the log stream being viewed: either a backend service
// by name or one benchmark task by id. Task-scoped views stop refreshing
// permanently once the job finishes.
type Target struct {
	Service string
	TaskID  string
	Tail    int
}

// Key names the target for cross-process poll coordination.
func (t Target) Key() string {
	if t.TaskID != "" {
		return "task/" + t.TaskID
	}
	return "service/" + t.Service
}

// ScrollEffect reports the state transition caused by a scroll event.
type ScrollEffect int

const (
	// EffectNone means the scroll changed nothing.
	EffectNone ScrollEffect = iota
	// EffectPaused means following stopped and the jump affordance appeared.
	EffectPaused
	// EffectResumed means the view snapped back to following.
	EffectResumed
)

// Snapshot is a point-in-time copy of the viewer state for rendering.
type Snapshot struct {
	Logs          string
	FilteredLogs  string
	SearchTerm    string
	AutoRefresh   bool
	FollowTail    bool
	JumpVisible   bool
	FetchErr      error
	FatalErr      error
	Terminal      bool
	LastSuccessAt time.Time
}

// Follower is the log viewer state machine. All inputs are explicit method
// calls; it owns no timers, so a CLI loop or any other front end can drive
// it. Safe for concurrent use.
type Follower struct {
	mu      sync.Mutex
	fetcher Fetcher
	target  Target
	now     func() time.Time

	logs        strings.Builder
	offset      int64
	searchTerm  string
	autoRefresh bool
	followTail  bool
	jumpVisible bool
	visible     bool
	terminal    bool
	fetchErr    error
	fatalErr    error
	lastSuccess time.Time

	// resumeAt delays auto-refresh after a jump back to the bottom. Zero
	// means no pending resume.
	resumeAt time.Time
}

// Option configures a Follower.
type Option func(*Follower)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(f *Follower) {
		f.now = now
	}
}

// NewFollower creates a follower for the given target. Call Load before the
// first render.
func NewFollower(fetcher Fetcher, target Target, opts ...Option) *Follower {
	f := &Follower{
		fetcher:     fetcher,
		target:      target,
		now:         time.Now,
		autoRefresh: true,
		followTail:  true,
		visible:     true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Target returns the stream this follower is viewing.
func (f *Follower) Target() Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

// Load performs the blocking initial fetch. A failure here is fatal: there
// is nothing to show yet, so the view renders an error screen instead of
// log content.
func (f *Follower) Load(ctx context.Context) error {
	f.mu.Lock()
	target := f.target
	f.mu.Unlock()

	chunk, err := f.fetcher.Fetch(ctx, 0, target.Tail)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.fatalErr = err
		return err
	}
	f.fatalErr = nil
	f.fetchErr = nil
	f.logs.Reset()
	f.logs.WriteString(chunk.Content)
	f.offset = chunk.Offset
	f.lastSuccess = f.now()
	return nil
}

// SetTarget switches the viewed stream or tail size: search is reset, the
// view snaps back to following, and a fresh blocking load runs.
func (f *Follower) SetTarget(ctx context.Context, target Target) error {
	f.mu.Lock()
	f.target = target
	f.searchTerm = ""
	f.followTail = true
	f.jumpVisible = false
	f.terminal = false
	f.autoRefresh = true
	f.offset = 0
	f.resumeAt = time.Time{}
	f.mu.Unlock()

	return f.Load(ctx)
}

// shouldTick reports whether a poll tick may fetch right now. Callers must
// hold f.mu.
func (f *Follower) shouldTick(now time.Time) bool {
	f.applyPendingResume(now)
	return f.autoRefresh &&
		f.visible &&
		f.fetchErr == nil &&
		f.fatalErr == nil &&
		!f.terminal
}

// applyPendingResume flips auto-refresh back on once the grace delay after a
// jump-to-bottom has elapsed. Callers must hold f.mu.
func (f *Follower) applyPendingResume(now time.Time) {
	if !f.resumeAt.IsZero() && !now.Before(f.resumeAt) {
		f.autoRefresh = true
		f.resumeAt = time.Time{}
	}
}

// Tick runs one poll cycle and reports whether a fetch was actually issued.
// Ineligible ticks (paused, hidden, pending error, finished task) are skipped
// silently and return false. A failed fetch parks the poller: the displayed
// content is left untouched, the error is surfaced as a non-fatal warning,
// and subsequent ticks skip until ManualRefresh clears it.
func (f *Follower) Tick(ctx context.Context) bool {
	f.mu.Lock()
	if !f.shouldTick(f.now()) {
		f.mu.Unlock()
		metrics.RecordPollTick("skipped")
		return false
	}
	offset := f.offset
	f.mu.Unlock()

	chunk, err := f.fetcher.Fetch(ctx, offset, 0)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.fetchErr = err
		metrics.RecordPollTick("failure")
		logging.Warn(ctx, "log poll failed, pausing until manual retry",
			slog.String("target", f.target.Key()),
			slog.String("error", err.Error()))
		return true
	}
	f.appendChunk(offset, chunk)
	f.fetchErr = nil
	f.lastSuccess = f.now()
	metrics.RecordPollTick("success")
	return true
}

// appendChunk merges an incremental fetch into the buffer. fetchedFrom is the
// offset the fetch was issued at; if another fetch already advanced past it,
// the chunk is stale and dropped to keep concurrent refreshes from appending
// the same window twice. Callers must hold f.mu.
func (f *Follower) appendChunk(fetchedFrom int64, chunk Chunk) {
	if f.offset != fetchedFrom {
		return
	}
	if chunk.Content != "" {
		f.logs.WriteString(chunk.Content)
	}
	if chunk.Offset > f.offset {
		f.offset = chunk.Offset
	}
}

// HandleScroll feeds one scroll event into the machine. distance is how far
// the view sits above the bottom; up is the scroll direction.
func (f *Follower) HandleScroll(distance int, up bool) ScrollEffect {
	f.mu.Lock()
	defer f.mu.Unlock()

	if up && distance > PauseThreshold {
		if !f.followTail {
			// Already paused; repeated upward scrolls are idempotent.
			return EffectNone
		}
		f.followTail = false
		f.jumpVisible = true
		f.autoRefresh = false
		f.resumeAt = time.Time{}
		return EffectPaused
	}

	if distance < ResumeThreshold {
		if f.followTail && !f.jumpVisible {
			return EffectNone
		}
		f.followTail = true
		f.jumpVisible = false
		return EffectResumed
	}

	return EffectNone
}

// JumpToBottom is the affordance action: snap back to following and resume
// auto-refresh after the grace delay (unless the task already finished).
func (f *Follower) JumpToBottom() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.followTail = true
	f.jumpVisible = false
	if !f.terminal {
		f.resumeAt = f.now().Add(ResumeGrace)
	}
}

// ManualRefresh always fetches, regardless of timer state, clearing both
// error flags before retrying.
func (f *Follower) ManualRefresh(ctx context.Context) error {
	f.mu.Lock()
	f.fetchErr = nil
	f.fatalErr = nil
	offset := f.offset
	f.mu.Unlock()

	chunk, err := f.fetcher.Fetch(ctx, offset, 0)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.fetchErr = err
		return err
	}
	f.appendChunk(offset, chunk)
	f.lastSuccess = f.now()
	return nil
}

// SetVisible tracks view visibility. Hiding suspends polling (the driving
// loop tears its ticker down); becoming visible again forces a refresh when
// the content is older than StaleAge, otherwise polling resumes at the
// normal cadence.
func (f *Follower) SetVisible(ctx context.Context, visible bool) {
	f.mu.Lock()
	f.visible = visible
	stale := visible && f.now().Sub(f.lastSuccess) > StaleAge
	f.mu.Unlock()

	if stale {
		if err := f.ManualRefresh(ctx); err != nil {
			logging.Warn(ctx, "forced refresh after becoming visible failed",
				slog.String("error", err.Error()))
		}
	}
}

// ObserveStatus feeds a job status observation into a task-scoped view.
// A final status turns auto-refresh off permanently and disables the toggle.
func (f *Follower) ObserveStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.target.TaskID == "" || f.terminal {
		return
	}
	if models.IsTerminalStatus(status) {
		f.terminal = true
		f.autoRefresh = false
		f.resumeAt = time.Time{}
	}
}

// SetAutoRefresh toggles polling. The toggle is disabled once a task-scoped
// view has observed a final status.
func (f *Follower) SetAutoRefresh(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminal {
		return ErrRefreshDisabled
	}
	f.autoRefresh = on
	if !on {
		f.resumeAt = time.Time{}
	}
	return nil
}

// SetSearch updates the filter term applied to the rendered view.
func (f *Follower) SetSearch(term string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchTerm = term
}

// Snapshot returns a copy of the current state for rendering.
func (f *Follower) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.applyPendingResume(f.now())

	logs := f.logs.String()
	return Snapshot{
		Logs:          logs,
		FilteredLogs:  filterLines(logs, f.searchTerm),
		SearchTerm:    f.searchTerm,
		AutoRefresh:   f.autoRefresh,
		FollowTail:    f.followTail,
		JumpVisible:   f.jumpVisible,
		FetchErr:      f.fetchErr,
		FatalErr:      f.fatalErr,
		Terminal:      f.terminal,
		LastSuccessAt: f.lastSuccess,
	}
}

// filterLines keeps the lines containing term, case-insensitively. An empty
// term returns the input unchanged.
func filterLines(logs, term string) string {
	if term == "" {
		return logs
	}
	needle := strings.ToLower(term)
	lines := strings.Split(logs, "\n")
	matched := lines[:0]
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			matched = append(matched, line)
		}
	}
	return strings.Join(matched, "\n")
}
