package logview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedFetcher serves canned chunks and records fetch calls.
type scriptedFetcher struct {
	mu     sync.Mutex
	chunks []Chunk
	err    error
	calls  int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, offset int64, tail int) (Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Chunk{}, f.err
	}
	if len(f.chunks) == 0 {
		return Chunk{Offset: offset}, nil
	}
	chunk := f.chunks[0]
	if len(f.chunks) > 1 {
		f.chunks = f.chunks[1:]
	}
	return chunk, nil
}

func (f *scriptedFetcher) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestFollower(t *testing.T, fetcher Fetcher, target Target) (*Follower, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewFollower(fetcher, target, WithClock(clock.Now)), clock
}

func TestFollower_LoadSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{{Content: "line 1\nline 2\n", Offset: 14}}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend", Tail: 100})

	require.NoError(t, f.Load(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, "line 1\nline 2\n", snap.Logs)
	assert.Nil(t, snap.FatalErr)
	assert.True(t, snap.AutoRefresh)
	assert.True(t, snap.FollowTail)
}

func TestFollower_LoadFailureIsFatal(t *testing.T) {
	fetcher := &scriptedFetcher{err: errors.New("connection refused")}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})

	require.Error(t, f.Load(context.Background()))

	snap := f.Snapshot()
	assert.Error(t, snap.FatalErr)

	// A fatal error blocks subsequent ticks.
	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount(), "tick should be skipped while fatal error is pending")
}

func TestFollower_TickAppendsIncrementally(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{
		{Content: "a\n", Offset: 2},
		{Content: "b\n", Offset: 4},
	}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.Tick(context.Background())
	assert.Equal(t, "a\nb\n", f.Snapshot().Logs)
}

func TestFollower_TickFailureKeepsContentAndParks(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{{Content: "kept\n", Offset: 5}}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	fetcher.setError(errors.New("gateway timeout"))
	f.Tick(context.Background())

	snap := f.Snapshot()
	assert.Equal(t, "kept\n", snap.Logs, "displayed content must survive a failed poll")
	assert.Error(t, snap.FetchErr)

	// Parked: further ticks do not fetch until a manual refresh.
	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount())

	fetcher.setError(nil)
	require.NoError(t, f.ManualRefresh(context.Background()))
	assert.Nil(t, f.Snapshot().FetchErr)

	f.Tick(context.Background())
	assert.Greater(t, fetcher.callCount(), calls+1, "ticks resume after manual refresh")
}

func TestFollower_ScrollUpPausesExactlyOnce(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, EffectPaused, f.HandleScroll(120, true))

	snap := f.Snapshot()
	assert.False(t, snap.FollowTail)
	assert.False(t, snap.AutoRefresh)
	assert.True(t, snap.JumpVisible)

	// Scrolling further up changes nothing.
	assert.Equal(t, EffectNone, f.HandleScroll(400, true))
	assert.Equal(t, EffectNone, f.HandleScroll(400, true))

	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount(), "paused view must not poll")
}

func TestFollower_ScrollShortDistanceDoesNotPause(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, EffectNone, f.HandleScroll(30, true))
	assert.True(t, f.Snapshot().FollowTail)
	assert.True(t, f.Snapshot().AutoRefresh)
}

func TestFollower_ScrollBackRestoresFollowNotRefresh(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.HandleScroll(120, true)
	assert.Equal(t, EffectResumed, f.HandleScroll(5, false))

	snap := f.Snapshot()
	assert.True(t, snap.FollowTail)
	assert.False(t, snap.JumpVisible)
	assert.False(t, snap.AutoRefresh, "plain scroll to bottom must not re-enable polling")
}

func TestFollower_JumpToBottomResumesAfterGrace(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, clock := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.HandleScroll(120, true)
	f.JumpToBottom()

	snap := f.Snapshot()
	assert.True(t, snap.FollowTail)
	assert.False(t, snap.JumpVisible)
	assert.False(t, snap.AutoRefresh, "auto-refresh stays off during the grace window")

	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount())

	clock.Advance(ResumeGrace)
	f.Tick(context.Background())
	assert.Greater(t, fetcher.callCount(), calls)
	assert.True(t, f.Snapshot().AutoRefresh)
}

func TestFollower_TerminalStatusDisablesRefreshPermanently(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, clock := newTestFollower(t, fetcher, Target{TaskID: "task-1"})
	require.NoError(t, f.Load(context.Background()))

	f.ObserveStatus("running")
	assert.True(t, f.Snapshot().AutoRefresh)

	f.ObserveStatus("COMPLETED")
	snap := f.Snapshot()
	assert.True(t, snap.Terminal)
	assert.False(t, snap.AutoRefresh)

	assert.ErrorIs(t, f.SetAutoRefresh(true), ErrRefreshDisabled)

	// The jump affordance still works for reading, but never schedules a
	// resume on a finished task.
	f.JumpToBottom()
	clock.Advance(10 * ResumeGrace)
	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount())
}

func TestFollower_ServiceViewIgnoresStatus(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.ObserveStatus("completed")
	assert.False(t, f.Snapshot().Terminal)
	assert.True(t, f.Snapshot().AutoRefresh)
}

func TestFollower_HiddenViewSkipsTicks(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.SetVisible(context.Background(), false)
	calls := fetcher.callCount()
	f.Tick(context.Background())
	assert.Equal(t, calls, fetcher.callCount())
}

func TestFollower_VisibleAgainForcesRefreshWhenStale(t *testing.T) {
	fetcher := &scriptedFetcher{}
	f, clock := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.SetVisible(context.Background(), false)
	calls := fetcher.callCount()

	// Recently fetched: becoming visible does not refresh.
	f.SetVisible(context.Background(), true)
	assert.Equal(t, calls, fetcher.callCount())

	f.SetVisible(context.Background(), false)
	clock.Advance(StaleAge + time.Second)
	f.SetVisible(context.Background(), true)
	assert.Greater(t, fetcher.callCount(), calls, "stale content forces an immediate refresh")
}

func TestFollower_SetTargetResetsState(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{
		{Content: "old\n", Offset: 4},
		{Content: "new\n", Offset: 4},
	}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.SetSearch("old")
	f.HandleScroll(120, true)

	require.NoError(t, f.SetTarget(context.Background(), Target{Service: "engine"}))

	snap := f.Snapshot()
	assert.Equal(t, "new\n", snap.Logs)
	assert.Empty(t, snap.SearchTerm)
	assert.True(t, snap.FollowTail)
	assert.True(t, snap.AutoRefresh)
	assert.Equal(t, "service/engine", f.Target().Key())
}

func TestFollower_SearchFiltersCaseInsensitively(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{
		{Content: "INFO ready\nERROR boom\nINFO steady\n", Offset: 34},
	}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	f.SetSearch("error")
	snap := f.Snapshot()
	assert.Contains(t, snap.FilteredLogs, "ERROR boom")
	assert.NotContains(t, snap.FilteredLogs, "INFO ready")
	assert.Contains(t, snap.Logs, "INFO ready", "raw content is unaffected by the filter")
}

func TestFollower_ConcurrentRefreshesAppendOnce(t *testing.T) {
	var entered sync.WaitGroup
	entered.Add(2)
	release := make(chan struct{})

	// After the initial load, every fetch blocks until both refreshers are
	// in flight, then both get the same window back.
	fetcher := FetcherFunc(func(ctx context.Context, offset int64, tail int) (Chunk, error) {
		if offset == 0 {
			return Chunk{Content: "start\n", Offset: 6}, nil
		}
		entered.Done()
		<-release
		return Chunk{Content: "tail\n", Offset: 11}, nil
	})

	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	var done sync.WaitGroup
	done.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer done.Done()
			_ = f.ManualRefresh(context.Background())
		}()
	}
	entered.Wait()
	close(release)
	done.Wait()

	snap := f.Snapshot()
	assert.Equal(t, "start\ntail\n", snap.Logs,
		"two in-flight fetches from the same offset must append the window once")
}

func TestFollower_TickReportsWhetherItPolled(t *testing.T) {
	fetcher := &scriptedFetcher{chunks: []Chunk{{Content: "a\n", Offset: 2}}}
	f, _ := newTestFollower(t, fetcher, Target{Service: "backend"})
	require.NoError(t, f.Load(context.Background()))

	assert.True(t, f.Tick(context.Background()))

	f.HandleScroll(120, true)
	assert.False(t, f.Tick(context.Background()), "paused view reports no poll")

	require.NoError(t, f.SetAutoRefresh(true))
	fetcher.setError(errors.New("gateway timeout"))
	assert.True(t, f.Tick(context.Background()), "the failing fetch itself still polled")
	assert.False(t, f.Tick(context.Background()), "parked view reports no poll")
}

func TestTarget_Key(t *testing.T) {
	assert.Equal(t, "task/abc", Target{TaskID: "abc"}.Key())
	assert.Equal(t, "service/backend", Target{Service: "backend"}.Key())
}
