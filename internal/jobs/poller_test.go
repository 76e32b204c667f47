package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// sequenceFetcher walks through a scripted list of statuses, one per poll.
type sequenceFetcher struct {
	mu       sync.Mutex
	statuses []string
	errs     []error
	calls    int
}

func (f *sequenceFetcher) GetTaskStatus(ctx context.Context, taskID string) (*models.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	status := f.statuses[len(f.statuses)-1]
	if i < len(f.statuses) {
		status = f.statuses[i]
	}
	return &models.JobStatus{ID: taskID, Status: status, UpdatedAt: time.Now()}, nil
}

func TestPoller_WatchStopsOnTerminalStatus(t *testing.T) {
	fetcher := &sequenceFetcher{statuses: []string{"running", "running", "completed"}}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	var seen []string
	status, err := poller.Watch(context.Background(), "t1", func(s models.JobStatus) {
		seen = append(seen, s.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, []string{"running", "running", "completed"}, seen,
		"every observation including the final one reaches the callback")
}

func TestPoller_WatchSkipsPollErrors(t *testing.T) {
	fetcher := &sequenceFetcher{
		statuses: []string{"running", "running", "stopped"},
		errs:     []error{nil, errors.New("poll blip"), nil},
	}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	status, err := poller.Watch(context.Background(), "t1", nil)
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.Status)
}

func TestPoller_WatchHonorsContextCancel(t *testing.T) {
	fetcher := &sequenceFetcher{statuses: []string{"running"}}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := poller.Watch(ctx, "t1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoller_WaitForTerminalTimesOut(t *testing.T) {
	fetcher := &sequenceFetcher{statuses: []string{"running"}}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	_, err := poller.WaitForTerminal(context.Background(), "t1", 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoller_WaitForTerminalReturnsFinalStatus(t *testing.T) {
	fetcher := &sequenceFetcher{statuses: []string{"stopping", "stopped"}}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	status, err := poller.WaitForTerminal(context.Background(), "t1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.Status)
}

func TestPoller_PollFailureLogsTaskID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logging.Setup(logging.Config{Level: "warn", Format: "json", Output: &buf})

	fetcher := &sequenceFetcher{
		statuses: []string{"running", "completed"},
		errs:     []error{errors.New("backend hiccup"), nil},
	}
	poller := NewPoller(fetcher, WithInterval(5*time.Millisecond))

	_, err := poller.Watch(context.Background(), "task-77", nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "status poll failed")
	assert.Contains(t, out, `"task_id":"task-77"`, "watch scopes its log records to the task")
	assert.Contains(t, out, "backend hiccup")
}

func TestPoller_DisposeIsIdempotent(t *testing.T) {
	poller := NewPoller(&sequenceFetcher{statuses: []string{"running"}})
	poller.Dispose()
	poller.Dispose()
}
