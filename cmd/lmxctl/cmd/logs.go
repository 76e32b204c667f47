package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/jobs"
	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
	"github.com/ymghtzz/LMeterX-sub000/internal/logview"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

var (
	logsTask   string
	logsTail   int
	logsFollow bool
	logsSearch string
)

var logsCmd = &cobra.Command{
	Use:   "logs [service]",
	Short: "View service or task logs",
	Long: `View the log tail of a backend service or a benchmark task.

With --follow the view refreshes every few seconds until interrupted.
While following, press Enter to retry after a fetch error and q to quit.
For task logs, following stops automatically once the job finishes.`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsTask, "task", "t", "", "View logs of this task instead of a service")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 0, "Number of most-recent lines (0 = config default)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep refreshing the view")
	logsCmd.Flags().StringVar(&logsSearch, "search", "", "Only show lines containing this term")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsTask == "" && len(args) == 0 {
		return fmt.Errorf("either a service name or --task is required")
	}
	if logsTask != "" && len(args) > 0 {
		return fmt.Errorf("a service name and --task are mutually exclusive")
	}

	tail := logsTail
	if tail == 0 {
		tail = cfg.Logs.DefaultTail
	}

	client := newClient()
	target := logview.Target{Tail: tail}
	var fetcher logview.Fetcher
	if logsTask != "" {
		target.TaskID = logsTask
		fetcher = taskLogFetcher(client, logsTask)
	} else {
		target.Service = args[0]
		fetcher = serviceLogFetcher(client, args[0])
	}

	follower := logview.NewFollower(fetcher, target)
	follower.SetSearch(logsSearch)

	// The initial fetch is blocking: with nothing on screen yet, a failure
	// here is fatal rather than a dismissable warning.
	if err := follower.Load(cmd.Context()); err != nil {
		return fmt.Errorf("initial log fetch failed: %w", err)
	}

	printed := printLogDelta(follower.Snapshot(), 0)

	if !logsFollow {
		return nil
	}
	return followLogs(cmd.Context(), client, follower, target, printed)
}

func taskLogFetcher(client *api.Client, taskID string) logview.Fetcher {
	return logview.FetcherFunc(func(ctx context.Context, offset int64, tail int) (logview.Chunk, error) {
		chunk, err := client.TaskLogs(ctx, taskID, api.LogQuery{Offset: offset, Tail: tail})
		if err != nil {
			return logview.Chunk{}, err
		}
		return logview.Chunk{Content: chunk.Content, Offset: chunk.Offset}, nil
	})
}

func serviceLogFetcher(client *api.Client, service string) logview.Fetcher {
	return logview.FetcherFunc(func(ctx context.Context, offset int64, tail int) (logview.Chunk, error) {
		chunk, err := client.ServiceLogs(ctx, service, api.LogQuery{Offset: offset, Tail: tail})
		if err != nil {
			return logview.Chunk{}, err
		}
		return logview.Chunk{Content: chunk.Content, Offset: chunk.Offset}, nil
	})
}

func followLogs(ctx context.Context, client *api.Client, follower *logview.Follower, target logview.Target, printed int) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	coordinator := logview.NewCoordinator(store)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if target.Service != "" {
		ctx = logging.WithService(ctx, target.Service)
	}

	// Task-scoped views watch the job status so following shuts off once
	// the job reaches a final state.
	if target.TaskID != "" {
		poller := jobs.NewPoller(client)
		go func() {
			_, err := poller.Watch(ctx, target.TaskID, func(status models.JobStatus) {
				follower.ObserveStatus(status.Status)
			})
			if err != nil && ctx.Err() == nil {
				logging.Error(ctx, "status watch stopped", "error", err)
			}
		}()
	}

	events := make(chan string)
	go readKeys(ctx, events)

	// Defer to another console process already polling this target; poll
	// coordination is advisory, so just wait for its stamp to go stale.
	deferred := false
	for !coordinator.ShouldStart(ctx, target) {
		deferred = true
		fmt.Fprintln(os.Stderr, "another console process is polling this log; waiting")
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev == "q" {
				return nil
			}
		case <-time.After(logview.CoordinationWindow):
		}
	}
	if deferred {
		logging.Info(ctx, "poll stamp went stale, taking over polling", "target", target.Key())
	}

	ticker := time.NewTicker(logview.PollInterval)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			// Only a tick that actually polled renews the claim on the
			// target; a parked or paused view must let other processes
			// take over.
			if follower.Tick(ctx) {
				if err := coordinator.Touch(ctx, target); err != nil {
					logging.Warn(ctx, "failed to refresh poll stamp", "error", err)
				}
			}

			snap := follower.Snapshot()
			printed = printLogDelta(snap, printed)

			if snap.FetchErr != nil && !warned {
				fmt.Fprintf(os.Stderr, "warning: refresh failed (%v); showing last fetched logs, press Enter to retry\n", snap.FetchErr)
				warned = true
			}
			if snap.Terminal {
				fmt.Fprintln(os.Stderr, "task finished; auto-refresh stopped")
				return nil
			}

		case ev := <-events:
			switch ev {
			case "q":
				return nil
			default:
				// Any other input is a manual refresh: always fetches and
				// clears both error flags first.
				if err := follower.ManualRefresh(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "warning: refresh failed: %v\n", err)
				} else {
					warned = false
				}
				printed = printLogDelta(follower.Snapshot(), printed)
			}
		}
	}
}

// printLogDelta writes any newly fetched content and returns the new printed
// length. Log content only ever appends, so the delta is a suffix.
func printLogDelta(snap logview.Snapshot, printed int) int {
	content := snap.Logs
	if snap.SearchTerm != "" {
		// Filtered views re-render in full when content grows; a filtered
		// delta is not a simple suffix.
		if len(content) > printed {
			fmt.Print(render.ColorizeLogs(snap.FilteredLogs, cfg.Logs.Color))
			if !strings.HasSuffix(snap.FilteredLogs, "\n") {
				fmt.Println()
			}
		}
		return len(content)
	}

	if len(content) > printed {
		fmt.Print(render.ColorizeLogs(content[printed:], cfg.Logs.Color))
	}
	return len(content)
}

// readKeys forwards stdin lines as events until the context ends.
func readKeys(ctx context.Context, events chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case events <- strings.TrimSpace(scanner.Text()):
		case <-ctx.Done():
			return
		}
	}
}
