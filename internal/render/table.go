// Package render formats backend resources for the terminal: tabwriter
// tables, JSON output, and log colorizing.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// JSON pretty-prints any value, the `-o json` path shared by all commands.
func JSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// JobTable renders the job list.
func JobTable(w io.Writer, jobs []models.BenchmarkJob) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tSTATUS\tUSERS\tDURATION\tCREATED")
	fmt.Fprintln(tw, "--\t----\t-----\t------\t-----\t--------\t-------")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%ds\t%s\n",
			job.ID,
			job.Name,
			job.Model,
			job.Status,
			job.ConcurrentUsers,
			job.DurationSeconds,
			job.CreatedAt.Format(time.RFC3339),
		)
	}
	tw.Flush()
}

// JobDetail renders one job.
func JobDetail(w io.Writer, job *models.BenchmarkJob) {
	fmt.Fprintf(w, "Task ID:          %s\n", job.ID)
	fmt.Fprintf(w, "Name:             %s\n", job.Name)
	fmt.Fprintf(w, "Target:           %s%s\n", job.TargetHost, job.APIPath)
	fmt.Fprintf(w, "Model:            %s\n", job.Model)
	fmt.Fprintf(w, "Status:           %s\n", job.Status)
	fmt.Fprintf(w, "Stream Mode:      %t\n", job.StreamMode)
	fmt.Fprintf(w, "Duration:         %ds\n", job.DurationSeconds)
	fmt.Fprintf(w, "Concurrent Users: %d\n", job.ConcurrentUsers)
	fmt.Fprintf(w, "Spawn Rate:       %d\n", job.SpawnRate)
	fmt.Fprintf(w, "Created At:       %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.DatasetSource != "" {
		fmt.Fprintf(w, "Dataset:          %s\n", job.DatasetSource)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(w, "\nError: %s\n", job.ErrorMessage)
	}
}

// MetricTable renders result records.
func MetricTable(w io.Writer, records []models.MetricRecord) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TASK\tMETRIC\tAVG\tMIN\tMAX\tP90\tCOUNT\tRPS")
	fmt.Fprintln(tw, "----\t------\t---\t---\t---\t---\t-----\t---")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%d\t%.2f\n",
			rec.TaskID,
			rec.MetricType,
			rec.AvgLatency,
			rec.MinLatency,
			rec.MaxLatency,
			rec.P90Latency,
			rec.RequestCount,
			rec.RPS,
		)
	}
	tw.Flush()
}

// CandidateTable renders comparison candidates.
func CandidateTable(w io.Writer, candidates []models.ComparisonCandidate) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TASK\tNAME\tMODEL\tCREATED")
	fmt.Fprintln(tw, "----\t----\t-----\t-------")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.TaskID, c.Name, c.Model, c.CreatedAt)
	}
	tw.Flush()
}

// ComparisonTable renders side-by-side metrics, one row per job and metric.
func ComparisonTable(w io.Writer, rows []models.ComparisonRow) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TASK\tMODEL\tMETRIC\tAVG\tP90\tRPS\tCOUNT")
	fmt.Fprintln(tw, "----\t-----\t------\t---\t---\t---\t-----")
	for _, row := range rows {
		for _, rec := range row.Metrics {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%.2f\t%d\n",
				row.TaskID,
				row.Model,
				rec.MetricType,
				rec.AvgLatency,
				rec.P90Latency,
				rec.RPS,
				rec.RequestCount,
			)
		}
	}
	tw.Flush()
}

// ConfigTable renders system configuration entries.
func ConfigTable(w io.Writer, entries []api.ConfigEntry) {
	tw := newTable(w)
	fmt.Fprintln(tw, "KEY\tVALUE\tDESCRIPTION")
	fmt.Fprintln(tw, "---\t-----\t-----------")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Key, entry.Value, entry.Description)
	}
	tw.Flush()
}
