package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/jobform"
	"github.com/ymghtzz/LMeterX-sub000/internal/jobs"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

var (
	jobsStatus   string
	jobsSearch   string
	jobsPage     int
	jobsPageSize int

	stopWait bool

	form       jobform.Form
	formHeader []string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage benchmark jobs",
	Long:  `Create, list, inspect, test, and stop benchmark jobs.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List benchmark jobs",
	RunE:  runJobsList,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get [task-id]",
	Short: "Get job details",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a benchmark job",
	RunE:  runJobsCreate,
}

var jobsStopCmd = &cobra.Command{
	Use:   "stop [task-id]",
	Short: "Request a cooperative stop",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStop,
}

var jobsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Dry-run the configured endpoint without scheduling a job",
	RunE:  runJobsTest,
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsCreateCmd)
	jobsCmd.AddCommand(jobsStopCmd)
	jobsCmd.AddCommand(jobsTestCmd)

	jobsListCmd.Flags().StringVarP(&jobsStatus, "status", "s", "", "Filter by status")
	jobsListCmd.Flags().StringVar(&jobsSearch, "search", "", "Filter by name")
	jobsListCmd.Flags().IntVar(&jobsPage, "page", 1, "Page number")
	jobsListCmd.Flags().IntVar(&jobsPageSize, "page-size", 20, "Page size")

	jobsStopCmd.Flags().BoolVar(&stopWait, "wait", false, "Block until the job reaches a final status")

	for _, c := range []*cobra.Command{jobsCreateCmd, jobsTestCmd} {
		c.Flags().StringVar(&form.Name, "name", "", "Job name")
		c.Flags().StringVar(&form.TargetHost, "target-host", "", "Target API host, e.g. https://api.example.com")
		c.Flags().StringVar(&form.APIPath, "api-path", jobform.ChatCompletionsPath, "Target API path")
		c.Flags().StringVar(&form.Model, "model", "", "Model name")
		c.Flags().BoolVar(&form.StreamMode, "stream", true, "Use streaming requests")
		c.Flags().StringVar(&form.RequestPayload, "payload", "", "Request payload template (custom endpoints)")
		c.Flags().StringVar(&form.FieldMapping.Content, "map-content", "", "Dot path to streamed content (custom endpoints)")
		c.Flags().StringVar(&form.FieldMapping.StopFlag, "map-stop-flag", "", "Dot path to the stream stop flag (custom endpoints)")
		c.Flags().StringVar(&form.FieldMapping.ReasoningContent, "map-reasoning", "", "Dot path to reasoning content")
		c.Flags().StringArrayVar(&formHeader, "header", nil, "Custom header as key=value (repeatable)")
		c.Flags().IntVar(&form.DurationSeconds, "duration", 60, "Test duration in seconds")
		c.Flags().IntVar(&form.ConcurrentUsers, "concurrent-users", 1, "Number of concurrent users")
		c.Flags().IntVar(&form.SpawnRate, "spawn-rate", 0, "User spawn rate (defaults to concurrent users)")
		c.Flags().IntVar(&form.ChatType, "chat-type", 0, "0 = builtin prompts, 1 = custom dataset")
		c.Flags().StringVar(&form.DatasetSource, "dataset", "", "Dataset source (chat-type 1)")
		c.Flags().StringVar(&form.CertMode, "cert-mode", "", "Client cert mode for https targets (combined, separate)")
		c.Flags().StringVar(&form.CertFile, "cert-file", "", "Client certificate file")
		c.Flags().StringVar(&form.KeyFile, "key-file", "", "Client key file")
	}
}

func runJobsList(cmd *cobra.Command, args []string) error {
	client := newClient()
	jobList, pagination, err := client.ListTasks(cmd.Context(), api.ListTasksQuery{
		Page:     jobsPage,
		PageSize: jobsPageSize,
		Status:   jobsStatus,
		Search:   jobsSearch,
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, map[string]any{
			"jobs":       jobList,
			"pagination": pagination,
		})
	}

	if len(jobList) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}

	render.JobTable(os.Stdout, jobList)
	if pagination != nil {
		fmt.Printf("\nPage %d of %d total jobs\n", pagination.Page, pagination.Total)
	}
	return nil
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	client := newClient()
	job, err := client.GetTask(cmd.Context(), args[0])
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("job not found: %s", args[0])
		}
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, job)
	}
	render.JobDetail(os.Stdout, job)
	return nil
}

func runJobsCreate(cmd *cobra.Command, args []string) error {
	headers, err := parseHeaders(formHeader)
	if err != nil {
		return err
	}
	form.Headers = headers

	job, err := form.BuildJob()
	if err != nil {
		return err
	}

	client := newClient()
	created, err := client.CreateTask(cmd.Context(), job)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, created)
	}
	fmt.Printf("Job %s created.\n", created.ID)
	return nil
}

func runJobsStop(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	client := newClient()

	if err := client.StopTask(cmd.Context(), taskID); err != nil {
		return err
	}
	fmt.Printf("Stop requested for job %s.\n", taskID)

	if !stopWait {
		return nil
	}

	poller := jobs.NewPoller(client)
	status, err := poller.WaitForTerminal(cmd.Context(), taskID, 10*time.Minute)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s is now %s.\n", taskID, status.Status)
	return nil
}

func runJobsTest(cmd *cobra.Command, args []string) error {
	headers, err := parseHeaders(formHeader)
	if err != nil {
		return err
	}
	form.Headers = headers

	// The dry run reuses the form rules so a payload that would fail job
	// creation fails here too.
	form.Name = "dry-run"
	form.DurationSeconds = 60
	if form.ConcurrentUsers == 0 {
		form.ConcurrentUsers = 1
	}
	job, err := form.BuildJob()
	if err != nil {
		return err
	}

	client := newClient()
	result, err := client.TestTarget(cmd.Context(), &api.TestTargetRequest{
		TargetHost:   job.TargetHost,
		APIPath:      job.APIPath,
		Model:        job.Model,
		StreamMode:   job.StreamMode,
		Headers:      job.Headers,
		Payload:      job.RequestPayload,
		FieldMapping: job.FieldMapping,
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, result)
	}

	if result.Success {
		fmt.Printf("Probe succeeded (HTTP %d, %dms).\n", result.StatusCode, result.LatencyMs)
		if result.Response != "" {
			fmt.Printf("Response: %s\n", result.Response)
		}
		return nil
	}
	return fmt.Errorf("probe failed (HTTP %d): %s", result.StatusCode, result.ErrorMessage)
}

func parseHeaders(raw []string) ([]models.Header, error) {
	var headers []models.Header
	for _, h := range raw {
		key, value, ok := strings.Cut(h, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected key=value", h)
		}
		headers = append(headers, models.Header{Key: key, Value: value})
	}
	return headers, nil
}
