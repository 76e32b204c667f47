package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

var analyzeExisting bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [task-id]",
	Short: "Generate or fetch an AI result report",
	Long: `Generate an AI analysis report for a completed job.

Generation blocks until the backend finishes, which can take minutes.
With --existing the previously generated report is fetched instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeExisting, "existing", false, "Fetch the stored report instead of generating one")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	client := newClient()

	var (
		report *models.AnalysisReport
		err    error
	)
	if analyzeExisting {
		report, err = client.GetAnalysis(cmd.Context(), args[0])
	} else {
		fmt.Fprintln(os.Stderr, "Generating report, this can take a few minutes...")
		report, err = client.RequestAnalysis(cmd.Context(), args[0])
	}
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("no report for job %s", args[0])
		}
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, report)
	}

	if report.Content == "" {
		fmt.Printf("Report for %s is %s.\n", report.TaskID, report.Status)
		return nil
	}
	fmt.Println(report.Content)
	return nil
}
