package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

var resultsModel string

var resultsCmd = &cobra.Command{
	Use:   "results [task-id]",
	Short: "View benchmark result metrics",
	Long: `View aggregate result metrics.

Without arguments all records are listed, optionally filtered by model.
With a task id only that job's records are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().StringVarP(&resultsModel, "model", "m", "", "Filter by model name")
}

func runResults(cmd *cobra.Command, args []string) error {
	client := newClient()

	var (
		records []models.MetricRecord
		err     error
	)
	if len(args) == 1 {
		records, err = client.TaskResults(cmd.Context(), args[0])
	} else {
		records, err = client.ListResults(cmd.Context(), resultsModel)
	}
	if err != nil {
		if api.IsNotFound(err) && len(args) == 1 {
			return fmt.Errorf("no results for job %s", args[0])
		}
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	render.MetricTable(os.Stdout, records)
	return nil
}
