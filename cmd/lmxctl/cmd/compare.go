package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/render"
	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

var compareCmd = &cobra.Command{
	Use:   "compare [task-id...]",
	Short: "Compare model performance across jobs",
	Long: `Compare aggregate metrics of completed jobs side by side.

Without arguments the eligible jobs are listed. With two or more task ids
their metrics are fetched and rendered next to each other. Duplicate ids
are collapsed; order is preserved.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	client := newClient()

	if len(args) == 0 {
		candidates, err := client.ComparisonAvailable(cmd.Context())
		if err != nil {
			return err
		}
		if outputFormat == "json" {
			return render.JSON(os.Stdout, candidates)
		}
		if len(candidates) == 0 {
			fmt.Println("No completed jobs available for comparison.")
			return nil
		}
		render.CandidateTable(os.Stdout, candidates)
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("comparison needs at least two task ids")
	}

	selection := models.NewComparisonSelection()
	for _, id := range args {
		selection.Add(id)
	}

	rows, err := client.Compare(cmd.Context(), selection)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, rows)
	}
	render.ComparisonTable(os.Stdout, rows)
	return nil
}
