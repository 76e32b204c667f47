package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
)

var (
	configDescription string
	configUpdate      bool

	aiEndpoint string
	aiModel    string
	aiAPIKey   string
	aiEnabled  bool
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Manage backend system configuration",
}

var systemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration entries",
	RunE:  runSystemList,
}

var systemSetCmd = &cobra.Command{
	Use:   "set [key=value...]",
	Short: "Create or update configuration entries",
	Long: `Create or update configuration entries.

A single pair creates a new entry, or updates an existing one with
--update. Multiple pairs are written in one batch call.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSystemSet,
}

var systemDeleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Delete a configuration entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSystemDelete,
}

var systemAICmd = &cobra.Command{
	Use:   "ai-service",
	Short: "Show the AI report service settings",
	RunE:  runSystemAIGet,
}

var systemAISetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the AI report service settings",
	RunE:  runSystemAISet,
}

func init() {
	rootCmd.AddCommand(systemCmd)

	systemCmd.AddCommand(systemListCmd)
	systemCmd.AddCommand(systemSetCmd)
	systemCmd.AddCommand(systemDeleteCmd)
	systemCmd.AddCommand(systemAICmd)
	systemAICmd.AddCommand(systemAISetCmd)

	systemSetCmd.Flags().StringVarP(&configDescription, "description", "d", "", "Entry description (single pair only)")
	systemSetCmd.Flags().BoolVar(&configUpdate, "update", false, "Update an existing entry instead of creating one")

	systemAISetCmd.Flags().StringVar(&aiEndpoint, "endpoint", "", "AI service endpoint URL")
	systemAISetCmd.Flags().StringVar(&aiModel, "model", "", "Model used for report generation")
	systemAISetCmd.Flags().StringVar(&aiAPIKey, "api-key", "", "API key for the AI service")
	systemAISetCmd.Flags().BoolVar(&aiEnabled, "enabled", true, "Enable report generation")
}

func runSystemList(cmd *cobra.Command, args []string) error {
	client := newClient()
	entries, err := client.ListSystemConfig(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, entries)
	}
	if len(entries) == 0 {
		fmt.Println("No configuration entries.")
		return nil
	}
	render.ConfigTable(os.Stdout, entries)
	return nil
}

func runSystemSet(cmd *cobra.Command, args []string) error {
	entries := make([]api.ConfigEntry, 0, len(args))
	for _, pair := range args {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid entry %q, expected key=value", pair)
		}
		entries = append(entries, api.ConfigEntry{Key: key, Value: value})
	}

	client := newClient()

	if len(entries) == 1 {
		entries[0].Description = configDescription
		var err error
		if configUpdate {
			err = client.UpdateSystemConfig(cmd.Context(), entries[0])
		} else {
			err = client.CreateSystemConfig(cmd.Context(), entries[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Configuration %s written.\n", entries[0].Key)
		return nil
	}

	if configDescription != "" {
		return fmt.Errorf("--description applies to a single entry only")
	}
	if err := client.BatchSetSystemConfig(cmd.Context(), entries); err != nil {
		return err
	}
	fmt.Printf("%d configuration entries written.\n", len(entries))
	return nil
}

func runSystemDelete(cmd *cobra.Command, args []string) error {
	client := newClient()
	if err := client.DeleteSystemConfig(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Configuration %s deleted.\n", args[0])
	return nil
}

func runSystemAIGet(cmd *cobra.Command, args []string) error {
	client := newClient()
	aiCfg, err := client.GetAIServiceConfig(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, aiCfg)
	}
	fmt.Printf("Endpoint: %s\n", aiCfg.Endpoint)
	fmt.Printf("Model:    %s\n", aiCfg.Model)
	fmt.Printf("Enabled:  %t\n", aiCfg.Enabled)
	return nil
}

func runSystemAISet(cmd *cobra.Command, args []string) error {
	client := newClient()
	err := client.SetAIServiceConfig(cmd.Context(), api.AIServiceConfig{
		Endpoint: aiEndpoint,
		Model:    aiModel,
		APIKey:   aiAPIKey,
		Enabled:  aiEnabled,
	})
	if err != nil {
		return err
	}
	fmt.Println("AI service settings updated.")
	return nil
}
