package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/config"
	"github.com/ymghtzz/LMeterX-sub000/internal/localstore"
	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
)

var (
	configPath   string
	serverURL    string
	outputFormat string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lmxctl",
	Short: "LMeterX console - manage LLM benchmark jobs",
	Long: `lmxctl is the terminal console for an LMeterX load-testing backend.

It allows you to:
- Create, inspect, and stop benchmark jobs
- Tail service and task logs with auto-refresh
- View result metrics and compare models side by side
- Manage system configuration and upload datasets or certificates`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.Backend.URL = serverURL
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logging.Setup(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnvOrDefault("LMX_CONFIG", ""), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newClient builds the backend client from the loaded config.
func newClient() *api.Client {
	return api.New(cfg.Backend.URL,
		api.WithAPIPrefix(cfg.Backend.APIPrefix),
		api.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.RateBurst),
	)
}

// openStore opens the shared local state database.
func openStore() (*localstore.Store, error) {
	store, err := localstore.Open(cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	return store, nil
}
