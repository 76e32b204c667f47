package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/pkg/backoff"
)

var debugCmd = &cobra.Command{
	Use:    "debug",
	Short:  "Diagnostics for the console itself",
	Hidden: true,
}

var debugHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the backend health endpoint",
	RunE:  runDebugHealth,
}

var debugMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Dump the process's client metrics",
	RunE:  runDebugMetrics,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugHealthCmd)
	debugCmd.AddCommand(debugMetricsCmd)
}

func runDebugHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	// Startup probes retry with backoff; steady-state polling never does.
	err := backoff.Default.Retry(cmd.Context(), func(ctx context.Context) error {
		return client.Health(ctx)
	})
	if err != nil {
		return fmt.Errorf("backend is not healthy: %w", err)
	}
	fmt.Printf("Backend %s is healthy.\n", cfg.Backend.URL)
	return nil
}

func runDebugMetrics(cmd *cobra.Command, args []string) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
