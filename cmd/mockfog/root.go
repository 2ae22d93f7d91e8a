package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mockfogload/internal/config"
	"mockfogload/internal/logging"
)

var (
	logLevel  string
	logFormat string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "mockfog",
	Short: "MockFog load orchestration toolkit",
	Long: "mockfog runs staged test plans against an emulated fog infrastructure: " +
		"the orchestrator dispatches stage instructions and collects reports, " +
		"the generator runtime produces synthetic load on each node.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if v := os.Getenv("LOG_LEVEL"); v != "" {
				level = v
			}
		}
		slog.SetDefault(logging.NewWithOptions(os.Stderr, logFormat, level))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before anything else")
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// settingsFromFlags layers explicitly set flags over env over defaults.
func settingsFromFlags(cmd *cobra.Command) (config.Settings, error) {
	s := config.DefaultSettings()
	if err := s.ApplyEnv(); err != nil {
		return s, err
	}
	f := cmd.Flags()
	if f.Lookup("agent-port") != nil && f.Changed("agent-port") {
		s.AgentPort, _ = f.GetInt("agent-port")
	}
	if f.Lookup("generator-port") != nil && f.Changed("generator-port") {
		s.GeneratorPort, _ = f.GetInt("generator-port")
	}
	if f.Lookup("start-delay") != nil && f.Changed("start-delay") {
		s.StartDelay, _ = f.GetDuration("start-delay")
	}
	if f.Lookup("report-grace") != nil && f.Changed("report-grace") {
		s.ReportGrace, _ = f.GetDuration("report-grace")
	}
	if f.Lookup("report-file") != nil && f.Changed("report-file") {
		s.ReportFile, _ = f.GetString("report-file")
	}
	return s, s.Validate()
}
