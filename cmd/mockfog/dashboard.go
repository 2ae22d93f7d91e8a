package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"mockfogload/internal/dashboard"
	"mockfogload/internal/report"
)

var (
	dashOut   string
	dashTitle string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render a Grafana dashboard for the GreptimeDB report table",
	Long:  "dashboard renders Grafana dashboard JSON; GREPTIMEDB_DATASOURCE_UID must name the Grafana datasource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := report.ReportTableName()
		if err := dashboard.Render(dashOut, dashboard.Options{Title: dashTitle, Table: table}); err != nil {
			return err
		}
		slog.Info("dashboard rendered", "dir", dashOut, "table", table)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashOut, "out", "build", "Output directory")
	dashboardCmd.Flags().StringVar(&dashTitle, "title", "", "Dashboard title")
}
