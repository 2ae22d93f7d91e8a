package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mockfogload/internal/config"
	"mockfogload/internal/dispatch"
	"mockfogload/internal/logging"
	"mockfogload/internal/report"
	"mockfogload/internal/tui"
)

var (
	orchPlanPath   string
	orchNodesPath  string
	orchSchemaPath string
	orchReportDB   string
	orchPrint      bool
	orchNoFile     bool
)

// exit is replaced in tests.
var exit = os.Exit

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate",
	Short: "Run a test plan against the nodes of a node map",
	Long: "orchestrate schedules every stage of a test plan relative to a common start time, " +
		"sends the stage instructions to the node agents and generator runtimes, " +
		"and collects one report per stage and host.",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		p, err := config.LoadPlan(orchPlanPath, orchSchemaPath)
		if err != nil {
			return err
		}
		nodes, err := config.LoadNodeMap(orchNodesPath, orchSchemaPath)
		if err != nil {
			return err
		}
		if err := config.CheckReferences(p, nodes); err != nil {
			return err
		}

		runID := uuid.NewString()
		log := slog.Default().With("run", runID)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		writer, cleanup, err := newReportWriter(writerOptions{
			Run:    runID,
			File:   settings.ReportFile,
			DB:     orchReportDB,
			Print:  orchPrint,
			Color:  tui.IsTerminal(),
			NoFile: orchNoFile,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		client := &http.Client{Timeout: 10 * time.Second}
		fatal := func(err error) {
			log.Error("run aborted", "err", err)
			cleanup()
			exit(1)
		}
		collector := report.NewCollector(client, writer, runID, fatal)

		start := time.Now().Add(settings.StartDelay)
		schedule, err := dispatch.Build(p, nodes, dispatch.Options{
			AgentPort:     settings.AgentPort,
			GeneratorPort: settings.GeneratorPort,
			ReportGrace:   settings.ReportGrace,
		}, start)
		if err != nil {
			return fmt.Errorf("build schedule: %w", err)
		}
		log.Info("test plan loaded",
			"test", p.Name,
			"stages", len(p.Stages),
			"nodes", nodes.Len(),
			"sends", schedule.Count(dispatch.ActionSend),
			"reports", schedule.Count(dispatch.ActionReport),
			"end", schedule.End().Format(time.RFC3339))

		err = dispatch.NewDispatcher(client, collector).Run(ctx, schedule)
		if errors.Is(err, context.Canceled) {
			log.Info("run interrupted")
			return nil
		}
		return err
	},
}

func init() {
	f := orchestrateCmd.Flags()
	f.StringVar(&orchPlanPath, "plan", "testplan.yaml", "Path to the test plan (YAML or JSON)")
	f.StringVar(&orchNodesPath, "nodes", "nodes.yaml", "Path to the node map (YAML or JSON)")
	f.StringVar(&orchSchemaPath, "schema", "", "Path to a CUE schema overriding the embedded one")
	f.Duration("start-delay", config.DefaultStartDelay, "Delay between startup and the first stage")
	f.Duration("report-grace", config.DefaultReportGrace, "Delay between a stage and its report pull")
	f.Int("agent-port", config.DefaultAgentPort, "Port of the node agents")
	f.Int("generator-port", config.DefaultGeneratorPort, "Port of the generator runtimes")
	f.String("report-file", config.DefaultReportFile, "JSONL file receiving collected reports")
	f.StringVar(&orchReportDB, "report-db", "", "Optional SQLite database receiving collected reports")
	f.BoolVar(&orchPrint, "print", false, "Also print collected reports to STDOUT")
	f.BoolVar(&orchNoFile, "no-file", false, "Do not write the JSONL report file")
}
