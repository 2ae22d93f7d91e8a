package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mockfogload/internal/config"
	"mockfogload/internal/dispatch"
)

var (
	valPlanPath   string
	valNodesPath  string
	valSchemaPath string
	valTimeline   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a test plan and node map without dispatching anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := config.LoadPlan(valPlanPath, valSchemaPath)
		if err != nil {
			return err
		}
		if valNodesPath == "" {
			fmt.Fprintf(out, "plan %q ok: %d stages\n", p.Name, len(p.Stages))
			return nil
		}
		nodes, err := config.LoadNodeMap(valNodesPath, valSchemaPath)
		if err != nil {
			return err
		}
		if err := config.CheckReferences(p, nodes); err != nil {
			return err
		}
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		var origin time.Time
		schedule, err := dispatch.Build(p, nodes, dispatch.Options{
			AgentPort:     settings.AgentPort,
			GeneratorPort: settings.GeneratorPort,
			ReportGrace:   settings.ReportGrace,
		}, origin)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "plan %q ok: %d stages, %d nodes, %d sends, %d report pulls, duration %v\n",
			p.Name, len(p.Stages), nodes.Len(),
			schedule.Count(dispatch.ActionSend), schedule.Count(dispatch.ActionReport),
			schedule.End().Sub(origin))
		if valTimeline {
			for _, a := range schedule.Actions {
				target := a.URL
				if a.Kind == dispatch.ActionStage {
					target = "-"
				}
				fmt.Fprintf(out, "+%-10v %-7s %-12s %-10s %s\n", a.At.Sub(origin), a.Kind, a.Stage, a.Host.ID, target)
			}
		}
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&valPlanPath, "plan", "testplan.yaml", "Path to the test plan (YAML or JSON)")
	f.StringVar(&valNodesPath, "nodes", "", "Optional node map; enables reference checks and the schedule summary")
	f.StringVar(&valSchemaPath, "schema", "", "Path to a CUE schema overriding the embedded one")
	f.BoolVar(&valTimeline, "timeline", false, "Print every scheduled action")
	f.Duration("report-grace", config.DefaultReportGrace, "Delay between a stage and its report pull")
}
