// Test plan and node map loading with CUE validation, plus process settings.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mockfogload/internal/datagen"
	"mockfogload/internal/nodemap"
	"mockfogload/internal/plan"
)

// Settings are the process-wide constants shared by the orchestrator and the
// node runtimes.
type Settings struct {
	AgentPort     int
	GeneratorPort int
	StartDelay    time.Duration
	ReportGrace   time.Duration
	ReportFile    string
}

// Default settings.
const (
	DefaultAgentPort     = 20200
	DefaultGeneratorPort = 20201
	DefaultStartDelay    = 5 * time.Second
	DefaultReportGrace   = 3 * time.Second
	DefaultReportFile    = "reports.json"
)

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		AgentPort:     DefaultAgentPort,
		GeneratorPort: DefaultGeneratorPort,
		StartDelay:    DefaultStartDelay,
		ReportGrace:   DefaultReportGrace,
		ReportFile:    DefaultReportFile,
	}
}

// ApplyEnv overrides settings from AGENT_PORT, GENERATOR_PORT, START_DELAY,
// REPORT_GRACE and REPORT_FILE when they are set.
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv("AGENT_PORT"); v != "" {
		p, err := parsePort(v)
		if err != nil {
			return fmt.Errorf("invalid AGENT_PORT: %w", err)
		}
		s.AgentPort = p
	}
	if v := os.Getenv("GENERATOR_PORT"); v != "" {
		p, err := parsePort(v)
		if err != nil {
			return fmt.Errorf("invalid GENERATOR_PORT: %w", err)
		}
		s.GeneratorPort = p
	}
	if v := os.Getenv("START_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid START_DELAY: %w", err)
		}
		s.StartDelay = d
	}
	if v := os.Getenv("REPORT_GRACE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_GRACE: %w", err)
		}
		s.ReportGrace = d
	}
	if v := os.Getenv("REPORT_FILE"); v != "" {
		s.ReportFile = v
	}
	return nil
}

// Validate checks ranges.
func (s Settings) Validate() error {
	if s.AgentPort <= 0 || s.AgentPort > 65535 {
		return fmt.Errorf("agent port %d out of range", s.AgentPort)
	}
	if s.GeneratorPort <= 0 || s.GeneratorPort > 65535 {
		return fmt.Errorf("generator port %d out of range", s.GeneratorPort)
	}
	if s.StartDelay < 0 || s.ReportGrace < 0 {
		return fmt.Errorf("start delay and report grace must not be negative")
	}
	return nil
}

func parsePort(v string) (int, error) {
	p, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if p <= 0 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}

// LoadDotEnv loads path into the environment if the file exists. Variables
// already set are not overridden.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// LoadPlan validates the test plan at path against the schema (embedded when
// schemaPath is empty), decodes it and checks it for semantic errors.
func LoadPlan(path, schemaPath string) (*plan.TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read test plan: %w", err)
	}
	schema, err := SchemaBytes(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateWithCue(path, data, schema, TestPlanDefinition); err != nil {
		return nil, fmt.Errorf("could not parse test plan: %w", err)
	}
	p, err := plan.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(datagen.IsKind); err != nil {
		return nil, fmt.Errorf("invalid test plan: %w", err)
	}
	slog.Debug("loaded test plan", "name", p.Name, "stages", len(p.Stages))
	return p, nil
}

// LoadNodeMap validates and decodes the node map at path.
func LoadNodeMap(path, schemaPath string) (*nodemap.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read node mapping: %w", err)
	}
	schema, err := SchemaBytes(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateWithCue(path, data, schema, NodeMapDefinition); err != nil {
		return nil, fmt.Errorf("could not parse node mapping: %w", err)
	}
	var doc nodemap.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not parse node mapping: %w", err)
	}
	m, err := nodemap.New(doc.Nodes)
	if err != nil {
		return nil, fmt.Errorf("invalid node mapping: %w", err)
	}
	slog.Debug("loaded node map", "nodes", m.Len())
	return m, nil
}

// CheckReferences ensures every node id the plan names exists in the map, so
// a typo fails the run before the first stage fires.
func CheckReferences(p *plan.TestPlan, m *nodemap.Map) error {
	for _, id := range p.NodeIDs() {
		if _, err := m.Resolve(id); err != nil {
			return err
		}
	}
	return nil
}
