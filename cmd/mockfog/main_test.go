package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "error"))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestValidatePlanOnly(t *testing.T) {
	out, err := execute(t, "validate", "--plan", "../../internal/config/testdata/plan.yaml")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, `plan "example" ok: 2 stages`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidateTimeline(t *testing.T) {
	out, err := execute(t, "validate",
		"--plan", "../../internal/config/testdata/plan.yaml",
		"--nodes", "../../internal/config/testdata/nodes.yaml",
		"--timeline")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{"4 sends", "3 report pulls", "http://10.0.0.4:20201/config", "/reports/s2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateRejectsMissingNode(t *testing.T) {
	_, err := execute(t, "validate",
		"--plan", "../../internal/config/testdata/plan.yaml",
		"--nodes", "../../internal/config/testdata/missing_nodes.yaml")
	if err == nil {
		t.Fatal("expected reference error")
	}
}

func TestOrchestrateEndToEnd(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	agent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"cpu":0.25}`)
		}
	}))
	defer agent.Close()
	_, port, _ := net.SplitHostPort(agent.Listener.Addr().String())

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	nodesPath := filepath.Join(dir, "nodes.yaml")
	reportPath := filepath.Join(dir, "reports.json")
	os.WriteFile(planPath, []byte(`testName: e2e
stages:
  - id: s1
    time: 0
    node:
      - id: n1
        applications:
          - name: app
        generators:
          - id: g1
            kind: Power
            active: true
  - id: s2
    time: 50
    node:
      - id: all
        interfaces:
          - id: eth0
            delay: 10ms
`), 0o644)
	os.WriteFile(nodesPath, []byte("nodes:\n  - id: n1\n    ip: 127.0.0.1\n  - id: n2\n    ip: 127.0.0.1\n"), 0o644)

	_, err := execute(t, "orchestrate",
		"--plan", planPath,
		"--nodes", nodesPath,
		"--agent-port", port,
		"--generator-port", port,
		"--start-delay", "0s",
		"--report-grace", "50ms",
		"--report-file", reportPath)
	if err != nil {
		t.Fatalf("orchestrate: %v", err)
	}

	mu.Lock()
	got := strings.Join(paths, ",")
	mu.Unlock()
	for _, want := range []string{"POST /application", "POST /config", "POST /interface", "GET /reports/s1", "GET /reports/s2"} {
		if !strings.Contains(got, want) {
			t.Errorf("agent never saw %q: %s", want, got)
		}
	}

	f, err := os.Open(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var doc map[string]any
		if err := json.Unmarshal(sc.Bytes(), &doc); err != nil {
			t.Fatalf("bad report line %q: %v", sc.Text(), err)
		}
		if doc["stage"] == nil || doc["host"] == nil {
			t.Fatalf("report not annotated: %v", doc)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("reports=%d, want 3", lines)
	}
}
