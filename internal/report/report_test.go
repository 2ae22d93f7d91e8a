package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"mockfogload/internal/nodemap"
)

type memWriter struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (m *memWriter) Write(r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

func TestAnnotateObject(t *testing.T) {
	doc, err := Annotate([]byte(`{"cpu":0.5,"apps":["a"]}`), "s1", "n1")
	if err != nil {
		t.Fatal(err)
	}
	if doc["stage"] != "s1" || doc["host"] != "n1" {
		t.Fatalf("missing annotation: %v", doc)
	}
	if doc["cpu"].(json.Number).String() != "0.5" {
		t.Fatalf("cpu=%v", doc["cpu"])
	}
}

func TestAnnotateWrapsNonObject(t *testing.T) {
	doc, err := Annotate([]byte(`[1,2]`), "s1", "n1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["report"].([]any); !ok {
		t.Fatalf("expected wrapped array, got %v", doc)
	}
	if _, err := Annotate([]byte(`not json`), "s", "h"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRegisterDeduplicates(t *testing.T) {
	c := NewCollector(nil, &memWriter{}, "run", nil)
	if !c.Register("s1", "n1") {
		t.Fatal("first registration rejected")
	}
	if c.Register("s1", "n1") {
		t.Fatal("duplicate registration accepted")
	}
	if !c.Register("s1", "n2") || !c.Register("s2", "n1") {
		t.Fatal("distinct pairs must register")
	}
}

func TestPull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/s1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	mw := &memWriter{}
	var fatal error
	c := NewCollector(srv.Client(), mw, "run-1", func(err error) { fatal = err })
	host := nodemap.Entry{ID: "n1", Address: "127.0.0.1"}
	c.Pull(context.Background(), "s1", host, srv.URL+"/reports/s1")
	if fatal != nil {
		t.Fatalf("unexpected fatal: %v", fatal)
	}
	if len(mw.reports) != 1 {
		t.Fatalf("got %d reports", len(mw.reports))
	}
	r := mw.reports[0]
	if r.Run != "run-1" || r.Stage != "s1" || r.Host != "n1" || r.Document["status"] != "ok" {
		t.Fatalf("unexpected report %+v", r)
	}

	c.Pull(context.Background(), "s2", host, srv.URL+"/reports/s2")
	if fatal == nil {
		t.Fatal("expected fatal hook on 404")
	}
}

func TestPullWriterErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	var fatal error
	c := NewCollector(srv.Client(), &memWriter{err: errors.New("disk full")}, "r", func(err error) { fatal = err })
	c.Pull(context.Background(), "s", nodemap.Entry{ID: "n"}, srv.URL)
	if fatal == nil || !strings.Contains(fatal.Error(), "disk full") {
		t.Fatalf("fatal=%v", fatal)
	}
}

func TestPullCancelledIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	var fatal error
	mw := &memWriter{}
	c := NewCollector(srv.Client(), mw, "r", func(err error) { fatal = err })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Pull(ctx, "s", nodemap.Entry{ID: "n"}, srv.URL)
	if fatal != nil {
		t.Fatalf("cancelled pull reached the fatal hook: %v", fatal)
	}
	if len(mw.reports) != 0 {
		t.Fatal("cancelled pull must not write a report")
	}
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fw.Write(Report{Document: map[string]any{"stage": "s", "host": "h"}})
		}()
	}
	wg.Wait()
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var doc map[string]any
		if err := json.Unmarshal(sc.Bytes(), &doc); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
	}
	if lines != 20 {
		t.Fatalf("got %d lines", lines)
	}
}

func TestStdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &StdoutWriter{out: &buf}
	if err := w.Write(Report{Stage: "s1", Host: "n1", Document: map[string]any{"stage": "s1"}}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != `{"stage":"s1"}` {
		t.Fatalf("unexpected output %q", buf.String())
	}
	buf.Reset()
	w.color = true
	_ = w.Write(Report{Stage: "s1", Host: "n1", CollectedAt: time.Unix(0, 0).UTC(), Document: map[string]any{}})
	if !strings.Contains(buf.String(), "stage=s1") || !strings.Contains(buf.String(), "host=n1") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestMultiWriter(t *testing.T) {
	a, b := &memWriter{err: errors.New("boom")}, &memWriter{}
	mw := NewMultiWriter(a, b)
	if err := mw.Write(Report{Stage: "s"}); err == nil {
		t.Fatal("expected joined error")
	}
	if len(a.reports) != 1 || len(b.reports) != 1 {
		t.Fatal("every writer must receive the report")
	}
}

type mockGreptimeClient struct {
	table *table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriter(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "mockfog_reports"}
	r := Report{Run: "r1", Stage: "s1", Host: "n1", CollectedAt: time.Unix(0, 0).UTC(), Document: map[string]any{"ok": true}}
	if err := w.Write(r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.table == nil {
		t.Fatal("expected table to be captured")
	}
	rows := m.table.GetRows()
	if len(rows.Schema) != 5 {
		t.Fatalf("unexpected schema length: %d", len(rows.Schema))
	}
	vals := rows.Rows[0].Values
	if vals[1].GetStringValue() != "s1" || vals[2].GetStringValue() != "n1" {
		t.Fatalf("unexpected tags %v", vals)
	}
	if vals[3].GetStringValue() != `{"ok":true}` {
		t.Fatalf("document=%s", vals[3].GetStringValue())
	}
}

func TestSQLiteWriter(t *testing.T) {
	w, err := NewSQLiteWriter(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	for _, stage := range []string{"s1", "s2"} {
		if err := w.Write(Report{Run: "r1", Stage: stage, Host: "n1", CollectedAt: time.Now(), Document: map[string]any{}}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := w.Count("r1")
	if err != nil || n != 2 {
		t.Fatalf("Count=%d, %v", n, err)
	}
}
