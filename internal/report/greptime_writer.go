package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// ReportTableName is the GreptimeDB table reports are written to. It can be
// overridden with GREPTIMEDB_TABLE.
func ReportTableName() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "mockfog_reports"
}

// greptimeClient is the subset of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes reports to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	mu     sync.Mutex
	client greptimeClient
	table  string
}

// NewGreptimeDBWriter connects to the GreptimeDB gRPC endpoint host.
func NewGreptimeDBWriter(host, database string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client, table: ReportTableName()}, nil
}

// Write inserts a single report row.
func (w *GreptimeDBWriter) Write(r Report) error {
	doc, err := r.JSON()
	if err != nil {
		return err
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	for _, col := range []string{"run_id", "stage", "host"} {
		if err := tbl.AddTagColumn(col, types.STRING); err != nil {
			return err
		}
	}
	if err := tbl.AddFieldColumn("document", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	ts := r.CollectedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := tbl.AddRow(r.Run, r.Stage, r.Host, string(doc), ts); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptimedb write: %w", err)
	}
	slog.Debug("report written to greptimedb", "table", w.table, "stage", r.Stage, "host", r.Host)
	return nil
}
