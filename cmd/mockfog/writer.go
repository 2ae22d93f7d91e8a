package main

import (
	"errors"
	"log/slog"
	"os"
	"sync"

	"mockfogload/internal/report"
)

// writerOptions select the report sinks of a run.
type writerOptions struct {
	Run    string
	File   string
	DB     string
	Print  bool
	Color  bool
	NoFile bool
}

// newReportWriter builds the report sink from flags and env vars. The JSONL
// file is always written unless disabled; stdout, GreptimeDB and SQLite are
// added on request. The returned cleanup closes every opened resource.
func newReportWriter(opts writerOptions) (report.Writer, func(), error) {
	var (
		writers []report.Writer
		closers []func() error
	)
	cleanup := sync.OnceFunc(func() {
		for _, c := range closers {
			c()
		}
	})
	fail := func(err error) (report.Writer, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if !opts.NoFile && opts.File != "" {
		fw, err := report.NewFileWriter(opts.File)
		if err != nil {
			return fail(err)
		}
		writers = append(writers, fw)
		closers = append(closers, fw.Close)
	}
	if opts.Print {
		writers = append(writers, report.NewStdoutWriter(opts.Color))
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := report.NewGreptimeDBWriter(endpoint, database)
		if err != nil {
			return fail(err)
		}
		writers = append(writers, gw)
	}
	if opts.DB != "" {
		sw, err := report.NewSQLiteWriter(opts.DB)
		if err != nil {
			return fail(err)
		}
		writers = append(writers, sw)
		path := opts.DB
		closers = append(closers, func() error {
			if n, err := sw.Count(opts.Run); err == nil {
				slog.Info("reports stored", "db", path, "run", opts.Run, "count", n)
			}
			return sw.Close()
		})
	}

	switch len(writers) {
	case 0:
		return fail(errors.New("no report sink configured"))
	case 1:
		return writers[0], cleanup, nil
	default:
		return report.NewMultiWriter(writers...), cleanup, nil
	}
}
