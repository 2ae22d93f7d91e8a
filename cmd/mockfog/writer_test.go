package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mockfogload/internal/report"
)

func sampleReport() report.Report {
	return report.Report{
		Run:         "r1",
		Stage:       "s1",
		Host:        "n1",
		CollectedAt: time.Now(),
		Document:    map[string]any{"stage": "s1", "host": "n1", "cpu": 0.4},
	}
}

func TestNewReportWriterFileOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "reports.json")
	w, cleanup, err := newReportWriter(writerOptions{File: path})
	if err != nil {
		t.Fatalf("newReportWriter returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*report.FileWriter); !ok {
		t.Fatalf("expected *report.FileWriter, got %T", w)
	}
	if err := w.Write(sampleReport()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected report file to be non-empty")
	}
}

func TestNewReportWriterFanOut(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "reports.db")
	w, cleanup, err := newReportWriter(writerOptions{
		Run:   "r1",
		File:  filepath.Join(dir, "reports.json"),
		DB:    dbPath,
		Print: true,
	})
	if err != nil {
		t.Fatalf("newReportWriter returned error: %v", err)
	}
	if _, ok := w.(*report.MultiWriter); !ok {
		t.Fatalf("expected *report.MultiWriter, got %T", w)
	}
	if err := w.Write(sampleReport()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cleanup()
	cleanup()

	db, err := report.NewSQLiteWriter(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if n, err := db.Count("r1"); err != nil || n != 1 {
		t.Fatalf("stored reports=%d, %v", n, err)
	}
}

func TestNewReportWriterPrintOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newReportWriter(writerOptions{Print: true, NoFile: true, File: "ignored.json"})
	if err != nil {
		t.Fatalf("newReportWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*report.StdoutWriter); !ok {
		t.Fatalf("expected *report.StdoutWriter, got %T", w)
	}
	if _, err := os.Stat("ignored.json"); err == nil {
		t.Fatalf("file sink must not be created when disabled")
	}
}

func TestNewReportWriterNoSink(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	if _, _, err := newReportWriter(writerOptions{NoFile: true}); err == nil {
		t.Fatalf("expected error without any sink")
	}
}

func TestNewReportWriterGreptime(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "127.0.0.1")
	w, cleanup, err := newReportWriter(writerOptions{NoFile: true})
	if err != nil {
		t.Fatalf("newReportWriter returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*report.GreptimeDBWriter); !ok {
		t.Fatalf("expected *report.GreptimeDBWriter, got %T", w)
	}
}
