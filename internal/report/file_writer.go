package report

import (
	"encoding/json"
	"os"
	"sync"
)

// FileWriter appends reports to a JSONL file, one annotated document per line.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (or truncates) path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one report.
func (f *FileWriter) Write(r Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(r.Document)
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
