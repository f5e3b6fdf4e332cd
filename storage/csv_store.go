package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"cricauction-scraper/models"
)

// CSVStore is the append-only flat-file store. The file always starts with
// the models.CSVHeaders row.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSVStore opens the CSV store at path, creating the file (with header)
// and any intermediate directories when absent.
func NewCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{path: path}
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("csv: stat %q: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CSVHeaders); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// ReadAll returns the data rows, skipping the header and blank lines.
// Rows with fewer or more fields than the header are returned as-is.
func (s *CSVStore) ReadAll() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read %q: %w", s.path, err)
		}
		if header {
			header = false
			continue
		}
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// Append writes rows at the end of the file. The existing content is never
// rewritten.
func (s *CSVStore) Append(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q for append: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write rows: %w", err)
	}
	return f.Close()
}

// Close is a no-op; every operation opens and closes the file itself.
func (s *CSVStore) Close() error { return nil }
