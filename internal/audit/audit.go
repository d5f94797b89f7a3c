// Package audit keeps track of the datasets each sector deletes and creates,
// and writes them to append-only CSV files for traceability.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	premise "github.com/polca/premise-sub000"
)

type Action string

const (
	Deleted Action = "deleted"
	Created Action = "created"
)

var header = []string{"action", "name", "reference product", "location"}

type Entry struct {
	Action Action
	Key    premise.Key
}

// Log records entries per sector for one scenario. A nil *Log records
// nothing.
type Log struct {
	scenario premise.Scenario
	mu       sync.Mutex
	entries  map[string][]Entry
}

func NewLog(scenario premise.Scenario) *Log {
	return &Log{
		scenario: scenario,
		entries:  make(map[string][]Entry),
	}
}

func (log *Log) Record(sector string, action Action, key premise.Key) {
	if log == nil {
		return
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	log.entries[sector] = append(log.entries[sector], Entry{Action: action, Key: key})
}

func (log *Log) Sectors() []string {
	if log == nil {
		return nil
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return slices.Sorted(maps.Keys(log.entries))
}

func (log *Log) Entries(sector string) []Entry {
	if log == nil {
		return nil
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	return slices.Clone(log.entries[sector])
}

// FileName is the audit file of sector for the log scenario, run on date.
func (log *Log) FileName(sector string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d_%s.csv", sector, log.scenario.Model, log.scenario.Pathway, log.scenario.Year, date.Format(time.DateOnly))
}

// WriteFiles appends the entries of every sector to its file in dir and
// returns the paths written. The header is only written to new files.
func (log *Log) WriteFiles(dir string, date time.Time) ([]string, error) {
	if log == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	paths := make([]string, 0)
	for _, sector := range log.Sectors() {
		path := filepath.Join(dir, log.FileName(sector, date))
		if err := appendEntries(path, log.Entries(sector)); err != nil {
			return paths, fmt.Errorf("failed to write audit file %s: %w", path, err)
		}
		paths = append(paths, path)
		slog.Debug("audit file written", "path", path, "sector", sector)
	}
	return paths, nil
}

func appendEntries(path string, entries []Entry) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, entry := range entries {
		if err := w.Write([]string{string(entry.Action), entry.Key.Name, entry.Key.Product, entry.Key.Location}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
