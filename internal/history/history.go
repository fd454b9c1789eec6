// Package history keeps a small on-disk index of processing runs, one
// JSON record per invocation, so earlier runs can be listed and their
// settings reproduced.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Record describes one completed run.
type Record struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Heights   int       `json:"heights,omitempty"`
	Variables int       `json:"variables,omitempty"`
	Elapsed   float64   `json:"elapsed_seconds"`
}

// Save assigns rec an ID from the operation name and the clock and
// writes it under the base directory.
func (s *Store) Save(rec Record) (string, error) {
	rec.ID = fmt.Sprintf("%s_%d", rec.Operation, time.Now().UnixNano())
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	f, err := os.Create(filepath.Join(s.baseDir, rec.ID+".json"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// List returns every readable record, newest first. A missing base
// directory lists as empty.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}

	recs := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp.After(recs[j].Timestamp) })
	return recs, nil
}

// Load reads one record by ID.
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id+".json"))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
