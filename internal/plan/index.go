package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// IndexFileName is the single shared summary document.
const IndexFileName = "planos_index.json"

// Index is the summary document of every plan, persisted as one JSON
// array. Mutations are read-modify-write of the whole document, so they
// are serialized behind a mutex; two concurrent appends can no longer
// lose one of the entries.
type Index struct {
	mu   sync.Mutex
	path string
}

// NewIndex returns an Index stored under dataDir. The document itself is
// created lazily on the first append.
func NewIndex(dataDir string) *Index {
	return &Index{path: filepath.Join(dataDir, IndexFileName)}
}

// Load returns every entry. A missing document reads as empty.
func (ix *Index) Load() ([]IndexEntry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.read()
}

// Append adds an entry to the end of the document.
func (ix *Index) Append(entry IndexEntry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entries, err := ix.read()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return ix.write(entries)
}

// SetStatus updates the status of the entry with the given id in place.
func (ix *Index) SetStatus(id, status string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entries, err := ix.read()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].PlanoID == id {
			entries[i].Status = status
			return ix.write(entries)
		}
	}
	return ErrNotFound
}

// FindByID scans for an entry; the second return reports whether it was
// found.
func (ix *Index) FindByID(id string) (IndexEntry, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entries, err := ix.read()
	if err != nil {
		return IndexEntry{}, false, err
	}
	for _, e := range entries {
		if e.PlanoID == id {
			return e, true, nil
		}
	}
	return IndexEntry{}, false, nil
}

func (ix *Index) read() ([]IndexEntry, error) {
	data, err := os.ReadFile(ix.path)
	if os.IsNotExist(err) {
		return []IndexEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plan index: %w", err)
	}
	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse plan index: %w", err)
	}
	if entries == nil {
		entries = []IndexEntry{}
	}
	return entries, nil
}

func (ix *Index) write(entries []IndexEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan index: %w", err)
	}
	if err := os.WriteFile(ix.path, data, 0o644); err != nil {
		return fmt.Errorf("write plan index: %w", err)
	}
	return nil
}
