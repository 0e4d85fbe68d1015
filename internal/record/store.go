package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/safetytechsc/radar360-api/internal/metrics"
)

// Kind identifies the category a record is filed under. The set is closed:
// filenames are prefixed with the kind, so an unknown kind would pollute
// the data directory with unlistable files.
type Kind string

const (
	KindAmbiente     Kind = "ambiente"
	KindPsicossocial Kind = "psicossocial"
	KindLideranca    Kind = "lideranca"
	KindRH           Kind = "rh"
	KindRaioX        Kind = "raiox"
	KindVoice        Kind = "voice"
	KindPlano        Kind = "plano"
	KindPlanoClose   Kind = "plano-close"
)

// Kinds is the full vocabulary, in the order reported to clients.
var Kinds = []Kind{
	KindAmbiente, KindPsicossocial, KindLideranca, KindRH,
	KindRaioX, KindVoice, KindPlano, KindPlanoClose,
}

// ParseKind returns the Kind for s, or false if s is not in the vocabulary.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Stored is one persisted record as returned by List: the filename it
// lives under plus the decoded document.
type Stored struct {
	File string
	Body map[string]interface{}
}

// ListOptions control ordering and truncation of List results.
type ListOptions struct {
	NewestFirst bool
	Limit       int // 0 = unlimited
}

// Store writes each submission to its own JSON file under a fixed root.
// Filenames embed the creation timestamp, so writes never contend and the
// lexical file order doubles as creation order.
type Store struct {
	root string
}

// NewStore creates the data directory if absent and returns a Store
// rooted there.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the data directory path.
func (s *Store) Root() string { return s.root }

// Save persists payload as a new file named <kind>-<timestamp>.json and
// returns the filename (not the full path, matching what clients are
// shown). The timestamp carries millisecond resolution; if two saves land
// in the same millisecond the later one advances its timestamp rather
// than overwrite.
func (s *Store) Save(kind Kind, payload interface{}) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s record: %w", kind, err)
	}
	now := time.Now().UTC()
	for {
		name := fmt.Sprintf("%s-%s.json", kind, FileTimestamp(now))
		f, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			now = now.Add(time.Millisecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write %s record: %w", kind, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s record: %w", kind, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("write %s record: %w", kind, err)
		}
		metrics.RecordsStored.WithLabelValues(string(kind)).Inc()
		return name, nil
	}
}

// List returns the stored records of a kind, sorted by filename. Files
// that fail to parse are skipped rather than failing the whole listing.
func (s *Store) List(kind Kind, opts ListOptions) ([]Stored, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	prefix := string(kind) + "-"
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".json") {
			// "plano-" also prefixes "plano-close-" files; keep the
			// kinds apart.
			if kind == KindPlano && strings.HasPrefix(n, string(KindPlanoClose)+"-") {
				continue
			}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	if opts.NewestFirst {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	out := make([]Stored, 0, len(names))
	for _, n := range names {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(s.root, n))
		if err != nil {
			continue
		}
		var body map[string]interface{}
		if err := json.Unmarshal(data, &body); err != nil {
			continue
		}
		out = append(out, Stored{File: n, Body: body})
	}
	return out, nil
}

// FileTimestamp renders t the way filenames (and plan IDs) expect:
// RFC 3339 with millisecond precision, colons and dots replaced by dashes.
func FileTimestamp(t time.Time) string {
	ts := t.Format("2006-01-02T15:04:05.000Z07:00")
	ts = strings.ReplaceAll(ts, ":", "-")
	return strings.ReplaceAll(ts, ".", "-")
}
