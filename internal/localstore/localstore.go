package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/folkops/opsboard/internal/grid"
)

const (
	changesFile  = "changes.json"
	pageSizeFile = "page_size.json"

	// DefaultPageSize is used when no preference has been stored.
	DefaultPageSize = 50
)

// Store persists grid state that must survive a restart: the merged
// legacy+pending change map, per-view visible-column configuration and the
// rows-per-page preference. Everything is plain JSON files under one
// directory; writes go through a temp file and rename.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New opens (creating if needed) a store rooted at dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("localstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Default opens the store under the user config directory.
func Default() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user config dir: %w", err)
	}
	return New(filepath.Join(base, "opsboard"))
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// SaveChanges writes the merged change map.
func (s *Store) SaveChanges(cs grid.ChangeSet) error {
	return s.writeJSON(changesFile, cs)
}

// LoadChanges restores the change map left by an earlier session. A
// missing file is an empty map; corrupt JSON is returned as an error for
// the caller to log and treat as no pending changes.
func (s *Store) LoadChanges() (grid.ChangeSet, error) {
	var cs grid.ChangeSet
	if err := s.readJSON(changesFile, &cs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(grid.ChangeSet), nil
		}
		return nil, err
	}
	if cs == nil {
		cs = make(grid.ChangeSet)
	}
	return cs, nil
}

// ClearChanges wipes the stored change map.
func (s *Store) ClearChanges() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(filepath.Join(s.dir, changesFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear local changes: %w", err)
	}
	return nil
}

// SaveColumns stores the visible-column keys for one view.
func (s *Store) SaveColumns(view string, keys []string) error {
	return s.writeJSON(columnsFile(view), keys)
}

// LoadColumns returns the stored visible columns for a view, or nil when
// nothing was stored and the view's defaults apply.
func (s *Store) LoadColumns(view string) ([]string, error) {
	var keys []string
	if err := s.readJSON(columnsFile(view), &keys); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return keys, nil
}

// SavePageSize stores the rows-per-page preference.
func (s *Store) SavePageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("page size must be positive, got %d", n)
	}
	return s.writeJSON(pageSizeFile, n)
}

// LoadPageSize returns the stored preference, or the default.
func (s *Store) LoadPageSize() int {
	var n int
	if err := s.readJSON(pageSizeFile, &n); err != nil || n <= 0 {
		return DefaultPageSize
	}
	return n
}

func columnsFile(view string) string {
	// View names come from code, but keep the filename tame anyway.
	view = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(view))
	return "columns_" + view + ".json"
}

func (s *Store) writeJSON(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
