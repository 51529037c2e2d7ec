package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/folkops/opsboard/internal/grid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestChangesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cs := grid.ChangeSet{
		"ORD-1": {
			"note":  {New: "gấp", Original: ""},
			"phone": {New: "0901", Original: "0900"},
		},
	}
	if err := s.SaveChanges(cs); err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}

	loaded, err := s.LoadChanges()
	if err != nil {
		t.Fatalf("LoadChanges: %v", err)
	}
	if !loaded.Equal(cs) {
		t.Fatalf("loaded = %+v, want %+v", loaded, cs)
	}
}

func TestLoadChangesMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	cs, err := s.LoadChanges()
	if err != nil {
		t.Fatalf("LoadChanges: %v", err)
	}
	if !cs.Empty() {
		t.Fatalf("expected empty set, got %+v", cs)
	}
}

func TestLoadChangesCorruptJSONReturnsError(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.Dir(), "changes.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadChanges(); err == nil {
		t.Fatal("corrupt payload must surface as an error for the caller to log")
	}
}

func TestClearChanges(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveChanges(grid.ChangeSet{"ORD-1": {"note": {New: "x"}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearChanges(); err != nil {
		t.Fatalf("ClearChanges: %v", err)
	}
	cs, err := s.LoadChanges()
	if err != nil || !cs.Empty() {
		t.Fatalf("after clear: %+v, %v", cs, err)
	}
	// Clearing twice is fine.
	if err := s.ClearChanges(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestColumnsPerView(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveColumns("vận đơn", []string{"order_code", "note"}); err != nil {
		t.Fatalf("SaveColumns: %v", err)
	}
	keys, err := s.LoadColumns("vận đơn")
	if err != nil {
		t.Fatalf("LoadColumns: %v", err)
	}
	if len(keys) != 2 || keys[0] != "order_code" {
		t.Fatalf("keys = %v", keys)
	}

	other, err := s.LoadColumns("reports")
	if err != nil || other != nil {
		t.Fatalf("unstored view: %v, %v", other, err)
	}
}

func TestPageSizePreference(t *testing.T) {
	s := newTestStore(t)

	if got := s.LoadPageSize(); got != DefaultPageSize {
		t.Fatalf("default = %d", got)
	}
	if err := s.SavePageSize(100); err != nil {
		t.Fatalf("SavePageSize: %v", err)
	}
	if got := s.LoadPageSize(); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
	if err := s.SavePageSize(0); err == nil {
		t.Fatal("zero page size accepted")
	}
}
