package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// backends returns a named constructor per store implementation so every
// backend runs the same contract suite.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(t.TempDir())
			if err != nil {
				t.Fatalf("OpenSQLite failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func sampleHistory() *version.History {
	parent := "v1"
	h := version.NewHistory("cap1", "main")
	newHash := "hash-a1"
	h.Append(&version.Version{
		ID:          "v1",
		Kind:        version.KindLinear,
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Author:      "pipeline",
		Message:     "initial",
		Changes:     []version.FileChange{{Path: "a.py", Type: version.Created, NewHash: &newHash}},
		CapsuleHash: "cap-hash-1",
	}, "main")
	modHash := "hash-a2"
	h.Append(&version.Version{
		ID:          "v2",
		Kind:        version.KindLinear,
		Parent:      &parent,
		Timestamp:   time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		Author:      "pipeline",
		Message:     "update",
		Changes:     []version.FileChange{{Path: "a.py", Type: version.Modified, OldHash: &newHash, NewHash: &modHash}},
		CapsuleHash: "cap-hash-2",
		Tags:        []string{"release"},
	}, "main")
	return h
}

func TestStore_RoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			want := sampleHistory()
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := s.Load(ctx, "cap1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			_, err := s.Load(context.Background(), "ghost")
			if !errors.Is(err, errors.ErrNotFound) {
				t.Errorf("err = %v, want NOT_FOUND", err)
			}
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			h := sampleHistory()
			if err := s.Save(ctx, h); err != nil {
				t.Fatalf("first Save failed: %v", err)
			}

			h.Lookup("v2").AddTag("v1.0")
			if err := s.Save(ctx, h); err != nil {
				t.Fatalf("second Save failed: %v", err)
			}

			got, err := s.Load(ctx, "cap1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !got.Lookup("v2").HasTag("v1.0") {
				t.Error("overwrite lost the new tag")
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			for _, id := range []string{"zeta", "alpha"} {
				h := sampleHistory()
				h.CapsuleID = id
				if err := s.Save(ctx, h); err != nil {
					t.Fatalf("Save(%s) failed: %v", id, err)
				}
			}

			ids, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "zeta" {
				t.Errorf("ids = %v, want [alpha zeta]", ids)
			}
		})
	}
}

func TestStore_Blobs(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if err := s.PutBlob(ctx, "abc123", []byte("content")); err != nil {
				t.Fatalf("PutBlob failed: %v", err)
			}
			// Re-put with the same hash is a no-op, not an error.
			if err := s.PutBlob(ctx, "abc123", []byte("content")); err != nil {
				t.Fatalf("duplicate PutBlob failed: %v", err)
			}

			got, err := s.GetBlob(ctx, "abc123")
			if err != nil {
				t.Fatalf("GetBlob failed: %v", err)
			}
			if string(got) != "content" {
				t.Errorf("blob = %q, want %q", got, "content")
			}

			if _, err := s.GetBlob(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
				t.Errorf("err = %v, want NOT_FOUND", err)
			}
		})
	}
}

func TestFileStore_CorruptHistory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	path := filepath.Join(dir, "histories", "cap1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := s.Load(context.Background(), "cap1"); !errors.Is(err, errors.ErrCorruptHistory) {
		t.Errorf("err = %v, want CORRUPT_HISTORY", err)
	}
}

func TestFileStore_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Parses but violates invariants: version referencing a missing parent.
	h := sampleHistory()
	h.Versions[1].Parent = strPtr("ghost")
	data, _ := json.Marshal(h)
	path := filepath.Join(dir, "histories", "cap1.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := s.Load(context.Background(), "cap1"); !errors.Is(err, errors.ErrCorruptHistory) {
		t.Errorf("err = %v, want CORRUPT_HISTORY", err)
	}
}

func TestFileStore_RejectsTraversalIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := s.Load(context.Background(), id); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Load(%q) err = %v, want INVALID_REQUEST", id, err)
		}
	}
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Save(context.Background(), sampleHistory()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "histories"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "cap1.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestSQLite_SchemaVersion(t *testing.T) {
	s, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	v, err := GetUserVersion(s.DB())
	if err != nil {
		t.Fatalf("GetUserVersion failed: %v", err)
	}
	if v != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", v, CurrentSchemaVersion)
	}
}

func TestSQLite_CorruptHistory(t *testing.T) {
	s, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	_, err = s.DB().Exec(
		`INSERT INTO histories (capsule_id, doc, updated_at) VALUES (?, ?, ?)`,
		"cap1", "{broken", time.Now().Unix())
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.Load(context.Background(), "cap1"); !errors.Is(err, errors.ErrCorruptHistory) {
		t.Errorf("err = %v, want CORRUPT_HISTORY", err)
	}
}

func strPtr(s string) *string {
	return &s
}
