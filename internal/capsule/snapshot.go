package capsule

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Snapshot is the ephemeral input to a commit: the full file set of a
// generated capsule at one point in time. It is never persisted directly;
// only its hashes and the derived change set are stored.
type Snapshot struct {
	// Files maps file path to file content
	Files map[string]string `json:"files"`

	// Documentation is the capsule's accompanying documentation text
	Documentation string `json:"documentation,omitempty"`

	// Metadata carries generation-pipeline annotations (confidence score,
	// model id, ...). Excluded from hashing: only content affects identity.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSnapshot creates a Snapshot from a file map.
func NewSnapshot(files map[string]string) *Snapshot {
	return &Snapshot{Files: files}
}

// Paths returns the snapshot's file paths in sorted order.
func (s *Snapshot) Paths() []string {
	return sortedKeys(s.Files)
}

// FileHashes returns a path → content-hash map for the snapshot.
func (s *Snapshot) FileHashes() map[string]string {
	hashes := make(map[string]string, len(s.Files))
	for path, content := range s.Files {
		hashes[path] = HashString(content)
	}
	return hashes
}

// LoadDir builds a Snapshot from a directory tree. Paths are stored
// slash-separated and relative to dir. Dot-prefixed files and directories
// are skipped.
func LoadDir(dir string) (*Snapshot, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Snapshot{Files: files}, nil
}
