package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// FileStore persists one JSON document per capsule under
// <base>/histories/<capsule_id>.json and blobs under
// <base>/blobs/<hh>/<hash>. All writes go through write-to-temp-then-rename
// so a crash mid-write leaves the previous document intact.
type FileStore struct {
	base string
}

// NewFileStore creates the backing directories and returns a FileStore.
func NewFileStore(base string) (*FileStore, error) {
	for _, dir := range []string{base, filepath.Join(base, "histories"), filepath.Join(base, "blobs")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		_ = os.Chmod(dir, 0700)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) historyPath(capsuleID string) string {
	return filepath.Join(s.base, "histories", capsuleID+".json")
}

func (s *FileStore) blobPath(hash string) string {
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.base, "blobs", prefix, hash)
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, capsuleID string) (*version.History, error) {
	if err := validCapsuleID(capsuleID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.historyPath(capsuleID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("capsule", capsuleID)
		}
		return nil, errors.NewInternal(err)
	}

	h := &version.History{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}
	if err := h.Validate(); err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}
	return h, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, h *version.History) error {
	if err := validCapsuleID(h.CapsuleID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := atomicWrite(s.historyPath(h.CapsuleID), data); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.base, "histories"))
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// PutBlob implements Store.
func (s *FileStore) PutBlob(ctx context.Context, hash string, content []byte) error {
	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return nil // already stored, content-addressed
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(err)
	}
	if err := atomicWrite(path, content); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetBlob implements Store.
func (s *FileStore) GetBlob(ctx context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("blob", hash)
		}
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Close implements Store. No resources to release for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// atomicWrite writes data to a temp file in the target directory, then
// renames it over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	_ = os.Chmod(tmpName, 0600)

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// validCapsuleID rejects ids that would escape the histories directory.
func validCapsuleID(id string) error {
	if id == "" {
		return errors.NewInvalidRequest("capsule_id is required")
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid capsule_id: %q", id))
	}
	return nil
}
