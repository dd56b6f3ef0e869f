package capsule

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// HashBytes returns the hex-encoded sha256 digest of content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex-encoded sha256 digest of a file's content.
func HashString(content string) string {
	return HashBytes([]byte(content))
}

// Hash computes the capsule hash: each file's path and content in
// sorted path order, then the documentation text. Metadata is excluded.
func (s *Snapshot) Hash() string {
	return HashFiles(s.Files, s.Documentation)
}

// HashFiles computes a capsule hash from an explicit file map and
// documentation text. Deterministic for a given logical content set.
func HashFiles(files map[string]string, documentation string) string {
	h := sha256.New()
	for _, path := range sortedKeys(files) {
		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write([]byte(files[path]))
		h.Write([]byte{0})
	}
	h.Write([]byte(documentation))
	return hex.EncodeToString(h.Sum(nil))
}

// VersionID derives a content-addressed version identifier from the capsule
// hash, parent version id, timestamp, and author. Reproducible across
// processes, unlike wall-clock-plus-object-identity schemes.
func VersionID(capsuleHash, parent string, ts time.Time, author string) string {
	h := sha256.New()
	h.Write([]byte(capsuleHash))
	h.Write([]byte{0})
	h.Write([]byte(parent))
	h.Write([]byte{0})
	h.Write([]byte(ts.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(author))
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
