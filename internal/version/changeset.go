package version

import "sort"

// Diff classifies every path in the union of two path→hash maps as Created
// (only in b), Deleted (only in a), or Modified (hash differs). Unchanged
// paths produce no entry. Deterministic: output is in sorted path order.
func Diff(a, b map[string]string) []FileChange {
	paths := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for p := range a {
		paths = append(paths, p)
		seen[p] = true
	}
	for p := range b {
		if !seen[p] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	changes := make([]FileChange, 0, len(paths))
	for _, path := range paths {
		oldHash, inA := a[path]
		newHash, inB := b[path]

		switch {
		case inA && !inB:
			h := oldHash
			changes = append(changes, FileChange{Path: path, Type: Deleted, OldHash: &h})
		case !inA && inB:
			h := newHash
			changes = append(changes, FileChange{Path: path, Type: Created, NewHash: &h})
		case oldHash != newHash:
			oh, nh := oldHash, newHash
			changes = append(changes, FileChange{Path: path, Type: Modified, OldHash: &oh, NewHash: &nh})
		}
	}
	return changes
}
