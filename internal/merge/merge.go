// Package merge implements common-ancestor resolution and three-way merging
// over a capsule's version history.
package merge

import (
	"sort"

	"github.com/dkeller9/capver/internal/version"
)

// FindCommonAncestor returns the nearest version reachable from both a and b
// by following parent links (both parents for merge versions). It collects
// a's full ancestor set, then walks outward from b in breadth-first order,
// returning the first version found in the set. Nil when the two share no
// root, which cannot happen inside one well-formed history but is handled.
func FindCommonAncestor(h *version.History, a, b *version.Version) *version.Version {
	if a == nil || b == nil {
		return nil
	}

	ancestors := make(map[string]bool)
	queue := []*version.Version{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if ancestors[cur.ID] {
			continue
		}
		ancestors[cur.ID] = true
		for _, p := range cur.Parents() {
			if parent := h.Lookup(p); parent != nil {
				queue = append(queue, parent)
			}
		}
	}

	visited := make(map[string]bool)
	queue = []*version.Version{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.ID] {
			continue
		}
		visited[cur.ID] = true
		if ancestors[cur.ID] {
			return cur
		}
		for _, p := range cur.Parents() {
			if parent := h.Lookup(p); parent != nil {
				queue = append(queue, parent)
			}
		}
	}
	return nil
}

// ThreeWayMerge combines the source and target file-hash maps relative to
// their common ancestor (nil for a rootless merge) and returns the change
// set to apply on top of target. The policy is deterministic and
// non-symmetric: when both sides changed the same file, source content wins
// and the discrepancy is annotated, never silently dropped. Conflicts are
// recorded, not blocking.
func ThreeWayMerge(ancestor, source, target map[string]string) []version.FileChange {
	if ancestor == nil {
		ancestor = map[string]string{}
	}

	changes := make([]version.FileChange, 0)
	for _, path := range unionPaths(source, target) {
		srcHash, inSource := source[path]
		tgtHash, inTarget := target[path]
		ancHash, inAncestor := ancestor[path]

		switch {
		case inSource && inTarget:
			if srcHash == tgtHash {
				// Both sides agree. Only worth recording if they moved
				// away from the ancestor together.
				if inAncestor && ancHash == srcHash {
					continue
				}
				fc := version.FileChange{Path: path, NewHash: strPtr(srcHash)}
				if inAncestor {
					fc.Type = version.Modified
					fc.OldHash = strPtr(ancHash)
				} else {
					fc.Type = version.Created
				}
				changes = append(changes, fc)
				continue
			}
			if inAncestor && srcHash == ancHash {
				// Only target changed; target content already in place.
				continue
			}
			if inAncestor && tgtHash == ancHash {
				// Only source changed; apply it cleanly.
				changes = append(changes, version.FileChange{
					Path:    path,
					Type:    version.Modified,
					OldHash: strPtr(tgtHash),
					NewHash: strPtr(srcHash),
				})
				continue
			}
			// Both sides diverged. Prefer source, keep the target hash so
			// the losing side is never lost.
			changes = append(changes, version.FileChange{
				Path:    path,
				Type:    version.Merged,
				OldHash: strPtr(tgtHash),
				NewHash: strPtr(srcHash),
				Metadata: map[string]any{
					version.ConflictKey:   version.ConflictModifyModify,
					version.TargetHashKey: tgtHash,
				},
			})

		case inSource && !inTarget:
			// Deleted in target, present in source: keep source content.
			fc := version.FileChange{
				Path:    path,
				Type:    version.Merged,
				NewHash: strPtr(srcHash),
				Metadata: map[string]any{
					version.ConflictKey: version.ConflictDeleteModify,
				},
			}
			if inAncestor {
				fc.OldHash = strPtr(ancHash)
			}
			changes = append(changes, fc)

		default:
			// Present only in target: source deleted it, target keeps it.
		}
	}
	return changes
}

// ConflictCount returns how many changes in the set carry a conflict
// annotation.
func ConflictCount(changes []version.FileChange) int {
	n := 0
	for i := range changes {
		if changes[i].Conflict() != "" {
			n++
		}
	}
	return n
}

func unionPaths(a, b map[string]string) []string {
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
	return paths
}

func strPtr(s string) *string {
	return &s
}
