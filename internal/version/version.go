package version

import (
	"fmt"
	"time"
)

// ChangeType classifies a file-level change relative to the parent version.
type ChangeType string

const (
	Created  ChangeType = "created"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Merged   ChangeType = "merged"
)

// Kind distinguishes linear commits from merge commits.
type Kind string

const (
	KindLinear Kind = "linear"
	KindMerge  Kind = "merge"
)

// Conflict annotation keys and values used in FileChange.Metadata.
const (
	ConflictKey          = "conflict"
	ConflictModifyModify = "modify-modify"
	ConflictDeleteModify = "delete-modify"
	TargetHashKey        = "target_hash"
)

// FileChange records one whole-file change within a version.
type FileChange struct {
	// Path is the slash-separated file path within the capsule
	Path string `json:"path"`

	// Type is the change classification
	Type ChangeType `json:"change_type"`

	// OldHash is the content hash before the change (nil for created files)
	OldHash *string `json:"old_hash,omitempty"`

	// NewHash is the content hash after the change (nil for deleted files)
	NewHash *string `json:"new_hash,omitempty"`

	// Diff is an optional unified diff of the change
	Diff *string `json:"diff,omitempty"`

	// Metadata carries change annotations, e.g. merge conflict markers
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Conflict returns the conflict annotation for a merged change, or "" if the
// change carries none.
func (fc *FileChange) Conflict() string {
	if fc.Metadata == nil {
		return ""
	}
	if c, ok := fc.Metadata[ConflictKey].(string); ok {
		return c
	}
	return ""
}

// Version is an immutable snapshot descriptor: the file-level change set
// relative to its parent. Only the tag set may grow after creation.
type Version struct {
	// ID is a content-addressed sha256 digest (64 hex chars)
	ID string `json:"version_id"`

	// Kind is "linear" or "merge"
	Kind Kind `json:"kind"`

	// Parent is the parent version id; for merges, the "into" (target)
	// parent. Nil for the root version.
	Parent *string `json:"parent_version"`

	// SourceParent is the merged-from parent, set only for merges
	SourceParent *string `json:"source_version,omitempty"`

	// CommonAncestor is the merge base, set only for merges that found one
	CommonAncestor *string `json:"common_ancestor,omitempty"`

	// Timestamp is when the version was created
	Timestamp time.Time `json:"timestamp"`

	// Author identifies who (or which agent) created the version
	Author string `json:"author"`

	// Message is the commit message
	Message string `json:"message"`

	// Changes is the ordered change set relative to Parent
	Changes []FileChange `json:"changes"`

	// CapsuleHash is the whole-capsule content hash at this version
	CapsuleHash string `json:"capsule_hash"`

	// Tags is the set of tags applied to this version
	Tags []string `json:"tags,omitempty"`

	// Metadata carries version annotations (merge bookkeeping, pipeline info)
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Parents returns every parent id of the version: one for linear versions,
// target then source for merges.
func (v *Version) Parents() []string {
	parents := make([]string, 0, 2)
	if v.Parent != nil {
		parents = append(parents, *v.Parent)
	}
	if v.SourceParent != nil {
		parents = append(parents, *v.SourceParent)
	}
	return parents
}

// HasTag reports whether the version carries the given tag.
func (v *Version) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present. Returns false for the
// idempotent no-op case.
func (v *Version) AddTag(tag string) bool {
	if v.HasTag(tag) {
		return false
	}
	v.Tags = append(v.Tags, tag)
	return true
}

// Clone returns a deep copy of the version. Engine operations hand out
// clones so callers can read and marshal results without holding the
// engine's locks while the stored version's tag set grows.
func (v *Version) Clone() *Version {
	c := *v
	if v.Changes != nil {
		c.Changes = make([]FileChange, len(v.Changes))
		copy(c.Changes, v.Changes)
		for i := range c.Changes {
			c.Changes[i].Metadata = cloneMap(v.Changes[i].Metadata)
		}
	}
	if v.Tags != nil {
		c.Tags = append([]string(nil), v.Tags...)
	}
	c.Metadata = cloneMap(v.Metadata)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

// History is the complete version record of one capsule: the version DAG,
// branch pointers, and the active branch. Append-only; rewriting or deleting
// versions is unsupported.
type History struct {
	// CapsuleID identifies the capsule this history belongs to
	CapsuleID string `json:"capsule_id"`

	// Versions holds every version in creation order
	Versions []*Version `json:"versions"`

	// Branches maps branch name to version id (the branch HEAD)
	Branches map[string]string `json:"branches"`

	// CurrentBranch is the active branch name
	CurrentBranch string `json:"current_branch"`

	// Head is the id of the current branch's HEAD version
	Head *string `json:"head"`
}

// NewHistory creates an empty history for a capsule with the given
// default branch.
func NewHistory(capsuleID, branch string) *History {
	return &History{
		CapsuleID:     capsuleID,
		Versions:      make([]*Version, 0, 1),
		Branches:      make(map[string]string),
		CurrentBranch: branch,
	}
}

// Lookup returns the version with the given id, or nil.
func (h *History) Lookup(id string) *Version {
	for _, v := range h.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// HeadVersion returns the HEAD of the given branch, or of the current branch
// when name is empty. Nil when the branch has no versions.
func (h *History) HeadVersion(name string) *Version {
	if name == "" {
		name = h.CurrentBranch
	}
	id, ok := h.Branches[name]
	if !ok {
		return nil
	}
	return h.Lookup(id)
}

// Append adds a version and moves the given branch's HEAD to it. The history
// head follows the current branch.
func (h *History) Append(v *Version, branch string) {
	if branch == "" {
		branch = h.CurrentBranch
	}
	h.Versions = append(h.Versions, v)
	h.Branches[branch] = v.ID
	if branch == h.CurrentBranch {
		id := v.ID
		h.Head = &id
	}
}

// AppendDetached adds a version without moving any branch pointer. Used for
// merge versions whose target is not a branch HEAD.
func (h *History) AppendDetached(v *Version) {
	h.Versions = append(h.Versions, v)
}

// Validate checks the structural invariants of the history: unique version
// ids, parent links resolving within the same history, exactly one root, and
// branch pointers resolving to existing versions.
func (h *History) Validate() error {
	if h.CapsuleID == "" {
		return fmt.Errorf("missing capsule_id")
	}

	seen := make(map[string]bool, len(h.Versions))
	roots := 0
	for _, v := range h.Versions {
		if v.ID == "" {
			return fmt.Errorf("version with empty id")
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate version id %s", v.ID)
		}
		seen[v.ID] = true
		if v.Parent == nil {
			roots++
		}
	}
	if len(h.Versions) > 0 && roots != 1 {
		return fmt.Errorf("expected exactly one root version, found %d", roots)
	}

	// Versions are stored in creation order, so parents must precede children.
	for _, v := range h.Versions {
		for _, p := range v.Parents() {
			if h.Lookup(p) == nil {
				return fmt.Errorf("version %s references unknown parent %s", v.ID, p)
			}
		}
	}

	for name, id := range h.Branches {
		if !seen[id] {
			return fmt.Errorf("branch %s points to unknown version %s", name, id)
		}
	}
	if _, ok := h.Branches[h.CurrentBranch]; !ok && len(h.Versions) > 0 {
		return fmt.Errorf("current branch %s has no head", h.CurrentBranch)
	}
	if h.Head != nil && !seen[*h.Head] {
		return fmt.Errorf("head points to unknown version %s", *h.Head)
	}

	return nil
}
