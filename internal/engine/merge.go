package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dkeller9/capver/internal/capsule"
	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/merge"
	"github.com/dkeller9/capver/internal/version"
)

// MergeInput contains parameters for the Merge operation.
type MergeInput struct {
	CapsuleID string // required
	Source    string // required: the "from" version id
	Target    string // required: the "into" version id
	Author    string // default: config DefaultAuthor
	Message   string // default: "Merge <source> into <target>"
}

// MergeOutput contains the result of the Merge operation.
type MergeOutput struct {
	Version        *version.Version `json:"version"`
	CommonAncestor string           `json:"common_ancestor"`
	Conflicts      int              `json:"conflicts"`
}

// Merge finds the common ancestor of source and target, performs a
// three-way merge, and appends a merge version on top of target. The branch
// whose HEAD is the target advances to the merge version; when the target is
// not any branch's HEAD, branch pointers stay put. Conflicts are annotated
// on the change set, never blocking. Fails with ANCESTOR_NOT_FOUND when the
// two versions share no root.
func (e *Engine) Merge(ctx context.Context, input MergeInput) (*MergeOutput, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if input.Source == "" || input.Target == "" {
		return nil, errors.NewInvalidRequest("source and target version ids are required")
	}
	if input.Source == input.Target {
		return nil, errors.NewInvalidRequest("cannot merge a version into itself")
	}
	author := input.Author
	if author == "" {
		author = e.cfg.DefaultAuthor
	}

	l := e.lockFor(input.CapsuleID)
	l.Lock()
	defer l.Unlock()

	hist, err := e.history(ctx, input.CapsuleID)
	if err != nil {
		return nil, err
	}

	src := hist.Lookup(input.Source)
	if src == nil {
		return nil, errors.NewNotFound("version", input.Source)
	}
	tgt := hist.Lookup(input.Target)
	if tgt == nil {
		return nil, errors.NewNotFound("version", input.Target)
	}

	anc := merge.FindCommonAncestor(hist, src, tgt)
	if anc == nil {
		return nil, errors.NewAncestorNotFound(input.Source, input.Target)
	}

	ancMap, err := hist.FileMap(anc)
	if err != nil {
		return nil, errors.NewCorruptHistory(input.CapsuleID, err)
	}
	srcMap, err := hist.FileMap(src)
	if err != nil {
		return nil, errors.NewCorruptHistory(input.CapsuleID, err)
	}
	tgtMap, err := hist.FileMap(tgt)
	if err != nil {
		return nil, errors.NewCorruptHistory(input.CapsuleID, err)
	}

	changes := merge.ThreeWayMerge(ancMap, srcMap, tgtMap)

	// Merged file map: the change set applied over target.
	mergedMap := make(map[string]string, len(tgtMap))
	for path, hash := range tgtMap {
		mergedMap[path] = hash
	}
	for _, fc := range changes {
		if fc.Type == version.Deleted {
			delete(mergedMap, fc.Path)
			continue
		}
		if fc.NewHash != nil {
			mergedMap[fc.Path] = *fc.NewHash
		}
	}

	contents := make(map[string]string, len(mergedMap))
	for path, hash := range mergedMap {
		blob, err := e.store.GetBlob(ctx, hash)
		if err != nil {
			return nil, err
		}
		contents[path] = string(blob)
	}
	capsuleHash := capsule.HashFiles(contents, "")

	message := input.Message
	if message == "" {
		message = fmt.Sprintf("Merge %s into %s", short(src.ID), short(tgt.ID))
	}

	now := time.Now().UTC()
	srcID, tgtID, ancID := src.ID, tgt.ID, anc.ID
	v := &version.Version{
		ID:             capsule.VersionID(capsuleHash, tgtID, now, author),
		Kind:           version.KindMerge,
		Parent:         &tgtID,
		SourceParent:   &srcID,
		CommonAncestor: &ancID,
		Timestamp:      now,
		Author:         author,
		Message:        message,
		Changes:        changes,
		CapsuleHash:    capsuleHash,
		Metadata: map[string]any{
			"merge":           true,
			"source_version":  srcID,
			"target_version":  tgtID,
			"common_ancestor": ancID,
		},
	}

	if name, ok := branchHeadedAt(hist, tgtID); ok {
		hist.Append(v, name)
	} else {
		hist.AppendDetached(v)
	}

	if err := e.persist(ctx, hist); err != nil {
		return nil, err
	}

	return &MergeOutput{
		Version:        v.Clone(),
		CommonAncestor: ancID,
		Conflicts:      merge.ConflictCount(changes),
	}, nil
}

// branchHeadedAt returns a branch whose HEAD is the given version, preferring
// the current branch, then the first matching name in sorted order. False
// when no branch points at the version; advancing an unrelated branch would
// move its HEAD outside its own ancestry.
func branchHeadedAt(h *version.History, versionID string) (string, bool) {
	if h.Branches[h.CurrentBranch] == versionID {
		return h.CurrentBranch, true
	}
	names := make([]string, 0, len(h.Branches))
	for name, head := range h.Branches {
		if head == versionID {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) > 0 {
		return names[0], true
	}
	return "", false
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
