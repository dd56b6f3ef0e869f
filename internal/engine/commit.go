package engine

import (
	"context"
	"log"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dkeller9/capver/internal/capsule"
	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// InitInput contains parameters for the Init operation.
type InitInput struct {
	CapsuleID string            // required
	Snapshot  *capsule.Snapshot // required
	Author    string            // default: config DefaultAuthor
	Message   string
}

// InitOutput contains the result of the Init operation.
type InitOutput struct {
	Version *version.Version `json:"version"`
	Branch  string           `json:"branch"`
}

// Init creates a capsule's history with its initial version: every file is
// recorded as Created, the default branch points at it. Fails with
// ALREADY_EXISTS when a history is already stored for the capsule.
func (e *Engine) Init(ctx context.Context, input InitInput) (*InitOutput, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if input.Snapshot == nil || len(input.Snapshot.Files) == 0 {
		return nil, errors.NewInvalidRequest("snapshot with at least one file is required")
	}
	author := input.Author
	if author == "" {
		author = e.cfg.DefaultAuthor
	}

	l := e.lockFor(input.CapsuleID)
	l.Lock()
	defer l.Unlock()

	_, err := e.store.Load(ctx, input.CapsuleID)
	if err == nil {
		return nil, errors.NewAlreadyExists("capsule history", input.CapsuleID)
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	if err := e.putSnapshotBlobs(ctx, input.Snapshot); err != nil {
		return nil, err
	}

	changes := make([]version.FileChange, 0, len(input.Snapshot.Files))
	for _, path := range input.Snapshot.Paths() {
		hash := capsule.HashString(input.Snapshot.Files[path])
		h := hash
		changes = append(changes, version.FileChange{
			Path:    path,
			Type:    version.Created,
			NewHash: &h,
		})
	}

	now := time.Now().UTC()
	capsuleHash := input.Snapshot.Hash()
	v := &version.Version{
		ID:          capsule.VersionID(capsuleHash, "", now, author),
		Kind:        version.KindLinear,
		Timestamp:   now,
		Author:      author,
		Message:     input.Message,
		Changes:     changes,
		CapsuleHash: capsuleHash,
		Metadata:    input.Snapshot.Metadata,
	}

	branch := e.cfg.DefaultBranch
	hist := version.NewHistory(input.CapsuleID, branch)
	hist.Append(v, branch)

	if err := e.persist(ctx, hist); err != nil {
		return nil, err
	}

	return &InitOutput{Version: v.Clone(), Branch: branch}, nil
}

// CommitInput contains parameters for the Commit operation.
type CommitInput struct {
	CapsuleID string            // required
	Snapshot  *capsule.Snapshot // required
	Parent    string            // default: HEAD of the current branch
	Author    string            // default: config DefaultAuthor
	Message   string
	Branch    string // branch whose HEAD moves; default: current branch
}

// CommitOutput contains the result of the Commit operation.
// Created is false when the snapshot was identical to the parent and the
// parent version was returned unchanged.
type CommitOutput struct {
	Version *version.Version `json:"version"`
	Created bool             `json:"created"`
}

// Commit appends a new version holding the change set between the parent's
// file map and the snapshot. An unchanged snapshot is a flagged no-op: the
// parent version comes back with Created=false and no node is appended.
func (e *Engine) Commit(ctx context.Context, input CommitInput) (*CommitOutput, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if input.Snapshot == nil {
		return nil, errors.NewInvalidRequest("snapshot is required")
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

	var parent *version.Version
	if input.Parent == "" {
		parent = hist.HeadVersion("")
		if parent == nil {
			return nil, errors.NewNotFound("version", "HEAD of "+hist.CurrentBranch)
		}
	} else {
		parent = hist.Lookup(input.Parent)
		if parent == nil {
			return nil, errors.NewNotFound("version", input.Parent)
		}
	}

	branch := input.Branch
	if branch == "" {
		branch = hist.CurrentBranch
	}
	if _, ok := hist.Branches[branch]; !ok {
		return nil, errors.NewNotFound("branch", branch)
	}

	parentMap, err := hist.FileMap(parent)
	if err != nil {
		return nil, errors.NewCorruptHistory(input.CapsuleID, err)
	}

	changes := version.Diff(parentMap, input.Snapshot.FileHashes())
	if len(changes) == 0 {
		log.Printf("WARN: no changes for capsule %s; returning parent version %s", input.CapsuleID, parent.ID)
		return &CommitOutput{Version: parent.Clone(), Created: false}, nil
	}

	if err := e.putSnapshotBlobs(ctx, input.Snapshot); err != nil {
		return nil, err
	}
	e.annotateDiffs(ctx, changes, input.Snapshot)

	now := time.Now().UTC()
	capsuleHash := input.Snapshot.Hash()
	parentID := parent.ID
	v := &version.Version{
		ID:          capsule.VersionID(capsuleHash, parentID, now, author),
		Kind:        version.KindLinear,
		Parent:      &parentID,
		Timestamp:   now,
		Author:      author,
		Message:     input.Message,
		Changes:     changes,
		CapsuleHash: capsuleHash,
		Metadata:    input.Snapshot.Metadata,
	}

	hist.Append(v, branch)

	if err := e.persist(ctx, hist); err != nil {
		return nil, err
	}

	return &CommitOutput{Version: v.Clone(), Created: true}, nil
}

// putSnapshotBlobs stores every file body under its content hash.
func (e *Engine) putSnapshotBlobs(ctx context.Context, snap *capsule.Snapshot) error {
	for _, path := range snap.Paths() {
		content := snap.Files[path]
		if err := e.store.PutBlob(ctx, capsule.HashString(content), []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

// annotateDiffs fills the optional unified-diff text on modified changes,
// when the parent's blob is still available. Best-effort: a missing blob
// leaves the change classification untouched.
func (e *Engine) annotateDiffs(ctx context.Context, changes []version.FileChange, snap *capsule.Snapshot) {
	for i := range changes {
		fc := &changes[i]
		if fc.Type != version.Modified || fc.OldHash == nil {
			continue
		}
		oldContent, err := e.store.GetBlob(ctx, *fc.OldHash)
		if err != nil {
			continue
		}
		newContent, ok := snap.Files[fc.Path]
		if !ok {
			continue
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(oldContent)),
			B:        difflib.SplitLines(newContent),
			FromFile: fc.Path,
			ToFile:   fc.Path,
			Context:  3,
		})
		if err != nil || text == "" {
			continue
		}
		fc.Diff = &text
	}
}
