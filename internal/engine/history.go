package engine

import (
	"context"
	"sort"

	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// GetVersion returns a specific version, or the HEAD of the current branch
// when versionID is empty. The result is a copy; later tagging of the stored
// version does not mutate it.
func (e *Engine) GetVersion(ctx context.Context, capsuleID, versionID string) (*version.Version, error) {
	if capsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}

	l := e.lockFor(capsuleID)
	l.RLock()
	defer l.RUnlock()

	hist, err := e.history(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	if versionID == "" {
		head := hist.HeadVersion("")
		if head == nil {
			return nil, errors.NewNotFound("version", "HEAD of "+hist.CurrentBranch)
		}
		return head.Clone(), nil
	}

	v := hist.Lookup(versionID)
	if v == nil {
		return nil, errors.NewNotFound("version", versionID)
	}
	return v.Clone(), nil
}

// HistoryInput contains parameters for the GetHistory operation.
type HistoryInput struct {
	CapsuleID string // required
	Branch    string // optional: walk this branch's parent chain
	Limit     int    // optional: cap on returned entries
}

// GetHistory lists versions most-recent first. With a branch, it walks
// parent links from the branch HEAD; without one, it returns all versions
// sorted by timestamp descending.
func (e *Engine) GetHistory(ctx context.Context, input HistoryInput) ([]*version.Version, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}

	l := e.lockFor(input.CapsuleID)
	l.RLock()
	defer l.RUnlock()

	hist, err := e.history(ctx, input.CapsuleID)
	if err != nil {
		return nil, err
	}

	if input.Branch != "" {
		head, ok := hist.Branches[input.Branch]
		if !ok {
			return nil, errors.NewNotFound("branch", input.Branch)
		}

		out := make([]*version.Version, 0)
		for cur := hist.Lookup(head); cur != nil; {
			out = append(out, cur.Clone())
			if input.Limit > 0 && len(out) >= input.Limit {
				break
			}
			if cur.Parent == nil {
				break
			}
			cur = hist.Lookup(*cur.Parent)
		}
		return out, nil
	}

	out := make([]*version.Version, len(hist.Versions))
	for i, v := range hist.Versions {
		out[i] = v.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if input.Limit > 0 && len(out) > input.Limit {
		out = out[:input.Limit]
	}
	return out, nil
}
