package engine

import (
	"context"
	"sort"

	"github.com/dkeller9/capver/internal/errors"
)

// BranchInput contains parameters for the CreateBranch operation.
type BranchInput struct {
	CapsuleID string // required
	Name      string // required
	From      string // version id to branch from; default: current HEAD
}

// BranchOutput contains the result of the CreateBranch operation.
type BranchOutput struct {
	Name string `json:"name"`
	Head string `json:"head"`
}

// CreateBranch points a new branch at an existing version. Fails with
// ALREADY_EXISTS when the name is taken and NOT_FOUND when there is no
// version to branch from.
func (e *Engine) CreateBranch(ctx context.Context, input BranchInput) (*BranchOutput, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if input.Name == "" {
		return nil, errors.NewInvalidRequest("branch name is required")
	}

	l := e.lockFor(input.CapsuleID)
	l.Lock()
	defer l.Unlock()

	hist, err := e.history(ctx, input.CapsuleID)
	if err != nil {
		return nil, err
	}

	if _, ok := hist.Branches[input.Name]; ok {
		return nil, errors.NewAlreadyExists("branch", input.Name)
	}

	from := input.From
	if from == "" {
		head := hist.HeadVersion("")
		if head == nil {
			return nil, errors.NewNotFound("version", "HEAD of "+hist.CurrentBranch)
		}
		from = head.ID
	} else if hist.Lookup(from) == nil {
		return nil, errors.NewNotFound("version", from)
	}

	hist.Branches[input.Name] = from

	if err := e.persist(ctx, hist); err != nil {
		return nil, err
	}

	return &BranchOutput{Name: input.Name, Head: from}, nil
}

// BranchInfo describes one branch pointer.
type BranchInfo struct {
	Name    string `json:"name"`
	Head    string `json:"head"`
	Current bool   `json:"current"`
}

// ListBranches returns every branch of a capsule, sorted by name.
func (e *Engine) ListBranches(ctx context.Context, capsuleID string) ([]BranchInfo, error) {
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

	out := make([]BranchInfo, 0, len(hist.Branches))
	for name, head := range hist.Branches {
		out = append(out, BranchInfo{
			Name:    name,
			Head:    head,
			Current: name == hist.CurrentBranch,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
