package engine

import (
	"context"

	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// GetDiff reconstructs the file-hash maps of two versions and returns the
// plain change classification between them. No conflict concept here.
func (e *Engine) GetDiff(ctx context.Context, capsuleID, v1, v2 string) ([]version.FileChange, error) {
	if capsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if v1 == "" || v2 == "" {
		return nil, errors.NewInvalidRequest("two version ids are required")
	}

	l := e.lockFor(capsuleID)
	l.RLock()
	defer l.RUnlock()

	hist, err := e.history(ctx, capsuleID)
	if err != nil {
		return nil, err
	}

	a := hist.Lookup(v1)
	if a == nil {
		return nil, errors.NewNotFound("version", v1)
	}
	b := hist.Lookup(v2)
	if b == nil {
		return nil, errors.NewNotFound("version", v2)
	}

	aMap, err := hist.FileMap(a)
	if err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}
	bMap, err := hist.FileMap(b)
	if err != nil {
		return nil, errors.NewCorruptHistory(capsuleID, err)
	}

	return version.Diff(aMap, bMap), nil
}
