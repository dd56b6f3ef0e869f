package engine

import (
	"context"

	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/version"
)

// TagInput contains parameters for the TagVersion operation.
type TagInput struct {
	CapsuleID string // required
	VersionID string // required
	Tag       string // required
	Message   string // optional annotation, recorded in version metadata
}

// TagOutput contains the result of the TagVersion operation.
// Added is false when the version already carried the tag.
type TagOutput struct {
	Version *version.Version `json:"version"`
	Added   bool             `json:"added"`
}

// TagVersion appends a tag to a version. Idempotent: re-adding an existing
// tag leaves the tag set unchanged and reports Added=false, though a new or
// changed message is still recorded. Tag append is the only mutation a
// version admits; the returned version is a copy.
func (e *Engine) TagVersion(ctx context.Context, input TagInput) (*TagOutput, error) {
	if input.CapsuleID == "" {
		return nil, errors.NewInvalidRequest("capsule_id is required")
	}
	if input.VersionID == "" {
		return nil, errors.NewInvalidRequest("version_id is required")
	}
	if input.Tag == "" {
		return nil, errors.NewInvalidRequest("tag is required")
	}

	l := e.lockFor(input.CapsuleID)
	l.Lock()
	defer l.Unlock()

	hist, err := e.history(ctx, input.CapsuleID)
	if err != nil {
		return nil, err
	}

	v := hist.Lookup(input.VersionID)
	if v == nil {
		return nil, errors.NewNotFound("version", input.VersionID)
	}

	added := v.AddTag(input.Tag)

	changed := added
	if input.Message != "" {
		if v.Metadata == nil {
			v.Metadata = make(map[string]any)
		}
		key := "tag:" + input.Tag
		if v.Metadata[key] != input.Message {
			v.Metadata[key] = input.Message
			changed = true
		}
	}

	if !changed {
		return &TagOutput{Version: v.Clone(), Added: false}, nil
	}

	if err := e.persist(ctx, hist); err != nil {
		return nil, err
	}

	return &TagOutput{Version: v.Clone(), Added: added}, nil
}
