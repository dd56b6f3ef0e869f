package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dkeller9/capver/internal/capsule"
	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/engine"
	"github.com/dkeller9/capver/internal/errors"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine *engine.Engine
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(e *engine.Engine, cfg *config.Config) *Handlers {
	return &Handlers{engine: e, cfg: cfg}
}

// Request types for each tool

// InitRequest represents the arguments for init.
type InitRequest struct {
	CapsuleID     string            `json:"capsule_id"`
	Files         map[string]string `json:"files"`
	Documentation string            `json:"documentation,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	Author        string            `json:"author,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// CommitRequest represents the arguments for commit.
type CommitRequest struct {
	CapsuleID     string            `json:"capsule_id"`
	Files         map[string]string `json:"files"`
	Documentation string            `json:"documentation,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	Parent        string            `json:"parent,omitempty"`
	Branch        string            `json:"branch,omitempty"`
	Author        string            `json:"author,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// ShowRequest represents the arguments for show.
type ShowRequest struct {
	CapsuleID string `json:"capsule_id"`
	VersionID string `json:"version_id,omitempty"`
}

// LogRequest represents the arguments for log.
type LogRequest struct {
	CapsuleID string `json:"capsule_id"`
	Branch    string `json:"branch,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// DiffRequest represents the arguments for diff.
type DiffRequest struct {
	CapsuleID string `json:"capsule_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// BranchRequest represents the arguments for branch.
type BranchRequest struct {
	CapsuleID string `json:"capsule_id"`
	Name      string `json:"name"`
	From      string `json:"from,omitempty"`
}

// BranchesRequest represents the arguments for branches.
type BranchesRequest struct {
	CapsuleID string `json:"capsule_id"`
}

// TagRequest represents the arguments for tag.
type TagRequest struct {
	CapsuleID string `json:"capsule_id"`
	VersionID string `json:"version_id"`
	Tag       string `json:"tag"`
	Message   string `json:"message,omitempty"`
}

// MergeRequest represents the arguments for merge.
type MergeRequest struct {
	CapsuleID string `json:"capsule_id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Author    string `json:"author,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Handler implementations

// HandleInit handles the init tool call.
func (h *Handlers) HandleInit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Init(ctx, engine.InitInput{
		CapsuleID: input.CapsuleID,
		Snapshot: &capsule.Snapshot{
			Files:         input.Files,
			Documentation: input.Documentation,
			Metadata:      input.Metadata,
		},
		Author:  input.Author,
		Message: input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCommit handles the commit tool call.
func (h *Handlers) HandleCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Commit(ctx, engine.CommitInput{
		CapsuleID: input.CapsuleID,
		Snapshot: &capsule.Snapshot{
			Files:         input.Files,
			Documentation: input.Documentation,
			Metadata:      input.Metadata,
		},
		Parent:  input.Parent,
		Branch:  input.Branch,
		Author:  input.Author,
		Message: input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.GetVersion(ctx, input.CapsuleID, input.VersionID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLog handles the log tool call.
func (h *Handlers) HandleLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LogRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.GetHistory(ctx, engine.HistoryInput{
		CapsuleID: input.CapsuleID,
		Branch:    input.Branch,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"versions": result})
}

// HandleDiff handles the diff tool call.
func (h *Handlers) HandleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiffRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.From == "" || input.To == "" {
		return errorResult(errors.NewInvalidRequest("from and to version ids are required")), nil
	}

	result, err := h.engine.GetDiff(ctx, input.CapsuleID, input.From, input.To)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"changes": result})
}

// HandleBranch handles the branch tool call.
func (h *Handlers) HandleBranch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BranchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.CreateBranch(ctx, engine.BranchInput{
		CapsuleID: input.CapsuleID,
		Name:      input.Name,
		From:      input.From,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBranches handles the branches tool call.
func (h *Handlers) HandleBranches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BranchesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.ListBranches(ctx, input.CapsuleID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"branches": result})
}

// HandleTag handles the tag tool call.
func (h *Handlers) HandleTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TagRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.TagVersion(ctx, engine.TagInput{
		CapsuleID: input.CapsuleID,
		VersionID: input.VersionID,
		Tag:       input.Tag,
		Message:   input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMerge handles the merge tool call.
func (h *Handlers) HandleMerge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MergeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Merge(ctx, engine.MergeInput{
		CapsuleID: input.CapsuleID,
		Source:    input.Source,
		Target:    input.Target,
		Author:    input.Author,
		Message:   input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCapsules handles the capsules tool call.
func (h *Handlers) HandleCapsules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.engine.ListCapsules(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"capsules": result})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vcErr, ok := err.(*errors.VCError); ok {
		errorObj := map[string]any{
			"code":    vcErr.Code,
			"message": vcErr.Message,
			"status":  vcErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if vcErr.Code != errors.ErrInternal && vcErr.Details != nil {
			errorObj["details"] = vcErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
