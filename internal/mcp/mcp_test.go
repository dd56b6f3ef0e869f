package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/engine"
	"github.com/dkeller9/capver/internal/store"
)

// testSetup creates an engine over a temporary file store.
func testSetup(t *testing.T) *Handlers {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	e, err := engine.New(st, cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return NewHandlers(e, cfg)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultJSON unmarshals a tool result's text content.
func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	return out
}

// errorCode extracts the error code from an error result.
func errorCode(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if !res.IsError {
		t.Fatal("result is not an error")
	}
	payload := resultJSON(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload = %v", payload)
	}
	code, _ := errObj["code"].(string)
	return code
}

func seedCapsule(t *testing.T, h *Handlers) string {
	t.Helper()
	res, err := h.HandleInit(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"main.py": "print('v1')\n"},
		"message":    "initial",
	}))
	if err != nil {
		t.Fatalf("HandleInit returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleInit failed: %v", resultJSON(t, res))
	}
	out := resultJSON(t, res)
	v, ok := out["version"].(map[string]any)
	if !ok {
		t.Fatalf("init result missing version: %v", out)
	}
	id, _ := v["version_id"].(string)
	if id == "" {
		t.Fatal("init result has empty version_id")
	}
	return id
}

func TestHandleInit(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleInit(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"a.py": "1"},
		"author":     "generator",
	}))
	if err != nil {
		t.Fatalf("HandleInit returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleInit failed: %v", resultJSON(t, res))
	}

	out := resultJSON(t, res)
	if out["branch"] != "main" {
		t.Errorf("branch = %v, want main", out["branch"])
	}
	v := out["version"].(map[string]any)
	if v["author"] != "generator" {
		t.Errorf("author = %v", v["author"])
	}
}

func TestHandleInit_Duplicate(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleInit(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"a.py": "1"},
	}))
	if err != nil {
		t.Fatalf("HandleInit returned error: %v", err)
	}
	if code := errorCode(t, res); code != "ALREADY_EXISTS" {
		t.Errorf("code = %s, want ALREADY_EXISTS", code)
	}
}

func TestHandleCommit(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleCommit(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"main.py": "print('v2')\n"},
		"message":    "second",
	}))
	if err != nil {
		t.Fatalf("HandleCommit returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleCommit failed: %v", resultJSON(t, res))
	}

	out := resultJSON(t, res)
	if out["created"] != true {
		t.Errorf("created = %v, want true", out["created"])
	}
}

func TestHandleCommit_NoChanges(t *testing.T) {
	h := testSetup(t)
	initID := seedCapsule(t, h)

	res, err := h.HandleCommit(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"main.py": "print('v1')\n"},
	}))
	if err != nil {
		t.Fatalf("HandleCommit returned error: %v", err)
	}
	out := resultJSON(t, res)
	if out["created"] != false {
		t.Errorf("created = %v, want false", out["created"])
	}
	v := out["version"].(map[string]any)
	if v["version_id"] != initID {
		t.Errorf("version_id = %v, want the parent %s", v["version_id"], initID)
	}
}

func TestHandleShow_NotFound(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleShow(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"version_id": "ghost",
	}))
	if err != nil {
		t.Fatalf("HandleShow returned error: %v", err)
	}
	if code := errorCode(t, res); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestHandleLog(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleLog(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"branch":     "main",
	}))
	if err != nil {
		t.Fatalf("HandleLog returned error: %v", err)
	}
	out := resultJSON(t, res)
	versions, ok := out["versions"].([]any)
	if !ok || len(versions) != 1 {
		t.Errorf("versions = %v, want one entry", out["versions"])
	}
}

func TestHandleBranchAndMerge(t *testing.T) {
	h := testSetup(t)
	ctx := context.Background()
	initID := seedCapsule(t, h)

	res, err := h.HandleBranch(ctx, makeRequest(map[string]any{
		"capsule_id": "cap1",
		"name":       "feature",
	}))
	if err != nil {
		t.Fatalf("HandleBranch returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleBranch failed: %v", resultJSON(t, res))
	}

	featRes, err := h.HandleCommit(ctx, makeRequest(map[string]any{
		"capsule_id": "cap1",
		"files":      map[string]any{"main.py": "print('feature')\n"},
		"parent":     initID,
		"branch":     "feature",
	}))
	if err != nil {
		t.Fatalf("HandleCommit returned error: %v", err)
	}
	featID := resultJSON(t, featRes)["version"].(map[string]any)["version_id"].(string)

	mergeRes, err := h.HandleMerge(ctx, makeRequest(map[string]any{
		"capsule_id": "cap1",
		"source":     featID,
		"target":     initID,
	}))
	if err != nil {
		t.Fatalf("HandleMerge returned error: %v", err)
	}
	if mergeRes.IsError {
		t.Fatalf("HandleMerge failed: %v", resultJSON(t, mergeRes))
	}
	out := resultJSON(t, mergeRes)
	if out["common_ancestor"] != initID {
		t.Errorf("common_ancestor = %v, want %s", out["common_ancestor"], initID)
	}
	if out["conflicts"] != float64(0) {
		t.Errorf("conflicts = %v, want 0", out["conflicts"])
	}
}

func TestHandleTag(t *testing.T) {
	h := testSetup(t)
	initID := seedCapsule(t, h)

	res, err := h.HandleTag(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
		"version_id": initID,
		"tag":        "v1.0",
	}))
	if err != nil {
		t.Fatalf("HandleTag returned error: %v", err)
	}
	out := resultJSON(t, res)
	if out["added"] != true {
		t.Errorf("added = %v, want true", out["added"])
	}
}

func TestHandleDiff_MissingArgs(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleDiff(context.Background(), makeRequest(map[string]any{
		"capsule_id": "cap1",
	}))
	if err != nil {
		t.Fatalf("HandleDiff returned error: %v", err)
	}
	if code := errorCode(t, res); code != "INVALID_REQUEST" {
		t.Errorf("code = %s, want INVALID_REQUEST", code)
	}
}

func TestHandleCapsules(t *testing.T) {
	h := testSetup(t)
	seedCapsule(t, h)

	res, err := h.HandleCapsules(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleCapsules returned error: %v", err)
	}
	out := resultJSON(t, res)
	capsules, ok := out["capsules"].([]any)
	if !ok || len(capsules) != 1 || capsules[0] != "cap1" {
		t.Errorf("capsules = %v, want [cap1]", out["capsules"])
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"version_merge", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v, want [bogus_tool]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("len(names) = %d, want %d", len(names), len(toolRegistry))
	}
	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"version_init", "version_commit", "version_merge", "version_diff"} {
		if !seen[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}
