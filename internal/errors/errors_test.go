package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestVCError_Error(t *testing.T) {
	err := NewNotFound("version", "abc123")
	if got := err.Error(); got != "NOT_FOUND: version not found: abc123" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *VCError
		code   ErrorCode
		status int
	}{
		{"invalid request", NewInvalidRequest("bad input"), ErrInvalidRequest, 400},
		{"not found", NewNotFound("capsule", "cap1"), ErrNotFound, 404},
		{"already exists", NewAlreadyExists("branch", "main"), ErrAlreadyExists, 409},
		{"ancestor not found", NewAncestorNotFound("v1", "v2"), ErrAncestorNotFound, 409},
		{"no changes", NewNoChanges("cap1"), ErrNoChanges, 200},
		{"corrupt history", NewCorruptHistory("cap1", nil), ErrCorruptHistory, 500},
		{"internal", NewInternal(stderrors.New("boom")), ErrInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.status)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestNewAncestorNotFound_Details(t *testing.T) {
	err := NewAncestorNotFound("src", "tgt")
	if err.Details["source_version"] != "src" || err.Details["target_version"] != "tgt" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewCorruptHistory_WrapsCause(t *testing.T) {
	err := NewCorruptHistory("cap1", stderrors.New("unexpected EOF"))
	if !strings.Contains(err.Message, "unexpected EOF") {
		t.Errorf("Message = %q, want cause included", err.Message)
	}
	if err.Details["capsule_id"] != "cap1" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestIs(t *testing.T) {
	if !Is(NewNotFound("version", "x"), ErrNotFound) {
		t.Error("Is did not match a VCError by code")
	}
	if Is(NewNotFound("version", "x"), ErrInternal) {
		t.Error("Is matched the wrong code")
	}
	if Is(stderrors.New("plain"), ErrNotFound) {
		t.Error("Is matched a non-VCError")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is matched nil")
	}
}
