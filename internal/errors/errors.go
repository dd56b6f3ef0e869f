package errors

import "fmt"

// ErrorCode represents a capver error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrAlreadyExists    ErrorCode = "ALREADY_EXISTS"     // 409
	ErrAncestorNotFound ErrorCode = "ANCESTOR_NOT_FOUND" // 409
	ErrNoChanges        ErrorCode = "NO_CHANGES"         // 200 (sentinel, not a failure)
	ErrCorruptHistory   ErrorCode = "CORRUPT_HISTORY"    // 500
	ErrInternal         ErrorCode = "INTERNAL"           // 500
)

// VCError represents a structured error with code, status, and details.
type VCError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VCError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VCError {
	return &VCError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing capsule, version, or branch.
func NewNotFound(kind, identifier string) *VCError {
	return &VCError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewAlreadyExists creates a 409 error for duplicate histories or branch names.
func NewAlreadyExists(kind, identifier string) *VCError {
	return &VCError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("%s already exists: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewAncestorNotFound creates a 409 error for merges between versions
// that share no common root. Fatal for that merge; never retried.
func NewAncestorNotFound(source, target string) *VCError {
	return &VCError{
		Code:    ErrAncestorNotFound,
		Status:  409,
		Message: fmt.Sprintf("no common ancestor between %s and %s", source, target),
		Details: map[string]any{"source_version": source, "target_version": target},
	}
}

// NewNoChanges creates the NO_CHANGES sentinel. Callers that prefer a flagged
// no-op result over an error should check CommitOutput.Created instead.
func NewNoChanges(capsuleID string) *VCError {
	return &VCError{
		Code:    ErrNoChanges,
		Status:  200,
		Message: fmt.Sprintf("snapshot identical to parent for capsule %s", capsuleID),
		Details: map[string]any{"capsule_id": capsuleID},
	}
}

// NewCorruptHistory creates a 500 error for a persisted history document
// that fails to parse or validate.
func NewCorruptHistory(capsuleID string, err error) *VCError {
	msg := fmt.Sprintf("history for capsule %s is corrupt", capsuleID)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &VCError{
		Code:    ErrCorruptHistory,
		Status:  500,
		Message: msg,
		Details: map[string]any{"capsule_id": capsuleID},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VCError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VCError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VCError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VCError); ok {
		return vErr.Code == code
	}
	return false
}
