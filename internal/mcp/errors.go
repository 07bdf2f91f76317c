package mcp

import (
	"errors"
	"fmt"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/domain/scoring"
	"github.com/tallgren/gatecheck/internal/host"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, catalog.ErrVersionNotFound):
		return &APIError{Code: "VERSION_NOT_FOUND", Message: "catalog version not found", RecoveryHint: "Call list_versions to see available versions"}
	case errors.Is(err, catalog.ErrDeliverableNotFound):
		return &APIError{Code: "DELIVERABLE_NOT_FOUND", Message: "deliverable not found", RecoveryHint: "Call list_deliverables to see configured deliverables"}
	case errors.Is(err, catalog.ErrRoleNotFound):
		return &APIError{Code: "ROLE_NOT_FOUND", Message: "role not found", RecoveryHint: "Call list_roles to see configured roles"}
	case errors.Is(err, catalog.ErrDuplicateQuestion):
		return &APIError{Code: "DUPLICATE_QUESTION", Message: "duplicate question id in version", RecoveryHint: "Give every question a unique id"}
	case errors.Is(err, scoring.ErrInvalidWeight):
		return &APIError{Code: "INVALID_WEIGHT", Message: "entry weight must be a positive power of two", RecoveryHint: "Use 1, 2, 4, 8, ... as entry weights"}
	case errors.Is(err, scoring.ErrOverlappingWeights):
		return &APIError{Code: "OVERLAPPING_WEIGHTS", Message: "entry weights within a question must be disjoint", RecoveryHint: "No two entries under one question may share a weight"}
	case errors.Is(err, catalog.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid catalog input", RecoveryHint: "Check the request fields"}
	case errors.Is(err, answers.ErrQuestionNotFound):
		return &APIError{Code: "QUESTION_NOT_FOUND", Message: "question not found in the record's version", RecoveryHint: "Call get_answers to see the questions in effect"}
	case errors.Is(err, answers.ErrEntryOutOfRange):
		return &APIError{Code: "ENTRY_OUT_OF_RANGE", Message: "entry index out of range", RecoveryHint: "Entry indexes follow the question's entry list"}
	case errors.Is(err, answers.ErrNoVersion):
		return &APIError{Code: "NO_VERSION", Message: "no catalog version available", RecoveryHint: "Save and select a version first"}
	case errors.Is(err, raci.ErrAssignmentNotFound):
		return &APIError{Code: "ASSIGNMENT_NOT_FOUND", Message: "assignment not found", RecoveryHint: "Call get_assignments to see current assignments"}
	case errors.Is(err, raci.ErrUnknownDuty):
		return &APIError{Code: "UNKNOWN_DUTY", Message: "unknown duty letter", RecoveryHint: "Use one of R, A, C, I"}
	case errors.Is(err, answers.ErrSaveFailed), errors.Is(err, raci.ErrSaveFailed), errors.Is(err, host.ErrSaveRejected):
		return &APIError{Code: "SAVE_FAILED", Message: "work item rejected the save", RecoveryHint: "Retry; if it persists the item may be locked"}
	case errors.Is(err, host.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "work item not found", RecoveryHint: "Call list_work_items to see known items"}
	case errors.Is(err, host.ErrStoreUnavailable):
		return &APIError{Code: "STORE_UNAVAILABLE", Message: "configuration store unavailable", RecoveryHint: "Retry later"}
	default:
		return nil
	}
}
