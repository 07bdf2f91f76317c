package catalog

import "errors"

var (
	// ErrVersionNotFound indicates no version matches the given reference.
	ErrVersionNotFound = errors.New("catalog version not found")
	// ErrQuestionNotFound indicates a question id missing from a version.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDeliverableNotFound indicates an unknown deliverable id.
	ErrDeliverableNotFound = errors.New("deliverable not found")
	// ErrRoleNotFound indicates an unknown role id.
	ErrRoleNotFound = errors.New("role not found")
	// ErrInvalidInput indicates invalid catalog input.
	ErrInvalidInput = errors.New("invalid catalog input")
	// ErrDuplicateQuestion indicates a repeated question id within a version.
	ErrDuplicateQuestion = errors.New("duplicate question id")
)
