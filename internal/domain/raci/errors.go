package raci

import "errors"

var (
	// ErrAssignmentNotFound indicates no assignment at the given key/index.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrUnknownDuty indicates a duty character outside R, A, C, I.
	ErrUnknownDuty = errors.New("unknown duty")
	// ErrSaveFailed indicates the platform rejected the field write.
	ErrSaveFailed = errors.New("saving assignments failed")
)
