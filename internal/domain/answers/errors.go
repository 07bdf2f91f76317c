package answers

import "errors"

var (
	// ErrQuestionNotFound indicates the question is not in the record's version.
	ErrQuestionNotFound = errors.New("question not found in answer record's version")
	// ErrEntryOutOfRange indicates an entry index outside the question's entries.
	ErrEntryOutOfRange = errors.New("entry index out of range")
	// ErrNoVersion indicates no catalog version could be resolved for the record.
	ErrNoVersion = errors.New("no catalog version available")
	// ErrSaveFailed indicates the platform rejected the field write.
	ErrSaveFailed = errors.New("saving answer record failed")
)
