package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyAssociated is returned when identical bytes are uploaded twice to one audit.
	ErrAlreadyAssociated = errors.New("file has already been uploaded for this audit")
	// ErrNothingToProcess rejects triggers that would schedule no work.
	ErrNothingToProcess = errors.New("nothing to process")
	// ErrEmptyEvidence rejects company analysis over an empty evidence buffer.
	ErrEmptyEvidence = errors.New("no raw evidence to analyze")
	// ErrConflict rejects a state change that the current state does not allow.
	ErrConflict = errors.New("conflict")
)

// Permanent reports whether err stems from a precondition that retrying the
// same work cannot change.
func Permanent(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrNotFound,
		ErrInvalidArgument,
		ErrAlreadyAssociated,
		ErrNothingToProcess,
		ErrEmptyEvidence,
		ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
