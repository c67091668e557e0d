package statement

import "errors"

var (
	// ErrNotFound indicates no record exists for the requested statement id.
	ErrNotFound = errors.New("statement not found")

	// ErrVersionConflict indicates the guarded update found a state_version
	// other than the expected one; another writer got there first.
	ErrVersionConflict = errors.New("statement version conflict")

	// ErrDuplicateID indicates a record with the same statement id already exists.
	ErrDuplicateID = errors.New("statement id already exists")

	// ErrDuplicateContentHash indicates a record with the same content hash
	// already exists.
	ErrDuplicateContentHash = errors.New("statement content hash already exists")
)
