package database

import "errors"

// Sentinel errors returned by folder and file operations. Callers classify
// with errors.Is; messages wrapped around them carry the specifics.
var (
	// ErrValidation marks malformed input, rejected before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a referenced folder or file that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNameConflict marks a duplicate sibling folder name.
	ErrNameConflict = errors.New("name already exists")

	// ErrFolderNotEmpty marks a non-cascading delete of a folder that
	// still has children or files.
	ErrFolderNotEmpty = errors.New("folder not empty")

	// ErrCycle marks a folder move that would create a cycle.
	ErrCycle = errors.New("move would create a cycle")
)
