package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptPath is returned when a path does not match the tree structure.
	ErrCorruptPath = errors.New("path does not match tree structure")

	// ErrIDSpaceExhausted is returned when a split needs more node ids than configured.
	ErrIDSpaceExhausted = errors.New("node id space exhausted")

	// ErrNoCandidates is returned when no genome could be compared with the new one.
	ErrNoCandidates = errors.New("no candidates to compare")

	// ErrNarrowingDiverged is returned when the narrowing search exceeds its iteration cap.
	ErrNarrowingDiverged = errors.New("narrowing search did not converge")

	// ErrAlreadyIndexed is returned when a genome record is inserted twice.
	ErrAlreadyIndexed = errors.New("genome already indexed")
)

// PathError describes where a path stopped matching the tree.
//
// It wraps ErrCorruptPath, so errors.Is(err, ErrCorruptPath) holds.
type PathError struct {
	Path   []uint32
	Depth  int // index into Path of the offending element
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %v at depth %d: %s", e.Path, e.Depth, e.Reason)
}

func (e *PathError) Unwrap() error { return ErrCorruptPath }

func pathError(path []uint32, depth int, format string, args ...any) *PathError {
	return &PathError{Path: path, Depth: depth, Reason: fmt.Sprintf(format, args...)}
}
