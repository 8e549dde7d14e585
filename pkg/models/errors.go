package models

import "errors"

// Store errors. Callers classify failures with errors.Is.
var (
	// ErrNotFound indicates a document or person does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName indicates a name that normalizes to nothing.
	ErrInvalidName = errors.New("invalid name")

	// ErrCorruption indicates a stored record that fails to parse.
	ErrCorruption = errors.New("corrupt record")

	// ErrIO indicates a disk read or write failure.
	ErrIO = errors.New("storage I/O failure")

	// ErrExternal indicates a collaborator (summarizer, indexer) failed.
	ErrExternal = errors.New("external collaborator failure")

	// ErrLocked indicates the store is held by another process.
	ErrLocked = errors.New("store is locked by another process")
)
