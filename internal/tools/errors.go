package tools

import "errors"

// Tool registry errors.
var (
	// ErrToolNotFound is returned by Resolve for names with no registration.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolIDUnknown is returned when registering the placeholder id.
	ErrToolIDUnknown = errors.New("tool id cannot be Unknown")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)
