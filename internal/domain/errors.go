package domain

import "errors"

var (
	// ErrTaskNotFound is returned when a task id resolves to nothing.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskConflict is returned when a status transition is not
	// allowed from the task's current state.
	ErrTaskConflict = errors.New("task status conflict")

	// ErrUnsupportedPlatform is returned for sync requests naming a
	// platform without a source.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrSyncRunning is returned when a sync is requested while one is
	// already in progress.
	ErrSyncRunning = errors.New("sync already running")
)
