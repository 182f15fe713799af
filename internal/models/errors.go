package models

import (
	"errors"
)

var (
	// ErrNotFound is returned when a job id does not resolve to a record.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidState is returned when an operation is not valid for the
	// job's current status (e.g. Submit on a non-pending job).
	ErrInvalidState = errors.New("operation not valid for current job state")
	// ErrResourceBusy is returned when the GPU slot cannot be acquired
	// within the configured wait.
	ErrResourceBusy = errors.New("gpu slot unavailable")
)
