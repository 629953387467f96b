package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist (or belongs to another company).
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation. Handlers should map this to HTTP 400.
// Sequencing failures wrap this via SequenceError.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned when the caller is authenticated but not allowed
// to perform the operation (not assigned to the vehicle, not the owning
// driver, or lacking the admin role). Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write loses a commit-time race, e.g. the
// unique (vehicle_id, final_odometer) constraint rejects a concurrent
// insert. Handlers should map this to HTTP 409; the request is safe to
// retry with fresh data.
var ErrConflict = errors.New("conflict")
