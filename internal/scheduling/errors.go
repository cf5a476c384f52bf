package scheduling

import "errors"

// Failure kinds returned by the engine. Every error the engine returns wraps
// exactly one of these sentinels; callers classify with errors.Is and can
// surface err.Error() to the client as-is.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid request")
	ErrConflict  = errors.New("time slot is occupied")
)
