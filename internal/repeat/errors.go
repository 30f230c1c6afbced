package repeat

import "errors"

var (
	// ErrIntegrity marks a violated invariant in the detection table or the
	// clustering state. Runs abort immediately on these; applying a partial
	// suppression would silently understate the result.
	ErrIntegrity = errors.New("integrity violation")

	// ErrConfig marks an invalid configuration detected before any work is
	// attempted.
	ErrConfig = errors.New("invalid configuration")
)
