package dispatch

import "github.com/pkg/errors"

var (
	// ErrNotImplemented indicates that no implementation is registered for a
	// module kind, operation and backend. There is no fallback.
	ErrNotImplemented = errors.New("operation not implemented")

	// ErrDuplicateRegistration indicates a second implementation for the same
	// (kind, operation, backend) triple.
	ErrDuplicateRegistration = errors.New("duplicate registration")
)
