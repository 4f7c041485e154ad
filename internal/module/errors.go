package module

import "github.com/pkg/errors"

// Validity errors. They are returned wrapped with context; test with errors.Is.
var (
	// ErrScopeViolation indicates children scopes that break the disjointness,
	// equality or no-duplicate rule of their parent's composition.
	ErrScopeViolation = errors.New("scope violation")

	// ErrSupportViolation indicates an observed value outside a leaf's domain.
	ErrSupportViolation = errors.New("support violation")

	// ErrIndexOutOfBounds indicates an instance id beyond the batch or an
	// input/output id beyond a module's outputs.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrAmbiguousOutput indicates a request for more than one output of a
	// module that can only sample one output per row.
	ErrAmbiguousOutput = errors.New("ambiguous output request")

	// ErrMissingParameter indicates a conditional leaf without any parameter source.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrBackendMismatch indicates a module graph mixing backends.
	ErrBackendMismatch = errors.New("backend mismatch")

	// ErrInvalidParameter indicates parameters outside their valid range.
	ErrInvalidParameter = errors.New("invalid parameter")
)
