package attachment

import "errors"

var (
	// ErrUnsupportedType is returned for uploads that are neither an image nor
	// a PDF.
	ErrUnsupportedType = errors.New("attachment must be an image or a PDF")
	// ErrNotFound is returned when a stored attachment reference does not
	// resolve to a file.
	ErrNotFound = errors.New("attachment not found")
)

// Outcome of the client-side receipt picker. Anything other than a selection
// is a graceful decline: the expense can still be logged without a receipt.
type Outcome string

const (
	OutcomeSelected         Outcome = "selected"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomePermissionDenied Outcome = "permission_denied"
)
