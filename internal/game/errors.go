package game

import (
	"errors"
	"fmt"
)

// RejectionError reports a move that was refused by validation: wrong
// phase, wrong seat, out-of-range prediction, bad card index. The state
// is untouched and the actor may retry with a corrected action.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Reject builds a RejectionError from a format string
func Reject(format string, args ...any) error {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a validation rejection rather than
// a structural failure.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}
