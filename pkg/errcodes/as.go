package errcodes

import "github.com/pkg/errors"

// As unwraps err down to an *Error, if there is one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
