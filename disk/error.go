package disk

import "fmt"

// OpenError wraps a failure to open the backing image path itself, before
// any decoding is attempted. Always fatal.
type OpenError struct {
	path string
	err  error
}

func NewOpenError(path string, err error) *OpenError {
	return &OpenError{path: path, err: err}
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %s: %v", e.path, e.err)
}

func (e *OpenError) Unwrap() error {
	return e.err
}
