package reader

import "fmt"

// IoError wraps a failure to open, seek, or read the backing image.
// Per the error taxonomy, this is always fatal to the enclosing container.
type IoError struct {
	op  string
	err error
}

func NewIoError(op string, err error) *IoError {
	return &IoError{op: op, err: err}
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.op, e.err)
}

func (e *IoError) Unwrap() error {
	return e.err
}

// OutOfRangeError is returned when a requested range runs past the end of
// the image. Fatal to the enclosing container.
type OutOfRangeError struct {
	offset, length, imageSize int64
}

func NewOutOfRangeError(offset int64, length int, imageSize int64) *OutOfRangeError {
	return &OutOfRangeError{offset: offset, length: int64(length), imageSize: imageSize}
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("range [%d,%d) is out of bounds for image of size %d", e.offset, e.offset+e.length, e.imageSize)
}
