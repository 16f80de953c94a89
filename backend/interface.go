// Package backend defines the minimal file abstraction the rest of this
// module reads through, so the same decoders work against an *os.File, a
// block device, or an in-memory fixture in tests.
package backend

import (
	"errors"
	"io"
	"io/fs"
)

// ErrNotSuitable is returned when the backing storage cannot support an
// operation, e.g. asking for the underlying *os.File of something that
// isn't one.
var ErrNotSuitable = errors.New("backing file is not suitable")

// File is the read surface every decoder in this module is built on.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
	io.Closer
}
