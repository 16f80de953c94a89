// Package reader implements the byte-reader layer: positioned reads
// against a backend.File, returning raw bytes that the decoder packages
// interpret as fixed-layout, little-endian records.
//
// No endian autodetection happens here: every multi-byte field in every
// on-disk record this module decodes is little-endian, with the sole
// exception of the GPT "EFI PART" signature, which is compared as a raw
// ASCII byte sequence by its own decoder rather than through this package.
package reader

import (
	"fmt"

	"github.com/mcgov/purt/backend"
)

// Reader performs positioned reads against a single backend.File. It holds
// no cursor of its own; every read is independent and addressed by an
// absolute byte offset, so callers may interleave reads freely.
type Reader struct {
	f backend.File
}

// New wraps f for positioned reads.
func New(f backend.File) *Reader {
	return &Reader{f: f}
}

// Size returns the total length of the backing file.
func (r *Reader) Size() (int64, error) {
	info, err := r.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat backing file: %w", err)
	}
	return info.Size(), nil
}

// ReadBytes reads exactly length bytes starting at offset. It returns
// IoError wrapping the underlying cause on a short read or seek failure,
// and OutOfRangeError if the requested range runs past the end of file.
func (r *Reader) ReadBytes(offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, NewOutOfRangeError(offset, length, 0)
	}
	size, err := r.Size()
	if err != nil {
		return nil, NewIoError("stat", err)
	}
	if offset+int64(length) > size {
		return nil, NewOutOfRangeError(offset, length, size)
	}
	buf := make([]byte, length)
	n, err := r.f.ReadAt(buf, offset)
	if err != nil {
		return nil, NewIoError(fmt.Sprintf("read %d bytes at offset %d", length, offset), err)
	}
	if n != length {
		return nil, NewIoError(fmt.Sprintf("short read at offset %d", offset), fmt.Errorf("read %d of %d bytes", n, length))
	}
	return buf, nil
}
