// Package testimg provides an in-memory backend.File for synthesizing
// fixture images in tests, without checking in binary .img files.
package testimg

import (
	"errors"
	"io"
	"io/fs"
	"time"
)

// Image is a backend.File backed entirely by an in-memory byte slice.
type Image struct {
	data   []byte
	offset int64
	closed bool
}

// New wraps data for positioned reads. data is not copied.
func New(data []byte) *Image {
	return &Image{data: data}
}

func (i *Image) Read(p []byte) (int, error) {
	if i.closed {
		return 0, errors.New("read on closed image")
	}
	if i.offset >= int64(len(i.data)) {
		return 0, io.EOF
	}
	n := copy(p, i.data[i.offset:])
	i.offset += int64(n)
	return n, nil
}

func (i *Image) ReadAt(p []byte, off int64) (int, error) {
	if i.closed {
		return 0, errors.New("read on closed image")
	}
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(i.data)) {
		return 0, io.EOF
	}
	n := copy(p, i.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (i *Image) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = i.offset + offset
	case io.SeekEnd:
		abs = int64(len(i.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	i.offset = abs
	return abs, nil
}

func (i *Image) Close() error {
	i.closed = true
	return nil
}

func (i *Image) Stat() (fs.FileInfo, error) {
	return imageInfo{size: int64(len(i.data))}, nil
}

type imageInfo struct {
	size int64
}

func (imageInfo) Name() string       { return "testimg" }
func (fi imageInfo) Size() int64     { return fi.size }
func (imageInfo) Mode() fs.FileMode  { return 0 }
func (imageInfo) ModTime() time.Time { return time.Time{} }
func (imageInfo) IsDir() bool        { return false }
func (imageInfo) Sys() any           { return nil }
