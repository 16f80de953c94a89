//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package disk

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mcgov/purt/backend"
)

// fder is satisfied by *os.File; block-device size detection only applies
// when the backing file is a real file descriptor, never an in-memory
// fixture.
type fder interface {
	Fd() uintptr
}

// deviceSize returns the true byte size of a block device via the
// BLKGETSIZE64 ioctl, since os.File.Stat().Size() reports zero for block
// devices on Linux. Returns backend.ErrNotSuitable for anything that is
// not a block device.
func deviceSize(f backend.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode()&os.ModeDevice == 0 {
		return 0, backend.ErrNotSuitable
	}
	fd, ok := f.(fder)
	if !ok {
		return 0, backend.ErrNotSuitable
	}

	var size int64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("BLKGETSIZE64 on fd %d: %w", fd.Fd(), errno)
	}
	return size, nil
}
