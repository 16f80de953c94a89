//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package disk

import "github.com/mcgov/purt/backend"

// deviceSize is unsupported on platforms without a BLKGETSIZE64-equivalent
// ioctl; image files (where os.Stat's size suffices) are unaffected.
func deviceSize(f backend.File) (int64, error) {
	return 0, backend.ErrNotSuitable
}
