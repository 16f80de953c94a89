// Package file provides a backend.File backed by an on-disk path, whether
// that path names a regular image file or a block device.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mcgov/purt/backend"
)

// OpenFromPath opens pathName read-only for forensic inspection. The path
// must already exist; this module never creates images.
func OpenFromPath(pathName string) (backend.File, error) {
	if pathName == "" {
		return nil, errors.New("must pass a path to an image or device")
	}
	if _, err := os.Stat(pathName); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("provided image/device %s does not exist", pathName)
	}
	f, err := os.OpenFile(pathName, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", pathName, err)
	}
	return f, nil
}
