package mbr

import "fmt"

// MagicMismatchError reports an invalid MBR boot signature (expected
// 0x55 0xAA at bytes 510-511). Fatal: the image is rejected.
type MagicMismatchError struct {
	gotLow, gotHigh byte
}

func NewMagicMismatchError(gotLow, gotHigh byte) *MagicMismatchError {
	return &MagicMismatchError{gotLow: gotLow, gotHigh: gotHigh}
}

func (e *MagicMismatchError) Error() string {
	return fmt.Sprintf("invalid MBR boot signature: got 0x%02x 0x%02x, want 0x55 0xaa", e.gotLow, e.gotHigh)
}
