package ext4

import "fmt"

// MagicMismatchError reports a superblock whose magic does not match
// 0xEF53. Fatal for the enclosing partition: the ext4 decode is abandoned.
type MagicMismatchError struct {
	got uint16
}

func NewMagicMismatchError(got uint16) *MagicMismatchError {
	return &MagicMismatchError{got: got}
}

func (e *MagicMismatchError) Error() string {
	return fmt.Sprintf("invalid ext4 superblock magic: got 0x%04x, want 0x%04x", e.got, superblockMagic)
}

// InvariantViolationError reports a structural constraint that does not
// hold (e.g. an htree Root field outside its allowed range). Policy: warn
// and skip the local structure, per spec.md §7.
type InvariantViolationError struct {
	what string
}

func NewInvariantViolationError(what string) *InvariantViolationError {
	return &InvariantViolationError{what: what}
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.what)
}

// UnsupportedFeatureError reports a recognized-but-unhandled feature, such
// as an htree hash version this decoder does not implement lookup for.
// Policy: warn and skip the local structure.
type UnsupportedFeatureError struct {
	what string
}

func NewUnsupportedFeatureError(what string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{what: what}
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.what)
}
