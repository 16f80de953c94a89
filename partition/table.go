// Package partition implements the partition-scheme state machine:
// disambiguating MBR-only from protective-MBR+GPT images and materializing
// a unified partition list. Concrete schemes live in the mbr and gpt
// subpackages; this package only dispatches between them.
package partition

import (
	"fmt"

	"github.com/mcgov/purt/backend"
	"github.com/mcgov/purt/partition/gpt"
	"github.com/mcgov/purt/partition/mbr"
	"github.com/mcgov/purt/partition/part"
	"github.com/mcgov/purt/reader"
)

// Table is the uniform result of reading a disk's partition scheme.
type Table interface {
	Scheme() part.Scheme
	Partitions() []part.Partition
}

// Read reads the first sector of f and classifies the disk as MBR or GPT
// (spec.md §4.3's Start→MbrRead→Classified transition), then decodes the
// chosen scheme's partition list.
//
// Returns MagicMismatch if the MBR boot signature itself does not
// validate; that is fatal, since nothing downstream can be trusted.
func Read(f backend.File) (Table, error) {
	r := reader.New(f)
	rec, err := mbr.ReadRecord(r)
	if err != nil {
		return nil, err
	}
	if rec.IsProtectiveMBR() {
		t, err := gpt.Read(r, rec)
		if err != nil {
			return nil, fmt.Errorf("decoding GPT after protective MBR: %w", err)
		}
		return t, nil
	}
	return mbr.FromRecord(rec), nil
}
