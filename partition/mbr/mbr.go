// Package mbr decodes the classical Master Boot Record partition scheme,
// and also the protective MBR that precedes a GPT header.
package mbr

import (
	"encoding/binary"
	"fmt"

	"github.com/mcgov/purt/partition/part"
	"github.com/mcgov/purt/reader"
)

const (
	// Size is the fixed length of the MBR sector.
	Size = 512

	entryTableOffset = 446
	entrySize        = 16
	numEntries       = 4
	bootSigOffset    = 510

	bootSigLow  = 0x55
	bootSigHigh = 0xAA

	// TypeProtectiveGPT is the MBR partition type byte that marks a disk
	// as GPT-protected: the presence of this type in any of the four
	// entries means the real partition table lives in the GPT header.
	TypeProtectiveGPT byte = 0xEE
)

// type byte -> Kind mapping, per spec.md §4.3.
var typeToKind = map[byte]part.Kind{
	0x00: part.KindUnused,
	0x82: part.KindSwap,
	0x83: part.KindExt4, // ext-family candidate; stays KindExt4 even if its superblock magic doesn't match (disk.Open only logs a warning)
	0x8E: part.KindLinuxLVM,
	0xEF: part.KindEFISystem,
}

// Entry is one 16-byte MBR partition table entry.
type Entry struct {
	Bootable      bool
	StartHead     byte
	StartSector   byte
	StartCylinder byte
	Type          byte
	EndHead       byte
	EndSector     byte
	EndCylinder   byte
	StartLBA      uint32
	SizeSectors   uint32
}

func entryFromBytes(b []byte) (Entry, error) {
	if len(b) != entrySize {
		return Entry{}, fmt.Errorf("mbr entry data was %d bytes instead of expected %d", len(b), entrySize)
	}
	return Entry{
		Bootable:      b[0] == 0x80,
		StartHead:     b[1],
		StartSector:   b[2] & 0x3f,
		StartCylinder: b[3],
		Type:          b[4],
		EndHead:       b[5],
		EndSector:     b[6] & 0x3f,
		EndCylinder:   b[7],
		StartLBA:      binary.LittleEndian.Uint32(b[8:12]),
		SizeSectors:   binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// Record is the decoded 512-byte MBR sector, before any scheme decision
// has been made about whether it is a classical MBR or a protective MBR
// preceding a GPT.
type Record struct {
	DiskSignature uint32
	Entries       [numEntries]Entry
}

// IsProtectiveMBR reports whether any entry carries the GPT-protective
// type 0xEE, per spec.md §4.3's detection rule.
func (r *Record) IsProtectiveMBR() bool {
	for _, e := range r.Entries {
		if e.Type == TypeProtectiveGPT {
			return true
		}
	}
	return false
}

func recordFromBytes(b []byte) (*Record, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("data for mbr was %d bytes instead of expected %d", len(b), Size)
	}
	if b[bootSigOffset] != bootSigLow || b[bootSigOffset+1] != bootSigHigh {
		return nil, NewMagicMismatchError(b[bootSigOffset], b[bootSigOffset+1])
	}
	rec := &Record{
		DiskSignature: binary.LittleEndian.Uint32(b[440:444]),
	}
	for i := 0; i < numEntries; i++ {
		start := entryTableOffset + i*entrySize
		e, err := entryFromBytes(b[start : start+entrySize])
		if err != nil {
			return nil, err
		}
		rec.Entries[i] = e
	}
	return rec, nil
}

// ReadRecord reads and decodes the 512-byte sector at offset 0.
func ReadRecord(r *reader.Reader) (*Record, error) {
	b, err := r.ReadBytes(0, Size)
	if err != nil {
		return nil, err
	}
	return recordFromBytes(b)
}

// Table is the partition.Table implementation for a classical MBR disk.
type Table struct {
	DiskSignature uint32
	PartitionList []part.Partition
}

// Scheme identifies this as the MBR scheme.
func (t *Table) Scheme() part.Scheme { return part.SchemeMBR }

// Partitions returns the decoded partition list.
func (t *Table) Partitions() []part.Partition { return t.PartitionList }

// FromRecord builds a Table by mapping each of the record's (up to) four
// entries to a part.Partition, per spec.md §4.3's
// Classified(MBR)→Registered transition. Sector addressing assumes 512-byte
// sectors, matching this scheme's own on-disk addressing unit.
func FromRecord(rec *Record) *Table {
	t := &Table{DiskSignature: rec.DiskSignature}
	for i, e := range rec.Entries {
		kind, rawID := classify(e.Type)
		t.PartitionList = append(t.PartitionList, part.Partition{
			Index: i + 1,
			Start: int64(e.StartLBA) * 512,
			Size:  int64(e.SizeSectors) * 512,
			Kind:  kind,
			RawID: rawID,
		})
	}
	return t
}

func classify(typeByte byte) (part.Kind, string) {
	if k, ok := typeToKind[typeByte]; ok {
		return k, fmt.Sprintf("0x%02x", typeByte)
	}
	return part.KindUnknown, fmt.Sprintf("0x%02x", typeByte)
}
