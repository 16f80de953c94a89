package mbr

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/mcgov/purt/internal/testimg"
	"github.com/mcgov/purt/reader"
)

// buildSector assembles a 512-byte MBR sector with up to four entries and
// a valid boot signature.
func buildSector(entries [numEntries]Entry) []byte {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint32(b[440:444], 0xDEADBEEF)
	for i, e := range entries {
		start := entryTableOffset + i*entrySize
		if e.Bootable {
			b[start] = 0x80
		}
		b[start+4] = e.Type
		binary.LittleEndian.PutUint32(b[start+8:start+12], e.StartLBA)
		binary.LittleEndian.PutUint32(b[start+12:start+16], e.SizeSectors)
	}
	b[bootSigOffset] = bootSigLow
	b[bootSigOffset+1] = bootSigHigh
	return b
}

func TestRecordFromBytesShort(t *testing.T) {
	_, err := recordFromBytes(make([]byte, Size-1))
	if err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestRecordFromBytesBadSignature(t *testing.T) {
	b := buildSector([numEntries]Entry{})
	b[bootSigOffset] = 0x00
	_, err := recordFromBytes(b)
	if err == nil {
		t.Fatal("expected error for bad boot signature")
	}
	if !strings.Contains(err.Error(), "invalid MBR boot signature") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecordFromBytesValid(t *testing.T) {
	b := buildSector([numEntries]Entry{
		{Type: 0x83, StartLBA: 2048, SizeSectors: 204800},
	})
	rec, err := recordFromBytes(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DiskSignature != 0xDEADBEEF {
		t.Errorf("disk signature = 0x%x, want 0xDEADBEEF", rec.DiskSignature)
	}
	if rec.Entries[0].StartLBA != 2048 || rec.Entries[0].SizeSectors != 204800 {
		t.Errorf("unexpected first entry: %+v", rec.Entries[0])
	}
	if rec.IsProtectiveMBR() {
		t.Error("should not be classified as protective MBR")
	}
}

func TestIsProtectiveMBR(t *testing.T) {
	b := buildSector([numEntries]Entry{{Type: TypeProtectiveGPT, SizeSectors: 0xFFFFFFFF}})
	rec, err := recordFromBytes(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.IsProtectiveMBR() {
		t.Error("expected protective MBR classification")
	}
}

func TestReadRecord(t *testing.T) {
	b := buildSector([numEntries]Entry{{Type: 0x82, StartLBA: 1, SizeSectors: 2}})
	r := reader.New(testimg.New(b))
	rec, err := ReadRecord(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Entries[0].Type != 0x82 {
		t.Errorf("entry type = 0x%x, want 0x82", rec.Entries[0].Type)
	}
}

func TestFromRecordClassification(t *testing.T) {
	rec := &Record{Entries: [numEntries]Entry{
		{Type: 0x83, StartLBA: 1, SizeSectors: 10},
		{Type: 0x82, StartLBA: 11, SizeSectors: 5},
		{Type: 0x00},
		{Type: 0x77, StartLBA: 16, SizeSectors: 1},
	}}
	table := FromRecord(rec)
	if len(table.PartitionList) != 4 {
		t.Fatalf("expected 4 partitions, got %d", len(table.PartitionList))
	}
	if table.PartitionList[0].Kind.String() != "ext4" {
		t.Errorf("partition 0 kind = %s, want ext4", table.PartitionList[0].Kind)
	}
	if table.PartitionList[1].Kind.String() != "swap" {
		t.Errorf("partition 1 kind = %s, want swap", table.PartitionList[1].Kind)
	}
	if table.PartitionList[3].Kind.String() != "unknown" {
		t.Errorf("partition 3 kind = %s, want unknown", table.PartitionList[3].Kind)
	}
	if table.PartitionList[3].RawID != "0x77" {
		t.Errorf("partition 3 raw id = %s, want 0x77", table.PartitionList[3].RawID)
	}
	if table.Scheme() != "MBR" {
		t.Errorf("scheme = %s, want MBR", table.Scheme())
	}
}
