package ext4

import (
	"encoding/binary"
	"testing"
)

const testBlockSize = 4096

// buildRootBlock assembles a synthetic htree Root block: valid '.'/'..'
// dirents, a RootInfo with the given indirect_levels, and limit/count/
// block followed by (count-1) Entry records.
func buildRootBlock(indirectLevels byte, limit, count uint16, entries []Entry) []byte {
	b := make([]byte, testBlockSize)

	// '.' fake dirent: inode=2, rec_len=12, name_len=1, file_type=2
	binary.LittleEndian.PutUint32(b[0:4], 2)
	binary.LittleEndian.PutUint16(b[4:6], 12)
	b[6] = 1
	b[7] = 2
	copy(b[8:9], ".")

	// '..' fake dirent: inode=2, rec_len=block_size-12, name_len=2, file_type=2
	binary.LittleEndian.PutUint32(b[12:16], 2)
	binary.LittleEndian.PutUint16(b[16:18], testBlockSize-12)
	b[18] = 2
	b[19] = 2
	copy(b[20:22], "..")

	// RootInfo at offset 24
	binary.LittleEndian.PutUint32(b[24:28], 0) // reserved_zero
	b[28] = byte(HashHalfMD4)
	b[29] = 8 // info_length
	b[30] = indirectLevels
	b[31] = 0 // unused_flags

	binary.LittleEndian.PutUint16(b[32:34], limit)
	binary.LittleEndian.PutUint16(b[34:36], count)
	binary.LittleEndian.PutUint32(b[36:40], 1) // initial block

	for i, e := range entries {
		off := 40 + i*8
		binary.LittleEndian.PutUint32(b[off:off+4], e.Hash)
		binary.LittleEndian.PutUint32(b[off+4:off+8], e.Block)
	}
	return b
}

func TestRootFromBytesValid(t *testing.T) {
	entries := []Entry{{Hash: 100, Block: 5}, {Hash: 200, Block: 6}}
	b := buildRootBlock(0, 508, 3, entries)

	root, err := rootFromBytes(b, testBlockSize, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Limit != 508 {
		t.Errorf("Limit = %d, want 508", root.Limit)
	}
	if root.Count != 3 {
		t.Errorf("Count = %d, want 3", root.Count)
	}
	if len(root.Entries) != 2 {
		t.Fatalf("expected 2 exposed entries, got %d", len(root.Entries))
	}
	if root.Entries[0].Hash != 100 || root.Entries[1].Hash != 200 {
		t.Errorf("unexpected entries: %+v", root.Entries)
	}
	if root.IndirectLevels != 0 {
		t.Errorf("IndirectLevels = %d, want 0", root.IndirectLevels)
	}
}

func TestRootFromBytesRejectsBadDot(t *testing.T) {
	b := buildRootBlock(0, 508, 1, nil)
	b[7] = 5 // corrupt dot_file_type
	_, err := rootFromBytes(b, testBlockSize, false)
	if err == nil {
		t.Fatal("expected an invariant violation for a corrupt '.' entry")
	}
}

func TestRootFromBytesRejectsExcessiveIndirectLevels(t *testing.T) {
	b := buildRootBlock(3, 508, 1, nil)
	_, err := rootFromBytes(b, testBlockSize, false)
	if err == nil {
		t.Fatal("expected an invariant violation: indirect_levels 3 requires INCOMPAT_LARGEDIR")
	}
	b = buildRootBlock(3, 508, 1, nil)
	if _, err := rootFromBytes(b, testBlockSize, true); err != nil {
		t.Errorf("unexpected error with largeDirOK: %v", err)
	}
}

func TestRootFromBytesRejectsLimitMismatch(t *testing.T) {
	b := buildRootBlock(0, 100, 1, nil) // 32 + 100*8 = 832 != 4096
	_, err := rootFromBytes(b, testBlockSize, false)
	if err == nil {
		t.Fatal("expected an invariant violation for mismatched limit")
	}
}

func TestLeafBlocksForHashTieBreak(t *testing.T) {
	entries := []Entry{
		{Hash: 10, Block: 1},
		{Hash: 20, Block: 2},
		{Hash: 20, Block: 3},
		{Hash: 30, Block: 4},
	}
	blocks := leafBlocksForHash(entries, 0, 25)
	if len(blocks) != 2 || blocks[0] != 2 || blocks[1] != 3 {
		t.Errorf("leafBlocksForHash = %v, want [2 3]", blocks)
	}
}

func TestReadDirEntriesSkipsDeleted(t *testing.T) {
	b := make([]byte, 64)
	binary.LittleEndian.PutUint32(b[0:4], 12) // inode
	binary.LittleEndian.PutUint16(b[4:6], 16)
	b[6] = 4 // name_len
	b[7] = 1 // file_type regular
	copy(b[8:12], "file")

	binary.LittleEndian.PutUint32(b[16:20], 0) // deleted (inode 0)
	binary.LittleEndian.PutUint16(b[20:22], 48)
	b[22] = 0
	b[23] = 0

	entries := readDirEntries(b)
	if len(entries) != 1 {
		t.Fatalf("expected 1 live entry, got %d", len(entries))
	}
	if entries[0].Name != "file" {
		t.Errorf("Name = %q, want file", entries[0].Name)
	}
}
