package ext4

import "testing"

func TestHashVersionValidAndString(t *testing.T) {
	if !HashSiphash.Valid() {
		t.Error("HashSiphash should be a valid version")
	}
	if HashVersion(7).Valid() {
		t.Error("version 7 should not be valid")
	}
	if HashHalfMD4.String() != "half-md4" {
		t.Errorf("String() = %q, want half-md4", HashHalfMD4.String())
	}
}

func TestExt4fsDirhashLegacyIsDeterministic(t *testing.T) {
	name := []byte("lost+found")
	h1, _, err := ext4fsDirhash(name, HashLegacy, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, _, err := ext4fsDirhash(name, HashLegacy, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("legacy hash is not deterministic: %d != %d", h1, h2)
	}
}

func TestExt4fsDirhashSignedVsUnsignedDiffer(t *testing.T) {
	name := []byte{0xFF, 0x80, 0x01}
	signed, _, err := ext4fsDirhash(name, HashLegacy, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unsigned, _, err := ext4fsDirhash(name, HashLegacyUnsigned, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed == unsigned {
		t.Error("expected signed and unsigned legacy hashes to differ for high-bit bytes")
	}
}

func TestExt4fsDirhashHalfMD4AndTeaDiffer(t *testing.T) {
	name := []byte("a_directory_entry_name")
	md4hash, _, err := ext4fsDirhash(name, HashHalfMD4, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	teahash, _, err := ext4fsDirhash(name, HashTea, [4]uint32{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md4hash == teahash {
		t.Error("expected half-md4 and tea hashes to differ")
	}
}

func TestExt4fsDirhashSiphashUnsupported(t *testing.T) {
	_, _, err := ext4fsDirhash([]byte("x"), HashSiphash, [4]uint32{})
	if err == nil {
		t.Fatal("expected an UnsupportedFeatureError for siphash")
	}
	if _, ok := err.(*UnsupportedFeatureError); !ok {
		t.Errorf("expected *UnsupportedFeatureError, got %T", err)
	}
}

// TestStr2HashbufPadsShortNames reproduces fs/ext4/hash.c's
// str2hashbuf_unsigned behavior by hand: a 2-byte chunk packed into 2
// words pads with a length-derived word (0x02020202, "len" in every byte
// position), not zero, and the occupied word accumulates its bytes
// big-endian (val = byte + val<<8) seeded from that pad rather than
// little-endian from a zero/sentinel-padded word.
func TestStr2HashbufPadsShortNames(t *testing.T) {
	buf := str2hashbuf([]byte("ab"), 2, true)
	if len(buf) != 2 {
		t.Fatalf("expected 2 words, got %d", len(buf))
	}
	// pad = len(2) in every byte: 0x02020202.
	// word 0: val starts at pad, then 'a'(0x61) and 'b'(0x62) shift in:
	//   val = 0x61 + (pad<<8) = 0x02020261
	//   val = 0x62 + (val<<8) = 0x02026162
	// the chunk is exhausted after 2 bytes (i%4 never hits 3), so the
	// post-loop single store captures this partial word as buf[0].
	// word 1 is wholly unused, so it is the pure pad word.
	pad := uint32(0x02020202)
	want0 := uint32(0x62) + ((uint32(0x61) + (pad << 8)) << 8)
	if buf[0] != want0 {
		t.Errorf("buf[0] = %#x, want %#x", buf[0], want0)
	}
	if buf[1] != pad {
		t.Errorf("buf[1] = %#x, want %#x (pure pad word)", buf[1], pad)
	}
}

// TestStr2HashbufExactChunkStoresOneTrailingPadWord reproduces the C
// implementation's post-loop store: when the chunk ends exactly on a word
// boundary but leaves word slots unused, the post-loop store writes the
// freshly reset pad value into the next slot, so the word after the last
// data word is a pure-pad word. (A chunk of numWords*4 bytes fills every
// word with data and leaves no slot for that store.)
func TestStr2HashbufExactChunkStoresOneTrailingPadWord(t *testing.T) {
	name := []byte{0x01, 0x02, 0x03, 0x04} // exactly 1 word, numWords=2
	buf := str2hashbuf(name, 2, true)
	pad := uint32(0x04040404) // len(name) == 4
	wantWord0 := uint32(0x04) + ((uint32(0x03) + ((uint32(0x02) + ((uint32(0x01) + (pad << 8)) << 8)) << 8)) << 8)
	if buf[0] != wantWord0 {
		t.Errorf("buf[0] = %#x, want %#x", buf[0], wantWord0)
	}
	if buf[1] != pad {
		t.Errorf("buf[1] = %#x, want %#x (post-loop pad word)", buf[1], pad)
	}
}

func TestStr2HashbufSignedVsUnsignedDiffer(t *testing.T) {
	// the high-bit byte is the last byte of word 0, so its sign extension
	// stays in the stored word instead of being shifted out by later bytes.
	chunk := []byte{0x00, 0x00, 0x00, 0xFF, 0x00, 0x00, 0x00, 0x00}
	signed := str2hashbuf(chunk, 2, false)
	unsigned := str2hashbuf(chunk, 2, true)
	if signed[0] == unsigned[0] {
		t.Error("expected signed and unsigned packing to differ for a high-bit byte")
	}
}
