// Package checksum implements the parameterized CRC engine this module
// needs: a generic bit-level CRC of configurable width, polynomial, initial
// value, input/output reflection, and final xor, plus the three concrete
// profiles the on-disk formats here actually use.
//
// This mirrors the shape of the original source's use of the Rust `crc`
// crate's generic Algorithm<u32> (see original_source/src/headers/gpt/mod.rs
// and .../ext4/reader/part.rs) rather than hand-rolling one fixed routine
// per format.
package checksum

// Params fully parameterizes a CRC algorithm, following the same fields as
// the Rust `crc` crate's Algorithm<W> that the original source built on.
type Params struct {
	Width  int    // bit width of the checksum: 16 or 32
	Poly   uint32 // polynomial in normal (non-reflected) form
	Init   uint32 // initial register value
	RefIn  bool   // reflect each input byte before processing
	RefOut bool   // reflect the final register before XorOut
	XorOut uint32 // value XORed into the final register
}

var (
	// CRC16ANSI is the legacy ext2/3 block-group-descriptor-table checksum:
	// poly 0x8005 normal (0xA001 reflected), init 0xFFFF, no xor-out.
	// Spec's open question flags the true on-disk seed/polynomial as
	// ambiguous in the original source (which ships it broken); this is
	// the literal parameterization spec.md §4.2 specifies. No validation
	// path in this module uses it: groups with only the legacy GDT-csum
	// feature are reported as unchecked.
	CRC16ANSI = Params{
		Width:  16,
		Poly:   0x8005,
		Init:   0xFFFF,
		RefIn:  true,
		RefOut: true,
		XorOut: 0,
	}

	// CRC32GPT is used for the GPT header and partition-entry-array
	// checksums: the standard reflected CRC-32 (poly 0x04C11DB7, init/xorout
	// all-ones), identical to the one computed by zlib's crc32() and
	// hash/crc32's IEEE table.
	CRC32GPT = Params{
		Width:  32,
		Poly:   0x04C11DB7,
		Init:   0xFFFFFFFF,
		RefIn:  true,
		RefOut: true,
		XorOut: 0xFFFFFFFF,
	}

	// crc32CPoly is the Castagnoli polynomial (normal form) used by ext4's
	// metadata_csum feature. The original source reused its GPT profile's
	// polynomial (0x04C11DB7) for this checksum too, which does not match
	// real on-disk ext4 images; every ext4 reader in the retrieval pack
	// that validates this checksum instead reaches for crc32.Castagnoli
	// (0x1EDC6F41 normal form), and this module follows the pack rather
	// than the admittedly-broken original.
	crc32CPoly uint32 = 0x1EDC6F41
)

// CRC32CExt4 builds the ext4 metadata-csum profile seeded from a given
// filesystem's superblock checksum seed. The seed travels as an explicit
// argument on every call; it is never cached in a package-level variable,
// per spec.md §5's anti-pattern warning.
func CRC32CExt4(seed uint32) Params {
	return Params{
		Width:  32,
		Poly:   crc32CPoly,
		Init:   seed,
		RefIn:  true,
		RefOut: true,
		XorOut: 0xFFFFFFFF,
	}
}

func reflect8(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

func reflectN(v uint32, width int) uint32 {
	var r uint32
	for i := 0; i < width; i++ {
		r <<= 1
		r |= v & 1
		v >>= 1
	}
	return r
}

// Sum computes the CRC of data under the given parameters, processed one
// byte at a time against the full polynomial (no precomputed table): this
// module trades the throughput of a table-driven implementation for a
// single code path that can express any width/poly/reflection
// combination, matching the generic algorithm object the original source
// was built around.
func Sum(p Params, data []byte) uint32 {
	topBit := uint32(1) << (p.Width - 1)
	mask := (topBit - 1) | topBit

	reg := p.Init & mask
	for _, b := range data {
		in := b
		if p.RefIn {
			in = reflect8(in)
		}
		reg ^= uint32(in) << (p.Width - 8)
		for i := 0; i < 8; i++ {
			if reg&topBit != 0 {
				reg = (reg << 1) ^ p.Poly
			} else {
				reg <<= 1
			}
			reg &= mask
		}
	}
	if p.RefOut {
		reg = reflectN(reg, p.Width)
	}
	return (reg ^ p.XorOut) & mask
}

// SumZeroed computes Sum(p, data) after zeroing each half-open [start,end)
// range in a copy of data, for checksums that cover their own checksum
// field (the "ranges-to-zero" pattern from spec.md §9). data is never
// mutated in place.
func SumZeroed(p Params, data []byte, zero ...[2]int) uint32 {
	cp := make([]byte, len(data))
	copy(cp, data)
	for _, r := range zero {
		start, end := r[0], r[1]
		if start < 0 {
			start = 0
		}
		if end > len(cp) {
			end = len(cp)
		}
		for i := start; i < end; i++ {
			cp[i] = 0
		}
	}
	return Sum(p, cp)
}
