package ext4

import "github.com/mcgov/purt/filesystem/ext4/md4"

// HashVersion enumerates the htree directory hash algorithms a Root's
// RootInfo may declare. All seven are named so validation can recognize
// any on-disk value; SIPHASH is validated but not implemented for lookup,
// per spec.md's design note that initial implementations may validate
// only, deferring lookup for hash versions that aren't yet wired up.
type HashVersion byte

const (
	HashLegacy HashVersion = iota
	HashHalfMD4
	HashTea
	HashLegacyUnsigned
	HashHalfMD4Unsigned
	HashTeaUnsigned
	HashSiphash
)

func (v HashVersion) String() string {
	switch v {
	case HashLegacy:
		return "legacy"
	case HashHalfMD4:
		return "half-md4"
	case HashTea:
		return "tea"
	case HashLegacyUnsigned:
		return "legacy-unsigned"
	case HashHalfMD4Unsigned:
		return "half-md4-unsigned"
	case HashTeaUnsigned:
		return "tea-unsigned"
	case HashSiphash:
		return "siphash"
	default:
		return "unknown"
	}
}

// Valid reports whether v is one of the seven recognized hash versions.
func (v HashVersion) Valid() bool {
	return v <= HashSiphash
}

const teaDelta = 0x9E3779B9

// teaTransform is the Davis-Meyer/TEA round ext3/4 uses for the TEA hash
// versions: four input words folded into a two-word state over 16 rounds.
func teaTransform(buf [2]uint32, in [4]uint32) [2]uint32 {
	b0, b1 := buf[0], buf[1]
	a, b, c, d := in[0], in[1], in[2], in[3]
	var sum uint32
	for n := 0; n < 16; n++ {
		sum += teaDelta
		b0 += ((b1 << 4) + a) ^ (b1 + sum) ^ ((b1 >> 5) + b)
		b1 += ((b0 << 4) + c) ^ (b0 + sum) ^ ((b0 >> 5) + d)
	}
	return [2]uint32{buf[0] + b0, buf[1] + b1}
}

// dxHackHash is the legacy ext2 htree hash (fs/ext4/hash.c dx_hack_hash):
// a simple feedback hash over the name's bytes, interpreted as signed or
// unsigned per the unsigned flag.
func dxHackHash(name []byte, unsigned bool) uint32 {
	var hash0 uint32 = 0x12a3fe2d
	var hash1 uint32 = 0x37abe8f9
	for _, raw := range name {
		var c int32
		if unsigned {
			c = int32(raw)
		} else {
			c = int32(int8(raw))
		}
		h := hash1 + (hash0 ^ uint32(c*7152373))
		if h&0x80000000 != 0 {
			h -= 0x7fffffff
		}
		hash1 = hash0
		hash0 = h
	}
	return hash0 << 1
}

// str2hashbuf packs chunk into numWords uint32 words, matching
// fs/ext4/hash.c's str2hashbuf_signed/str2hashbuf_unsigned: unused
// trailing words are not zero, but filled from a length-derived repeating
// word (chunk's own length packed into every byte position), and each
// occupied word accumulates its bytes big-endian (val = byte + val<<8)
// seeded from that same pad value, so a partial trailing word keeps the
// pad's value in its untouched high-order bytes rather than reading as a
// sentinel-padded, little-endian-packed name.
func str2hashbuf(chunk []byte, numWords int, unsigned bool) []uint32 {
	buf := make([]uint32, numWords)
	n := len(chunk)
	if n > numWords*4 {
		n = numWords * 4
	}

	padByte := uint32(byte(len(chunk)))
	pad := padByte | padByte<<8 | padByte<<16 | padByte<<24

	idx := 0
	num := numWords
	val := pad
	for i := 0; i < n; i++ {
		if i%4 == 0 {
			val = pad
		}
		var b int32
		if unsigned {
			b = int32(chunk[i])
		} else {
			b = int32(int8(chunk[i]))
		}
		val = uint32(b) + (val << 8)
		if i%4 == 3 {
			buf[idx] = val
			idx++
			val = pad
			num--
		}
	}
	num--
	if num >= 0 {
		buf[idx] = val
		idx++
	}
	for {
		num--
		if num < 0 {
			break
		}
		buf[idx] = pad
		idx++
	}
	return buf
}

// ext4fsDirhash computes the (major, minor) hash pair for name under the
// given hash version, seeded from the superblock's hash seed (used by the
// HALF_MD4 and TEA families; ignored by the legacy families). Returns
// UnsupportedFeatureError for SIPHASH, since lookup is deliberately not
// implemented for it.
func ext4fsDirhash(name []byte, version HashVersion, seed [4]uint32) (major, minor uint32, err error) {
	switch version {
	case HashLegacy, HashLegacyUnsigned:
		return dxHackHash(name, version == HashLegacyUnsigned), 0, nil

	case HashHalfMD4, HashHalfMD4Unsigned:
		buf := defaultHashBuf(seed)
		unsigned := version == HashHalfMD4Unsigned
		p := name
		for len(p) > 0 {
			value := len(p)
			if value > 8*4 {
				value = 8 * 4
			}
			in := str2hashbuf(p[:value], 8, unsigned)
			buf = md4.Transform(buf, in)
			p = p[value:]
		}
		return buf[1], buf[2], nil

	case HashTea, HashTeaUnsigned:
		buf2 := [2]uint32{seed[0], seed[1]}
		if seed == ([4]uint32{}) {
			buf2 = [2]uint32{0x67452301, 0xEFCDAB89}
		}
		unsigned := version == HashTeaUnsigned
		p := name
		for len(p) > 0 {
			value := len(p)
			if value > 4*4 {
				value = 4 * 4
			}
			words := str2hashbuf(p[:value], 4, unsigned)
			var in [4]uint32
			copy(in[:], words)
			buf2 = teaTransform(buf2, in)
			p = p[value:]
		}
		return buf2[0], buf2[1], nil

	case HashSiphash:
		return 0, 0, NewUnsupportedFeatureError("siphash directory hash lookup is not implemented")

	default:
		return 0, 0, NewUnsupportedFeatureError("unrecognized directory hash version")
	}
}

func defaultHashBuf(seed [4]uint32) [4]uint32 {
	if seed == ([4]uint32{}) {
		return [4]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476}
	}
	return seed
}

