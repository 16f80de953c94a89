// Package md4 implements the half-MD4 compression round ext3/4 directory
// hashing uses (fs/ext4/hash.c's half_md4_transform): three MD4 rounds
// operating on a 4-word state and 8 words of input, with no padding or
// message-length trailer, since the htree hash never processes more than
// one 32-byte chunk of name bytes per call.
package md4

const (
	k2 = 0x5A827999
	k3 = 0x6ED9EBA1
)

func rol(val uint32, shift uint) uint32 {
	return (val << shift) | (val >> (32 - shift))
}

func f(x, y, z uint32) uint32 { return z ^ (x & (y ^ z)) }
func g(x, y, z uint32) uint32 { return (x & y) + ((x ^ y) & z) }
func h(x, y, z uint32) uint32 { return x ^ y ^ z }

// round computes one MD4 step: rol(a + fn(b,c,d) + x, s). k (when nonzero)
// is folded into x by the caller for rounds 2 and 3.
func round(fn func(x, y, z uint32) uint32, a, b, c, d, x uint32, s uint) uint32 {
	return rol(a+fn(b, c, d)+x, s)
}

// Transform runs the three half-MD4 rounds over in (8 words) seeded from
// buf (4 words of state) and returns the full updated state, letting
// callers chain it across successive 32-byte chunks of a longer name.
func Transform(buf [4]uint32, in []uint32) [4]uint32 {
	a, b, c, d := buf[0], buf[1], buf[2], buf[3]

	// Round 1
	a = round(f, a, b, c, d, in[0], 3)
	d = round(f, d, a, b, c, in[1], 7)
	c = round(f, c, d, a, b, in[2], 11)
	b = round(f, b, c, d, a, in[3], 19)
	a = round(f, a, b, c, d, in[4], 3)
	d = round(f, d, a, b, c, in[5], 7)
	c = round(f, c, d, a, b, in[6], 11)
	b = round(f, b, c, d, a, in[7], 19)

	// Round 2
	a = round(g, a, b, c, d, in[1]+k2, 3)
	d = round(g, d, a, b, c, in[3]+k2, 5)
	c = round(g, c, d, a, b, in[5]+k2, 9)
	b = round(g, b, c, d, a, in[7]+k2, 13)
	a = round(g, a, b, c, d, in[0]+k2, 3)
	d = round(g, d, a, b, c, in[2]+k2, 5)
	c = round(g, c, d, a, b, in[4]+k2, 9)
	b = round(g, b, c, d, a, in[6]+k2, 13)

	// Round 3
	a = round(h, a, b, c, d, in[3]+k3, 3)
	d = round(h, d, a, b, c, in[7]+k3, 9)
	c = round(h, c, d, a, b, in[2]+k3, 11)
	b = round(h, b, c, d, a, in[6]+k3, 15)
	a = round(h, a, b, c, d, in[1]+k3, 3)
	d = round(h, d, a, b, c, in[5]+k3, 9)
	c = round(h, c, d, a, b, in[0]+k3, 11)
	b = round(h, b, c, d, a, in[4]+k3, 15)

	return [4]uint32{buf[0] + a, buf[1] + b, buf[2] + c, buf[3] + d}
}

// HalfMD4Transform runs Transform and returns only the updated second
// state word, the convention ext4's directory hash uses as its "major"
// hash value for a single 32-byte chunk (fs/ext4/hash.c:
// half_md4_transform(buf, in); hash = buf[1]).
func HalfMD4Transform(buf [4]uint32, in []uint32) uint32 {
	return Transform(buf, in)[1]
}
