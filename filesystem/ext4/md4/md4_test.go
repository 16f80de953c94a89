package md4

import "testing"

func TestRol(t *testing.T) {
	tests := []struct {
		x      uint32
		s      uint
		expect uint32
	}{
		{x: 0x12345678, s: 0, expect: 0x12345678},
		{x: 0x12345678, s: 4, expect: 0x23456781},
		{x: 0x12345678, s: 16, expect: 0x56781234},
	}
	for _, tt := range tests {
		if got := rol(tt.x, tt.s); got != tt.expect {
			t.Errorf("rol(%#x, %d) = %#x, want %#x", tt.x, tt.s, got, tt.expect)
		}
	}
}

func TestFGH(t *testing.T) {
	x, y, z := uint32(0xFFFFFFFF), uint32(0xAAAAAAAA), uint32(0x55555555)
	if got := f(x, y, z); got != 0xAAAAAAAA {
		t.Errorf("f = %#x, want 0xAAAAAAAA", got)
	}
	if got := g(x, y, z); got != 0xFFFFFFFF {
		t.Errorf("g = %#x, want 0xFFFFFFFF", got)
	}
	if got := h(x, y, z); got != 0x0 {
		t.Errorf("h = %#x, want 0x0", got)
	}
}

func TestHalfMD4Transform(t *testing.T) {
	buf := [4]uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476}
	tests := []struct {
		name   string
		in     [8]uint32
		expect uint32
	}{
		{
			name:   "sequential input",
			in:     [8]uint32{0, 1, 2, 3, 4, 5, 6, 7},
			expect: 0xF254F422,
		},
		{
			name:   "mixed pattern input",
			in:     [8]uint32{0x12345678, 0x9ABCDEF0, 0x0FEDCBA9, 0x87654321, 0x11223344, 0xAABBCCDD, 0x55667788, 0x99AABBCC},
			expect: 0xA4405E22,
		},
		{
			name:   "alternating bit pattern",
			in:     [8]uint32{0x00000000, 0xFFFFFFFF, 0xAAAAAAAA, 0x55555555, 0x33333333, 0x66666666, 0x99999999, 0xCCCCCCCC},
			expect: 0x35B92DEF,
		},
		{
			name:   "all zero input",
			in:     [8]uint32{0, 0, 0, 0, 0, 0, 0, 0},
			expect: 0x5B0AA4BE,
		},
		{
			name:   "arbitrary input",
			in:     [8]uint32{0x89ABCDEF, 0x01234567, 0xFEDCBA98, 0x76543210, 0xA1B2C3D4, 0x0BADC0DE, 0xDEADBEEF, 0xCAFEBABE},
			expect: 0x2748FDB6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HalfMD4Transform(buf, tt.in[:])
			if got != tt.expect {
				t.Errorf("HalfMD4Transform(%#v, %#v) = %#x, want %#x", buf, tt.in, got, tt.expect)
			}
		})
	}
}
