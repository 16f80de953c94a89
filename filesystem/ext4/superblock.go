package ext4

import (
	"encoding/binary"
	"fmt"

	"github.com/mcgov/purt/checksum"
)

const (
	superblockSize   = 1024
	superblockOffset = 1024 // relative to partition start
	superblockMagic  = 0xEF53
	magicOffset      = 0x38

	// feature flags this decoder tests against (spec.md §3, §4.4.1).
	incompat64Bit      = 0x0080
	incompatCSumSeed   = 0x2000
	incompatLargeDir   = 0x4000
	roCompatGDTCsum    = 0x0010
	roCompatMetadataCS = 0x0400

	checksumSeedOffset  = 0x270
	superblockCsumOffset = 0x3FC
)

// Superblock is the decoded 1024-byte ext2/3/4 superblock.
type Superblock struct {
	InodesCount      uint32
	BlocksCountLo    uint32
	BlocksCountHi    uint32
	FreeBlocksCount  uint32
	FreeInodesCount  uint32
	FirstDataBlock   uint32
	LogBlockSize     uint32
	BlocksPerGroup   uint32
	InodesPerGroup   uint32
	Magic            uint16
	FeatureCompat    uint32
	FeatureIncompat  uint32
	FeatureRoCompat  uint32
	UUID             [16]byte
	VolumeName       string
	InodeSize        uint16
	DescSize         uint16
	HashSeed         [4]uint32
	DefHashVersion   byte
	ChecksumType     byte
	ChecksumSeed     uint32
	Checksum         uint32

	raw []byte
}

// BlockSize returns the filesystem block size in bytes: 1024 << LogBlockSize.
func (sb *Superblock) BlockSize() uint32 {
	return 1024 << sb.LogBlockSize
}

// BlocksCount returns the combined low+high 64-bit block count, per
// spec.md §3's "combined low+high u32 pair when 64-bit is set".
func (sb *Superblock) BlocksCount() uint64 {
	if !sb.Is64Bit() {
		return uint64(sb.BlocksCountLo)
	}
	return uint64(sb.BlocksCountHi)<<32 | uint64(sb.BlocksCountLo)
}

// GroupCount returns ceil(blocks_count / blocks_per_group).
func (sb *Superblock) GroupCount() uint64 {
	if sb.BlocksPerGroup == 0 {
		return 0
	}
	bc := sb.BlocksCount()
	bpg := uint64(sb.BlocksPerGroup)
	return (bc + bpg - 1) / bpg
}

// Is64Bit reports whether INCOMPAT_64BIT is set.
func (sb *Superblock) Is64Bit() bool {
	return sb.FeatureIncompat&incompat64Bit != 0
}

// GroupDescriptorSize returns the on-disk block-group descriptor size:
// DescSize when 64-bit is active, else the legacy 32-byte layout.
func (sb *Superblock) GroupDescriptorSize() uint16 {
	if sb.Is64Bit() && sb.DescSize > 32 {
		return sb.DescSize
	}
	return 32
}

// HasMetadataCsum reports whether RO_COMPAT_METADATA_CSUM is set.
func (sb *Superblock) HasMetadataCsum() bool {
	return sb.FeatureRoCompat&roCompatMetadataCS != 0
}

// HasGDTCsum reports whether the legacy RO_COMPAT_GDT_CSUM feature is set.
func (sb *Superblock) HasGDTCsum() bool {
	return sb.FeatureRoCompat&roCompatGDTCsum != 0
}

// HasLargeDir reports whether INCOMPAT_LARGEDIR is set, raising the
// allowed htree indirect_levels maximum from 2 to 3.
func (sb *Superblock) HasLargeDir() bool {
	return sb.FeatureIncompat&incompatLargeDir != 0
}

// EffectiveChecksumSeed returns the seed used for metadata_csum CRC-32C
// computations: the explicit on-disk seed when INCOMPAT_CSUM_SEED is set,
// else CRC-32C(~0, uuid) per the real ext4 on-disk format (the original
// source's process-wide singleton for this value is the anti-pattern
// spec.md §5 calls out; here the seed is derived fresh on every call).
func (sb *Superblock) EffectiveChecksumSeed() uint32 {
	if sb.FeatureIncompat&incompatCSumSeed != 0 {
		return sb.ChecksumSeed
	}
	return checksum.Sum(checksum.CRC32CExt4(0xFFFFFFFF), sb.UUID[:])
}

// GroupDescriptorTableStart returns the block index at which the
// block-group descriptor table begins: the block immediately following
// the superblock.
func (sb *Superblock) GroupDescriptorTableStart() uint64 {
	if sb.BlockSize() == 1024 {
		return 2
	}
	return 1
}

// ValidateChecksum reports whether the superblock's own metadata_csum
// (stored at offset 0x3fc) matches a freshly computed one. Only
// meaningful when HasMetadataCsum is true.
func (sb *Superblock) ValidateChecksum() bool {
	sum := checksum.SumZeroed(checksum.CRC32CExt4(0xFFFFFFFF), sb.raw, [2]int{superblockCsumOffset, superblockCsumOffset + 4})
	return sum == sb.Checksum
}

func superblockFromBytes(b []byte) (*Superblock, error) {
	if len(b) != superblockSize {
		return nil, fmt.Errorf("data for superblock was %d bytes instead of expected %d", len(b), superblockSize)
	}
	magic := binary.LittleEndian.Uint16(b[magicOffset : magicOffset+2])
	if magic != superblockMagic {
		return nil, NewMagicMismatchError(magic)
	}

	sb := &Superblock{
		InodesCount:     binary.LittleEndian.Uint32(b[0x00:0x04]),
		BlocksCountLo:   binary.LittleEndian.Uint32(b[0x04:0x08]),
		FreeBlocksCount: binary.LittleEndian.Uint32(b[0x0C:0x10]),
		FreeInodesCount: binary.LittleEndian.Uint32(b[0x10:0x14]),
		FirstDataBlock:  binary.LittleEndian.Uint32(b[0x14:0x18]),
		LogBlockSize:    binary.LittleEndian.Uint32(b[0x18:0x1C]),
		BlocksPerGroup:  binary.LittleEndian.Uint32(b[0x20:0x24]),
		InodesPerGroup:  binary.LittleEndian.Uint32(b[0x28:0x2C]),
		Magic:           magic,
		FeatureCompat:   binary.LittleEndian.Uint32(b[0x5C:0x60]),
		FeatureIncompat: binary.LittleEndian.Uint32(b[0x60:0x64]),
		FeatureRoCompat: binary.LittleEndian.Uint32(b[0x64:0x68]),
		InodeSize:       binary.LittleEndian.Uint16(b[0x58:0x5A]),
		DescSize:        binary.LittleEndian.Uint16(b[0xFE:0x100]),
		DefHashVersion:  b[0xFC],
		ChecksumType:    b[0xFD],
		ChecksumSeed:    binary.LittleEndian.Uint32(b[checksumSeedOffset : checksumSeedOffset+4]),
		Checksum:        binary.LittleEndian.Uint32(b[superblockCsumOffset : superblockCsumOffset+4]),
		raw:             append([]byte(nil), b...),
	}
	copy(sb.UUID[:], b[0x68:0x78])
	sb.VolumeName = decodeCString(b[0x78:0x88])
	for i := 0; i < 4; i++ {
		sb.HashSeed[i] = binary.LittleEndian.Uint32(b[0xEC+i*4 : 0xEC+i*4+4])
	}
	if sb.Is64Bit() {
		sb.BlocksCountHi = binary.LittleEndian.Uint32(b[0x150:0x154])
	}
	if sb.InodeSize == 0 {
		sb.InodeSize = 128
	}
	return sb, nil
}

func decodeCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// calculateBackupSuperblockGroups returns the block-group indices that, per
// the sparse_super layout, carry a backup superblock and group-descriptor
// table: group 1, plus any group whose index is a power of 3, 5, or 7.
func calculateBackupSuperblockGroups(bgs int64) []int64 {
	var groups []int64
	if bgs > 1 {
		groups = append(groups, 1)
	}
	for _, base := range []int64{3, 5, 7} {
		for p := base; p < bgs; p *= base {
			groups = append(groups, p)
		}
	}
	groups = dedupeSortedInt64(groups)
	return groups
}

func dedupeSortedInt64(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	var out []int64
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	// insertion sort: the input sets are small (bounded by log_base(bgs))
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
