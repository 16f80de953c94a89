package ext4

import (
	"encoding/binary"

	"github.com/mcgov/purt/checksum"
)

const (
	rootHeaderSize = 32 // dot(12) + dotdot(12) + RootInfo(8)
	nodeHeaderSize = 8  // fake dirent

	entrySize = 8 // (hash uint32, block uint32)

	maxIndirectLevels        = 3
	maxIndirectLevelsNoFlag  = 2
)

// DirEntry is one classical linear directory entry, as found in a leaf
// block or in any directory that carries no htree index at all.
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  byte
	FileType byte
	Name     string
}

// Directory is the decoded listing of a directory: the classical
// (name -> inode) entries gathered from its htree leaf blocks, or from its
// first block when it carries no htree index.
type Directory struct {
	Root    bool
	Entries []DirEntry
}

func readDirEntries(b []byte) []DirEntry {
	var entries []DirEntry
	pos := 0
	for pos+8 <= len(b) {
		inode := binary.LittleEndian.Uint32(b[pos : pos+4])
		recLen := binary.LittleEndian.Uint16(b[pos+4 : pos+6])
		if recLen < 8 || pos+int(recLen) > len(b) {
			break
		}
		nameLen := b[pos+6]
		fileType := b[pos+7]
		var name string
		if inode != 0 && int(nameLen) <= int(recLen)-8 {
			name = string(b[pos+8 : pos+8+int(nameLen)])
		}
		if inode != 0 {
			entries = append(entries, DirEntry{
				Inode:    inode,
				RecLen:   recLen,
				NameLen:  nameLen,
				FileType: fileType,
				Name:     name,
			})
		}
		pos += int(recLen)
	}
	return entries
}

// Entry is one htree index slot: a hash and the directory-logical block
// it descends to (a block number within the directory file, resolved
// through the directory's inode). Entries within a Root or Node are sorted by Hash
// ascending, per spec.md §3.
type Entry struct {
	Hash  uint32
	Block uint32
}

func entriesFromBytes(b []byte, count int) []Entry {
	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		off := i * entrySize
		if off+entrySize > len(b) {
			break
		}
		entries = append(entries, Entry{
			Hash:  binary.LittleEndian.Uint32(b[off : off+4]),
			Block: binary.LittleEndian.Uint32(b[off+4 : off+8]),
		})
	}
	return entries
}

// Root is the htree index header found in a directory inode's first data
// block, per spec.md §3/§4.4.4.
type Root struct {
	HashVersion    HashVersion
	InfoLength     byte
	IndirectLevels byte
	UnusedFlags    byte

	Limit uint16
	Count uint16
	Block uint32

	Entries []Entry
}

func rootFromBytes(b []byte, blockSize uint32, largeDirOK bool) (*Root, error) {
	if len(b) < int(blockSize) {
		return nil, NewInvariantViolationError("directory block shorter than filesystem block size")
	}
	dotRecLen := binary.LittleEndian.Uint16(b[4:6])
	dotNameLen := b[6]
	dotFileType := b[7]
	if dotRecLen != 12 || dotNameLen != 1 || dotFileType != 2 || string(b[8:9]) != "." {
		return nil, NewInvariantViolationError("htree root: invalid '.' entry")
	}

	dotdotOff := 12
	dotdotRecLen := binary.LittleEndian.Uint16(b[dotdotOff+4 : dotdotOff+6])
	dotdotNameLen := b[dotdotOff+6]
	dotdotFileType := b[dotdotOff+7]
	if dotdotRecLen != uint16(blockSize)-12 || dotdotNameLen != 2 || dotdotFileType != 2 || string(b[dotdotOff+8:dotdotOff+10]) != ".." {
		return nil, NewInvariantViolationError("htree root: invalid '..' entry")
	}

	infoOff := 24
	reservedZero := binary.LittleEndian.Uint32(b[infoOff : infoOff+4])
	hashVersion := HashVersion(b[infoOff+4])
	infoLength := b[infoOff+5]
	indirectLevels := b[infoOff+6]
	unusedFlags := b[infoOff+7]

	if reservedZero != 0 {
		return nil, NewInvariantViolationError("htree root: RootInfo.reserved_zero must be 0")
	}
	if infoLength != 8 {
		return nil, NewInvariantViolationError("htree root: RootInfo.info_length must be 8")
	}
	if !hashVersion.Valid() {
		return nil, NewInvariantViolationError("htree root: unrecognized hash_version")
	}
	maxLevels := byte(maxIndirectLevelsNoFlag)
	if largeDirOK {
		maxLevels = maxIndirectLevels
	}
	if indirectLevels > maxLevels {
		return nil, NewInvariantViolationError("htree root: indirect_levels exceeds the allowed maximum")
	}

	sl := rootHeaderSize
	limit := binary.LittleEndian.Uint16(b[sl : sl+2])
	count := binary.LittleEndian.Uint16(b[sl+2 : sl+4])
	block := binary.LittleEndian.Uint32(b[sl+4 : sl+8])

	if uint32(rootHeaderSize)+uint32(limit)*entrySize != blockSize {
		return nil, NewInvariantViolationError("htree root: sizeof(Root) + limit*sizeof(Entry) != block_size")
	}
	if count > limit {
		return nil, NewInvariantViolationError("htree root: count exceeds limit")
	}
	if count == 0 {
		return nil, NewInvariantViolationError("htree root: count is zero")
	}

	entries := entriesFromBytes(b[sl+8:], int(count)-1)

	return &Root{
		HashVersion:    hashVersion,
		InfoLength:     infoLength,
		IndirectLevels: indirectLevels,
		UnusedFlags:    unusedFlags,
		Limit:          limit,
		Count:          count,
		Block:          block,
		Entries:        entries,
	}, nil
}

// Node is an interior htree index block (used when IndirectLevels > 0).
type Node struct {
	Limit   uint16
	Count   uint16
	Block   uint32
	Entries []Entry
}

func nodeFromBytes(b []byte, blockSize uint32) (*Node, error) {
	if len(b) < int(blockSize) {
		return nil, NewInvariantViolationError("directory block shorter than filesystem block size")
	}
	limit := binary.LittleEndian.Uint16(b[nodeHeaderSize : nodeHeaderSize+2])
	count := binary.LittleEndian.Uint16(b[nodeHeaderSize+2 : nodeHeaderSize+4])
	block := binary.LittleEndian.Uint32(b[nodeHeaderSize+4 : nodeHeaderSize+8])

	if uint32(nodeHeaderSize)+uint32(limit)*entrySize != blockSize {
		return nil, NewInvariantViolationError("htree node: sizeof(Node) + limit*sizeof(Entry) != block_size")
	}
	if count > limit || count == 0 {
		return nil, NewInvariantViolationError("htree node: count out of range")
	}

	entries := entriesFromBytes(b[nodeHeaderSize+8:], int(count)-1)
	return &Node{Limit: limit, Count: count, Block: block, Entries: entries}, nil
}

// Tail is the trailing (reserved, csum) pair an htree index block carries
// when metadata-csum is enabled.
type Tail struct {
	Reserved uint32
	Checksum uint32
}

func tailFromBytes(b []byte) Tail {
	n := len(b)
	return Tail{
		Reserved: binary.LittleEndian.Uint32(b[n-8 : n-4]),
		Checksum: binary.LittleEndian.Uint32(b[n-4 : n]),
	}
}

// validateTailChecksum recomputes the htree tail CRC-32C, seeded with the
// filesystem's checksum seed, over uuid ‖ the whole block, with the tail's
// checksum field (the block's last 4 bytes) zeroed.
func validateTailChecksum(block []byte, uuid [16]byte, seed uint32, tail Tail) bool {
	input := make([]byte, 0, 16+len(block))
	input = append(input, uuid[:]...)
	input = append(input, block...)
	n := len(input)
	sum := checksum.SumZeroed(checksum.CRC32CExt4(seed), input, [2]int{n - 4, n})
	return uint32(sum) == tail.Checksum
}

// walkHtree performs a bounded, iterative (non-recursive) descent of the
// htree index looking for name's hash among the leaf blocks it would
// reside in, per spec.md §4.4.4 and the design note that recursion depth
// is bounded by indirect_levels <= 3. It returns the directory-logical
// block numbers of the candidate leaves to scan, in the order a tied-hash
// linear scan should visit them.
func walkHtree(root *Root, readBlock func(logicalBlock uint32) ([]byte, error), blockSize uint32, targetHash uint32) ([]uint32, error) {
	if root.IndirectLevels == 0 {
		return leafBlocksForHash(root.Entries, root.Block, targetHash), nil
	}

	type frame struct {
		entries []Entry
		block   uint32
	}
	stack := []frame{{entries: root.Entries, block: root.Block}}
	depth := 0

	for depth < int(root.IndirectLevels) {
		top := stack[len(stack)-1]
		candidateBlocks := leafBlocksForHash(top.entries, top.block, targetHash)
		if len(candidateBlocks) == 0 {
			return nil, nil
		}
		data, err := readBlock(candidateBlocks[0])
		if err != nil {
			return nil, err
		}
		node, err := nodeFromBytes(data, blockSize)
		if err != nil {
			return nil, err
		}
		stack = append(stack, frame{entries: node.Entries, block: node.Block})
		depth++
	}

	last := stack[len(stack)-1]
	return leafBlocksForHash(last.entries, last.block, targetHash), nil
}

// allHtreeLeafBlocks performs a bounded breadth-first traversal of the
// entire htree index (not a single hash lookup) to enumerate every leaf
// block the directory's content lives in, for full forensic listing. The
// explicit queue keeps recursion depth bounded by indirect_levels, per
// spec.md §9's iterative-stack design note.
func allHtreeLeafBlocks(root *Root, readBlock func(logicalBlock uint32) ([]byte, error), blockSize uint32) ([]uint32, error) {
	if root.IndirectLevels == 0 {
		blocks := []uint32{root.Block}
		for _, e := range root.Entries {
			blocks = append(blocks, e.Block)
		}
		return blocks, nil
	}

	type frame struct {
		block uint32
		depth int
	}
	queue := []frame{{block: root.Block, depth: 1}}
	for _, e := range root.Entries {
		queue = append(queue, frame{block: e.Block, depth: 1})
	}

	var leaves []uint32
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > int(root.IndirectLevels) {
			leaves = append(leaves, cur.block)
			continue
		}
		data, err := readBlock(cur.block)
		if err != nil {
			return nil, err
		}
		node, err := nodeFromBytes(data, blockSize)
		if err != nil {
			return nil, err
		}
		queue = append(queue, frame{block: node.Block, depth: cur.depth + 1})
		for _, e := range node.Entries {
			queue = append(queue, frame{block: e.Block, depth: cur.depth + 1})
		}
	}
	return leaves, nil
}

// leafBlocksForHash finds the leftmost entry whose hash is the largest one not
// exceeding targetHash (binary search by construction, since entries are
// sorted ascending), then collects every subsequent entry sharing that
// same hash value as tie-break siblings, per spec.md §4.4.4's "descend
// along the leftmost and linearly scan siblings" policy. initialBlock is
// the slot-0 block, used when targetHash is smaller than every entry.
func leafBlocksForHash(entries []Entry, initialBlock uint32, targetHash uint32) []uint32 {
	chosen := initialBlock
	idx := -1
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if entries[mid].Hash <= targetHash {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 {
		idx = lo - 1
		for idx > 0 && entries[idx-1].Hash == entries[idx].Hash {
			idx--
		}
		chosen = entries[idx].Block
	}

	blocks := []uint32{chosen}
	if idx >= 0 {
		hash := entries[idx].Hash
		for i := idx + 1; i < len(entries) && entries[i].Hash == hash; i++ {
			blocks = append(blocks, entries[i].Block)
		}
	}
	return blocks
}
