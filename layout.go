package simplefs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/blockimg/simplefs/block"
)

// BlockSize re-exports block.Size for callers that only need the layout
// constants and would otherwise have no reason to import package block.
const BlockSize = block.Size

// MagicNumber identifies a block.Size-aligned image formatted by this
// package.
const MagicNumber uint32 = 0xf0f03410

// PointersPerInode is the number of direct block pointers in an inode
// record.
const PointersPerInode = 5

// PointersPerBlock is the number of 32-bit block pointers that fit in a
// single indirect block.
const PointersPerBlock = block.Size / 4

// InodesPerBlock is the number of fixed-size inode records that fit in a
// single inode-table block.
const InodesPerBlock = block.Size / inodeRecordSize

// inodeRecordSize is the on-disk size of one Inode: valid, size, five
// direct pointers, and one indirect pointer, all 32-bit words.
const inodeRecordSize = 4 * (1 + 1 + PointersPerInode + 1)

// superBlockRecordSize is the on-disk size of the four 32-bit super-block
// fields; the rest of block 0 is zero padding.
const superBlockRecordSize = 4 * 4

// SuperBlock is the fixed-size record stored in block 0 of a formatted
// image.
type SuperBlock struct {
	Magic       uint32
	Blocks      uint32
	InodeBlocks uint32
	Inodes      uint32
}

// Inode is the fixed-size, 32-byte on-disk and in-memory inode record.
type Inode struct {
	Valid    uint32
	Size     uint32
	Direct   [PointersPerInode]uint32
	Indirect uint32
}

// ceilDiv returns ceil(a/b) for positive integers.
func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// inodeBlocksFor returns I = ceil(blocks/10), the number of blocks
// reserved for the inode table on an image of the given size.
func inodeBlocksFor(blocks uint32) uint32 {
	return ceilDiv(blocks, 10)
}

// encodeSuperBlock serializes sb into a freshly zeroed, block.Size buffer
// with the four fields at the front and the rest zero-padded.
func encodeSuperBlock(sb SuperBlock) []byte {
	buf := make([]byte, block.Size)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, sb)
	return buf
}

// decodeSuperBlock reads the four leading fields out of a block.Size
// buffer previously produced by encodeSuperBlock (or written on disk).
func decodeSuperBlock(buf []byte) SuperBlock {
	var sb SuperBlock
	binary.Read(bytes.NewReader(buf[:superBlockRecordSize]), binary.LittleEndian, &sb)
	return sb
}

// encodeInodeBlock serializes a full table of InodesPerBlock inode
// records into a block.Size buffer.
func encodeInodeBlock(inodes [InodesPerBlock]Inode) []byte {
	buf := make([]byte, block.Size)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, inodes)
	return buf
}

// decodeInodeBlock is the inverse of encodeInodeBlock.
func decodeInodeBlock(buf []byte) [InodesPerBlock]Inode {
	var inodes [InodesPerBlock]Inode
	binary.Read(bytes.NewReader(buf), binary.LittleEndian, &inodes)
	return inodes
}

// encodePointerBlock serializes an indirect block's PointersPerBlock
// 32-bit pointers into a block.Size buffer.
func encodePointerBlock(pointers [PointersPerBlock]uint32) []byte {
	buf := make([]byte, block.Size)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, pointers)
	return buf
}

// decodePointerBlock is the inverse of encodePointerBlock.
func decodePointerBlock(buf []byte) [PointersPerBlock]uint32 {
	var pointers [PointersPerBlock]uint32
	binary.Read(bytes.NewReader(buf), binary.LittleEndian, &pointers)
	return pointers
}
