// Package simplefs implements a small UNIX-style block-addressed file
// system: a flat, inode-numbered namespace persisted to a fixed-size disk
// image through the block package. There are no directories, no
// permissions, no timestamps, and no concurrent mutators — see spec.md
// for the full design.
package simplefs

import (
	"github.com/blockimg/simplefs/block"
)

// FileSystem is a mounted (or not-yet-mounted) instance of the file
// system. It borrows the block.Device handed to Mount/Format; it does not
// own or close it. The zero value is an unmounted FileSystem ready for
// Format or Mount.
type FileSystem struct {
	dev     *block.Device
	meta    SuperBlock
	free    *freeBlockBitmap
	mounted bool
}

// Mounted reports whether the file system currently has a device
// attached.
func (fs *FileSystem) Mounted() bool {
	return fs.mounted
}

// SuperBlock returns a copy of the cached super-block of a mounted file
// system.
func (fs *FileSystem) SuperBlock() SuperBlock {
	return fs.meta
}

// Format writes a fresh super-block and clears the inode table on dev.
// It fails if fs already has a device attached — formatting a live mount
// is forbidden (spec.md §4.2.1).
func (fs *FileSystem) Format(dev *block.Device) error {
	if fs.mounted {
		return NewDriverError(EBUSY)
	}

	blocks := uint32(dev.Blocks())
	inodeBlocks := inodeBlocksFor(blocks)

	zero := make([]byte, block.Size)
	for i := uint32(0); i < inodeBlocks; i++ {
		if dev.WriteBlock(uint(i+1), zero) == block.Failure {
			return NewDriverErrorWithMessage(EIO, "failed to clear inode table")
		}
	}

	sb := SuperBlock{
		Magic:       MagicNumber,
		Blocks:      blocks,
		InodeBlocks: inodeBlocks,
		Inodes:      inodeBlocks * InodesPerBlock,
	}
	if dev.WriteBlock(0, encodeSuperBlock(sb)) == block.Failure {
		return NewDriverErrorWithMessage(EIO, "failed to write super block")
	}

	return nil
}

// Mount attaches dev to fs, validating its super-block and rebuilding the
// free-block bitmap. It fails if fs is already mounted.
func (fs *FileSystem) Mount(dev *block.Device) error {
	if fs.mounted {
		return NewDriverError(EBUSY)
	}

	buf := make([]byte, block.Size)
	if dev.ReadBlock(0, buf) == block.Failure {
		return NewDriverErrorWithMessage(EIO, "failed to read super block")
	}
	sb := decodeSuperBlock(buf)

	if sb.Magic != MagicNumber {
		return NewDriverErrorWithMessage(EILSEQ, "magic number is invalid")
	}
	if sb.InodeBlocks*InodesPerBlock != sb.Inodes {
		return NewDriverErrorWithMessage(EILSEQ, "inode count is inconsistent with inode block count")
	}
	if sb.InodeBlocks != inodeBlocksFor(sb.Blocks) {
		return NewDriverErrorWithMessage(EILSEQ, "inode block count is inconsistent with block count")
	}

	fs.dev = dev
	fs.meta = sb

	if err := fs.rebuildBitmap(); err != nil {
		fs.dev = nil
		return err
	}

	fs.mounted = true
	return nil
}

// Unmount detaches the device and releases the in-memory bitmap. It does
// not close the device; the caller owns that lifetime.
func (fs *FileSystem) Unmount() {
	fs.dev = nil
	fs.free = nil
	fs.mounted = false
}

// rebuildBitmap implements spec.md §4.2.6: blocks 0..I are permanently
// unavailable, and every block referenced by a valid inode (directly, via
// its indirect block, or via a pointer within that indirect block) is
// marked used.
func (fs *FileSystem) rebuildBitmap() error {
	free := newFreeBlockBitmap(fs.meta.Blocks, fs.meta.InodeBlocks)
	for i := uint32(0); i <= fs.meta.InodeBlocks; i++ {
		free.markUsed(i)
	}

	buf := make([]byte, block.Size)
	for i := uint32(0); i < fs.meta.InodeBlocks; i++ {
		if fs.dev.ReadBlock(uint(i+1), buf) == block.Failure {
			return NewDriverErrorWithMessage(EIO, "failed to read inode table while building bitmap")
		}
		inodes := decodeInodeBlock(buf)

		for j := 0; j < InodesPerBlock; j++ {
			node := inodes[j]
			if node.Valid == 0 {
				continue
			}

			for _, d := range node.Direct {
				if d != 0 {
					free.markUsed(d)
				}
			}

			if node.Indirect != 0 {
				free.markUsed(node.Indirect)

				indirectBuf := make([]byte, block.Size)
				if fs.dev.ReadBlock(uint(node.Indirect), indirectBuf) == block.Failure {
					return NewDriverErrorWithMessage(EIO, "failed to read indirect block while building bitmap")
				}
				pointers := decodePointerBlock(indirectBuf)
				for _, p := range pointers {
					if p != 0 {
						free.markUsed(p)
					}
				}
			}
		}
	}

	fs.free = free
	return nil
}
