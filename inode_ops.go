package simplefs

import (
	"github.com/blockimg/simplefs/block"
)

// inodeBlockNumber returns the absolute block number of the inode table
// block holding inode n.
func inodeBlockNumber(n uint32) uint32 {
	return 1 + n/InodesPerBlock
}

// loadInode reads inode n from the inode table. It fails if n is out of
// range or the table block can't be read; it does not itself check the
// valid bit (callers that need NotFound semantics check node.Valid).
func (fs *FileSystem) loadInode(n int) (Inode, error) {
	if n < 0 || uint32(n) >= fs.meta.Inodes {
		return Inode{}, NewDriverError(EINVAL)
	}

	buf := make([]byte, block.Size)
	blockNum := inodeBlockNumber(uint32(n))
	if fs.dev.ReadBlock(uint(blockNum), buf) == block.Failure {
		return Inode{}, NewDriverErrorWithMessage(EIO, "failed to read inode table block")
	}

	inodes := decodeInodeBlock(buf)
	return inodes[uint32(n)%InodesPerBlock], nil
}

// saveInode writes node back to its slot in the inode table via a
// read-modify-write of the containing block.
func (fs *FileSystem) saveInode(n int, node Inode) error {
	buf := make([]byte, block.Size)
	blockNum := inodeBlockNumber(uint32(n))
	if fs.dev.ReadBlock(uint(blockNum), buf) == block.Failure {
		return NewDriverErrorWithMessage(EIO, "failed to read inode table block")
	}

	inodes := decodeInodeBlock(buf)
	inodes[uint32(n)%InodesPerBlock] = node

	if fs.dev.WriteBlock(uint(blockNum), encodeInodeBlock(inodes)) == block.Failure {
		return NewDriverErrorWithMessage(EIO, "failed to write inode table block back")
	}
	return nil
}

// Inode returns a copy of inode n's on-disk record, for callers (such as
// package report) that need more than Stat's bare size. It does not check
// the valid bit.
func (fs *FileSystem) Inode(n int) (Inode, error) {
	if !fs.mounted {
		return Inode{}, NewDriverError(EBUSY)
	}
	return fs.loadInode(n)
}

// IndirectPointers returns the decoded contents of inode n's indirect
// block, for callers (such as package report) that need the actual
// pointer contents rather than just the block number. It returns a zero
// array if the inode has no indirect block.
func (fs *FileSystem) IndirectPointers(n int) ([PointersPerBlock]uint32, error) {
	if !fs.mounted {
		return [PointersPerBlock]uint32{}, NewDriverError(EBUSY)
	}

	node, err := fs.loadInode(n)
	if err != nil {
		return [PointersPerBlock]uint32{}, err
	}
	if node.Indirect == 0 {
		return [PointersPerBlock]uint32{}, nil
	}

	buf := make([]byte, block.Size)
	if fs.dev.ReadBlock(uint(node.Indirect), buf) == block.Failure {
		return [PointersPerBlock]uint32{}, NewDriverErrorWithMessage(EIO, "failed to read indirect block")
	}
	return decodePointerBlock(buf), nil
}

// Create reserves the first free inode and returns its number, or -1 if
// the inode table is full.
func (fs *FileSystem) Create() (int, error) {
	if !fs.mounted {
		return -1, NewDriverError(EBUSY)
	}

	buf := make([]byte, block.Size)
	for i := uint32(0); i < fs.meta.InodeBlocks; i++ {
		if fs.dev.ReadBlock(uint(i+1), buf) == block.Failure {
			return -1, NewDriverErrorWithMessage(EIO, "failed to read inode table block")
		}
		inodes := decodeInodeBlock(buf)

		for j := 0; j < InodesPerBlock; j++ {
			if inodes[j].Valid != 0 {
				continue
			}

			inodes[j] = Inode{Valid: 1}
			if fs.dev.WriteBlock(uint(i+1), encodeInodeBlock(inodes)) == block.Failure {
				return -1, NewDriverErrorWithMessage(EIO, "failed to write inode table block back")
			}
			return int(i*InodesPerBlock) + j, nil
		}
	}

	return -1, NewDriverErrorWithMessage(ENOSPC, "inode table is full")
}

// Remove releases every block owned by inode n and clears its record. The
// inode number becomes eligible for reuse.
func (fs *FileSystem) Remove(n int) error {
	if !fs.mounted {
		return NewDriverError(EBUSY)
	}

	node, err := fs.loadInode(n)
	if err != nil {
		return err
	}
	if node.Valid == 0 {
		return NewDriverError(ENOENT)
	}

	for _, d := range node.Direct {
		if d != 0 {
			fs.free.release(d)
		}
	}

	if node.Indirect != 0 {
		buf := make([]byte, block.Size)
		if fs.dev.ReadBlock(uint(node.Indirect), buf) == block.Failure {
			return NewDriverErrorWithMessage(EIO, "failed to read indirect block")
		}
		pointers := decodePointerBlock(buf)
		for _, p := range pointers {
			if p != 0 {
				fs.free.release(p)
			}
		}
		fs.free.release(node.Indirect)
	}

	return fs.saveInode(n, Inode{})
}

// Stat returns the byte size of inode n, or -1 if it does not exist.
func (fs *FileSystem) Stat(n int) (int, error) {
	if !fs.mounted {
		return -1, NewDriverError(EBUSY)
	}

	node, err := fs.loadInode(n)
	if err != nil {
		return -1, err
	}
	if node.Valid == 0 {
		return -1, NewDriverError(ENOENT)
	}
	return int(node.Size), nil
}
