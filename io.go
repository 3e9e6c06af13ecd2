package simplefs

import (
	"github.com/blockimg/simplefs/block"
)

// Read copies up to length bytes from inode n, starting at offset, into
// buf. The returned count is clamped to what's actually available between
// offset and the inode's recorded size (spec.md §4.2.10).
func (fs *FileSystem) Read(n int, buf []byte, length, offset int) (int, error) {
	if !fs.mounted {
		return -1, NewDriverError(EBUSY)
	}
	if offset < 0 || length < 0 {
		return -1, NewDriverError(EINVAL)
	}

	node, err := fs.loadInode(n)
	if err != nil {
		return -1, err
	}
	if node.Valid == 0 {
		return -1, NewDriverError(ENOENT)
	}

	length = min(length, int(node.Size)-offset)
	if length <= 0 {
		return 0, nil
	}

	bytesRead := 0
	blockIndex := offset / block.Size
	blockOff := offset % block.Size
	dataBuf := make([]byte, block.Size)

	for blockIndex < PointersPerInode && node.Direct[blockIndex] != 0 && bytesRead < length {
		if fs.dev.ReadBlock(uint(node.Direct[blockIndex]), dataBuf) == block.Failure {
			return -1, NewDriverErrorWithMessage(EIO, "failed to read data block")
		}

		sz := min(block.Size-blockOff, length-bytesRead)
		copy(buf[bytesRead:bytesRead+sz], dataBuf[blockOff:blockOff+sz])
		bytesRead += sz
		blockIndex++
		blockOff = 0
	}

	if bytesRead < length && node.Indirect != 0 {
		indirectBuf := make([]byte, block.Size)
		if fs.dev.ReadBlock(uint(node.Indirect), indirectBuf) == block.Failure {
			return -1, NewDriverErrorWithMessage(EIO, "failed to read indirect block")
		}
		pointers := decodePointerBlock(indirectBuf)

		idx := blockIndex - PointersPerInode
		for idx >= 0 && idx < PointersPerBlock && pointers[idx] != 0 && bytesRead < length {
			if fs.dev.ReadBlock(uint(pointers[idx]), dataBuf) == block.Failure {
				return -1, NewDriverErrorWithMessage(EIO, "failed to read data block")
			}

			sz := min(block.Size-blockOff, length-bytesRead)
			copy(buf[bytesRead:bytesRead+sz], dataBuf[blockOff:blockOff+sz])
			bytesRead += sz
			idx++
			blockOff = 0
		}
	}

	return bytesRead, nil
}

// Write copies length bytes from buf into inode n starting at offset,
// extending the file and allocating data/indirect blocks on demand
// (spec.md §4.2.11, §4.2.12). If allocation can't satisfy the full
// extent, the write proceeds as far as allocation allowed, persists that
// partial result, and returns both the number of bytes actually
// transferred and an ENOSPC error.
func (fs *FileSystem) Write(n int, buf []byte, length, offset int) (int, error) {
	if !fs.mounted {
		return -1, NewDriverError(EBUSY)
	}
	if offset < 0 || length < 0 {
		return -1, NewDriverError(EINVAL)
	}

	node, err := fs.loadInode(n)
	if err != nil {
		return -1, err
	}
	if node.Valid == 0 {
		return -1, NewDriverError(ENOENT)
	}

	shortBlocks := fs.extend(&node, offset+length)

	bytesWritten := 0
	blockIndex := offset / block.Size
	blockOff := offset % block.Size
	dataBuf := make([]byte, block.Size)

	for blockIndex < PointersPerInode && node.Direct[blockIndex] != 0 && bytesWritten < length {
		if fs.dev.ReadBlock(uint(node.Direct[blockIndex]), dataBuf) == block.Failure {
			return bytesWritten, NewDriverErrorWithMessage(EIO, "failed to read data block for read-modify-write")
		}

		sz := min(block.Size-blockOff, length-bytesWritten)
		copy(dataBuf[blockOff:blockOff+sz], buf[bytesWritten:bytesWritten+sz])
		if fs.dev.WriteBlock(uint(node.Direct[blockIndex]), dataBuf) == block.Failure {
			return bytesWritten, NewDriverErrorWithMessage(EIO, "failed to write data block back")
		}

		bytesWritten += sz
		blockIndex++
		blockOff = 0
	}

	if bytesWritten < length && node.Indirect != 0 {
		indirectBuf := make([]byte, block.Size)
		if fs.dev.ReadBlock(uint(node.Indirect), indirectBuf) == block.Failure {
			return bytesWritten, NewDriverErrorWithMessage(EIO, "failed to read indirect block")
		}
		pointers := decodePointerBlock(indirectBuf)

		idx := blockIndex - PointersPerInode
		for idx >= 0 && idx < PointersPerBlock && pointers[idx] != 0 && bytesWritten < length {
			if fs.dev.ReadBlock(uint(pointers[idx]), dataBuf) == block.Failure {
				return bytesWritten, NewDriverErrorWithMessage(EIO, "failed to read data block for read-modify-write")
			}

			sz := min(block.Size-blockOff, length-bytesWritten)
			copy(dataBuf[blockOff:blockOff+sz], buf[bytesWritten:bytesWritten+sz])
			if fs.dev.WriteBlock(uint(pointers[idx]), dataBuf) == block.Failure {
				return bytesWritten, NewDriverErrorWithMessage(EIO, "failed to write data block back")
			}

			bytesWritten += sz
			idx++
			blockOff = 0
		}
	}

	if err := fs.saveInode(n, node); err != nil {
		return bytesWritten, err
	}
	if shortBlocks > 0 {
		return bytesWritten, NewDriverErrorWithMessage(ENOSPC, "allocator ran out of free blocks before the write completed")
	}
	return bytesWritten, nil
}

// extend grows node so it can hold newSize bytes, allocating direct and,
// if needed, indirect data blocks (spec.md §4.2.12). It returns the
// number of blocks it was unable to allocate; if the allocator runs out
// of free blocks partway through, the inode's size reflects exactly how
// far the extension got and the shortfall is reported back to Write.
func (fs *FileSystem) extend(node *Inode, newSize int) int {
	oldBlocks := ceilDivInt(int(node.Size), block.Size)
	newBlocks := ceilDivInt(newSize, block.Size)

	if newBlocks <= oldBlocks {
		node.Size = uint32(max(int(node.Size), newSize))
		return 0
	}

	needed := newBlocks - oldBlocks
	idx := oldBlocks

	for idx < PointersPerInode && needed > 0 {
		b, ok := fs.free.allocate()
		if !ok {
			break
		}
		node.Direct[idx] = b
		idx++
		needed--
	}

	if idx >= PointersPerInode {
		indirectIdx := idx - PointersPerInode
		hadIndirect := node.Indirect != 0

		if !hadIndirect {
			if b, ok := fs.free.allocate(); ok {
				node.Indirect = b
			}
		}

		if node.Indirect != 0 {
			var pointers [PointersPerBlock]uint32
			if hadIndirect {
				buf := make([]byte, block.Size)
				fs.dev.ReadBlock(uint(node.Indirect), buf)
				pointers = decodePointerBlock(buf)
			}

			for indirectIdx < PointersPerBlock && needed > 0 {
				b, ok := fs.free.allocate()
				if !ok {
					break
				}
				pointers[indirectIdx] = b
				indirectIdx++
				needed--
			}

			if indirectIdx == 0 && !hadIndirect {
				fs.free.release(node.Indirect)
				node.Indirect = 0
			} else {
				fs.dev.WriteBlock(uint(node.Indirect), encodePointerBlock(pointers))
			}
		}
	}

	if needed > 0 {
		node.Size = uint32((newBlocks - needed) * block.Size)
	} else {
		node.Size = uint32(newSize)
	}
	return needed
}
