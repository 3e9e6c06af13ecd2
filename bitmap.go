package simplefs

import (
	bitmap "github.com/boljen/go-bitmap"
)

// freeBlockBitmap is the in-memory-only free-block tracker rebuilt on
// every mount (spec.md §4.2.6). A set bit means the block is allocated; a
// clear bit means it's free, mirroring the convention the teacher's own
// Allocator uses over the same bitmap library.
type freeBlockBitmap struct {
	bits      bitmap.Bitmap
	total     uint32
	firstFree uint32 // I + 1, the lowest block index the allocator may hand out
}

// newFreeBlockBitmap allocates a bitmap big enough for `total` blocks,
// with every bit initially clear (free).
func newFreeBlockBitmap(total, inodeBlocks uint32) *freeBlockBitmap {
	return &freeBlockBitmap{
		bits:      bitmap.New(int(total)),
		total:     total,
		firstFree: inodeBlocks + 1,
	}
}

// markUsed flips a single block's bit to allocated.
func (b *freeBlockBitmap) markUsed(blockNum uint32) {
	b.bits.Set(int(blockNum), true)
}

// allocate scans from firstFree upward for the first free block, marks it
// used, and returns it. It returns (0, false) if the device is full.
func (b *freeBlockBitmap) allocate() (uint32, bool) {
	for i := b.firstFree; i < b.total; i++ {
		if !b.bits.Get(int(i)) {
			b.bits.Set(int(i), true)
			return i, true
		}
	}
	return 0, false
}

// release returns a previously allocated block to the free pool. It
// panics if the block was already free: releasing an already-free block
// is an invariant violation the spec declares impossible, not a
// recoverable condition (spec.md §9).
func (b *freeBlockBitmap) release(blockNum uint32) {
	if !b.bits.Get(int(blockNum)) {
		panic("simplefs: release of an already-free block")
	}
	b.bits.Set(int(blockNum), false)
}
