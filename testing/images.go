// Package testing provides helpers for building in-memory disk images in
// tests, without touching the host filesystem.
package testing

import (
	"testing"

	"github.com/xaionaro-go/bytesextra"

	"github.com/blockimg/simplefs/block"
)

// NewMemoryImage returns a zero-filled, block.Size*blocks byte buffer,
// standing in for a freshly created host disk image. The buffer is
// returned as a plain slice; NewMemoryDevice wraps it as a stream.
func NewMemoryImage(t *testing.T, blocks uint) []byte {
	t.Helper()
	return make([]byte, blocks*block.Size)
}

// NewMemoryDevice returns a block.Device backed by a zero-filled
// in-memory image of the given block count, built the same way the
// teacher's own test helpers wrap a byte slice as a seekable stream.
func NewMemoryDevice(t *testing.T, blocks uint) *block.Device {
	t.Helper()
	image := NewMemoryImage(t, blocks)
	stream := bytesextra.NewReadWriteSeeker(image)
	return block.OpenStream(stream, blocks)
}
