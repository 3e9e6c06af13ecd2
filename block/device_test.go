package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/blockimg/simplefs/block"
)

func newMemoryDevice(t *testing.T, blocks uint) *block.Device {
	t.Helper()
	buf := make([]byte, blocks*block.Size)
	stream := bytesextra.NewReadWriteSeeker(buf)
	return block.OpenStream(stream, blocks)
}

func TestReadWriteRoundTrip(t *testing.T) {
	dev := newMemoryDevice(t, 4)

	out := make([]byte, block.Size)
	copy(out, []byte("hello block device"))

	require.Equal(t, block.Size, dev.WriteBlock(2, out))
	require.EqualValues(t, 1, dev.Writes)

	in := make([]byte, block.Size)
	require.Equal(t, block.Size, dev.ReadBlock(2, in))
	require.EqualValues(t, 1, dev.Reads)
	assert.Equal(t, out, in)
}

func TestReadWriteOutOfRange(t *testing.T) {
	dev := newMemoryDevice(t, 4)
	buf := make([]byte, block.Size)

	assert.Equal(t, block.Failure, dev.ReadBlock(4, buf))
	assert.Equal(t, block.Failure, dev.WriteBlock(10, buf))
	assert.EqualValues(t, 0, dev.Reads)
	assert.EqualValues(t, 0, dev.Writes)
}

func TestReadWriteNilBuffer(t *testing.T) {
	dev := newMemoryDevice(t, 4)
	assert.Equal(t, block.Failure, dev.ReadBlock(0, nil))
	assert.Equal(t, block.Failure, dev.WriteBlock(0, nil))
}

func TestNilDeviceIsSafe(t *testing.T) {
	var dev *block.Device
	assert.EqualValues(t, 0, dev.Blocks())
	assert.Equal(t, block.Failure, dev.ReadBlock(0, make([]byte, block.Size)))
	dev.Close()
}
