package simplefs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockimg/simplefs"
	simplefstesting "github.com/blockimg/simplefs/testing"
)

func TestFormatThenMountReportsGeometry(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 100)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	sb := fs.SuperBlock()
	assert.EqualValues(t, 100, sb.Blocks)
	assert.EqualValues(t, 10, sb.InodeBlocks)
	assert.EqualValues(t, 1280, sb.Inodes)
	assert.True(t, fs.Mounted())
}

func TestMountRejectsUnformattedImage(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	err := fs.Mount(dev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simplefs.EILSEQ))
	assert.False(t, fs.Mounted())
}

func TestFormatWhileMountedFails(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	err := fs.Format(dev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simplefs.EBUSY))
}

func TestMountTwiceFails(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	err := fs.Mount(dev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simplefs.EBUSY))
}

func TestUnmountAllowsRemount(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	fs.Unmount()
	assert.False(t, fs.Mounted())

	require.NoError(t, fs.Mount(dev))
	fs.Unmount()
}

func TestOperationsRequireMount(t *testing.T) {
	var fs simplefs.FileSystem

	_, err := fs.Create()
	assert.True(t, errors.Is(err, simplefs.EBUSY))

	_, err = fs.Stat(0)
	assert.True(t, errors.Is(err, simplefs.EBUSY))

	assert.True(t, errors.Is(fs.Remove(0), simplefs.EBUSY))

	buf := make([]byte, 1)
	_, err = fs.Read(0, buf, 1, 0)
	assert.True(t, errors.Is(err, simplefs.EBUSY))
	_, err = fs.Write(0, buf, 1, 0)
	assert.True(t, errors.Is(err, simplefs.EBUSY))
}

// TestCreateStatRemoveReuse exercises spec.md's scenario S2: five creates
// return inode numbers 0..4 in order, stat(3) reports an empty file,
// remove(2) frees inode 2, and the next create reuses it.
func TestCreateStatRemoveReuse(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	for want := 0; want < 5; want++ {
		got, err := fs.Create()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	size, err := fs.Stat(3)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	require.NoError(t, fs.Remove(2))

	got, err := fs.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestStatAndRemoveOnUnusedInodeFails(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	_, err := fs.Stat(4)
	assert.True(t, errors.Is(err, simplefs.ENOENT))

	err = fs.Remove(4)
	assert.True(t, errors.Is(err, simplefs.ENOENT))
}

func TestRemoveTwiceFails(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	n, err := fs.Create()
	require.NoError(t, err)

	require.NoError(t, fs.Remove(n))
	err = fs.Remove(n)
	assert.True(t, errors.Is(err, simplefs.ENOENT))
}

func TestCreateFailsWhenInodeTableIsFull(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	sb := fs.SuperBlock()
	for i := uint32(0); i < sb.Inodes; i++ {
		_, err := fs.Create()
		require.NoError(t, err)
	}

	n, err := fs.Create()
	assert.Equal(t, -1, n)
	assert.True(t, errors.Is(err, simplefs.ENOSPC))
}

// TestRemoveThenCreateReusesInodeZero exercises spec.md's scenario S7: a
// file written to inode 0 and then removed makes reads fail, and the
// next create hands inode 0 back out as a fresh, empty file.
func TestRemoveThenCreateReusesInodeZero(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 20)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))
	defer fs.Unmount()

	n, err := fs.Create()
	require.NoError(t, err)
	require.Equal(t, 0, n)

	payload := []byte("HELLO")
	_, err = fs.Write(n, payload, len(payload), 0)
	require.NoError(t, err)

	require.NoError(t, fs.Remove(0))

	buf := make([]byte, 5)
	read, err := fs.Read(0, buf, len(buf), 0)
	assert.Equal(t, -1, read)
	assert.True(t, errors.Is(err, simplefs.ENOENT))

	again, err := fs.Create()
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	size, err := fs.Stat(0)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestRemountRebuildsBitmapSoAllocationAvoidsLiveBlocks(t *testing.T) {
	dev := simplefstesting.NewMemoryDevice(t, 10)

	var fs simplefs.FileSystem
	require.NoError(t, fs.Format(dev))
	require.NoError(t, fs.Mount(dev))

	n, err := fs.Create()
	require.NoError(t, err)
	payload := make([]byte, simplefs.BlockSize)
	written, err := fs.Write(n, payload, len(payload), 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), written)

	before, err := fs.Inode(n)
	require.NoError(t, err)
	fs.Unmount()

	var fs2 simplefs.FileSystem
	require.NoError(t, fs2.Mount(dev))
	defer fs2.Unmount()

	after, err := fs2.Inode(n)
	require.NoError(t, err)
	require.Equal(t, before.Direct, after.Direct)

	m, err := fs2.Create()
	require.NoError(t, err)
	secondWritten, err := fs2.Write(m, payload, len(payload), 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), secondWritten)

	second, err := fs2.Inode(m)
	require.NoError(t, err)
	assert.NotEqual(t, before.Direct[0], second.Direct[0])
}
