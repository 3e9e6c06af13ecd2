// Package block emulates a fixed block-size device on top of a host
// stream. It is the lowest layer of simplefs: every read and write above
// it happens in whole blocks.
package block

import (
	"fmt"
	"io"
	"os"
)

// Size is the fixed size, in bytes, of every block on the device.
const Size = 4096

// Failure is returned by ReadBlock/WriteBlock in place of Size when the
// operation could not be completed.
const Failure = -1

// Device is a fixed block-size view over a host stream. All I/O happens in
// units of Size bytes, addressed by a zero-based block number.
//
// The exported counters are for informational purposes only; callers
// should treat them as read-only.
type Device struct {
	stream io.ReadWriteSeeker
	closer io.Closer
	blocks uint
	Reads  uint64
	Writes uint64
}

// Open attaches to an existing host file at path, truncating it so its
// length is exactly blocks*Size, and returns a Device backed by it.
func Open(path string, blocks uint) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	if err := f.Truncate(int64(blocks) * Size); err != nil {
		f.Close()
		return nil, err
	}

	return &Device{stream: f, closer: f, blocks: blocks}, nil
}

// OpenStream wraps an already-open stream (typically an in-memory buffer
// used in tests) as a Device with the given block count. The caller keeps
// ownership of stream; Close will not close it.
func OpenStream(stream io.ReadWriteSeeker, blocks uint) *Device {
	return &Device{stream: stream, blocks: blocks}
}

// Blocks returns the total number of blocks on the device.
func (d *Device) Blocks() uint {
	if d == nil {
		return 0
	}
	return d.blocks
}

// Close reports the cumulative read/write counters to standard output and
// releases the underlying host file, if any.
func (d *Device) Close() {
	if d == nil {
		return
	}

	fmt.Printf("number of disk reads: %d\n", d.Reads)
	fmt.Printf("number of disk writes: %d\n", d.Writes)

	if d.closer != nil {
		d.closer.Close()
	}
}

// sanityCheck mirrors the original disk_sanity_check: a device, a usable
// stream, an in-range block number, and a non-nil buffer.
func (d *Device) sanityCheck(blockNum uint, data []byte) bool {
	return d != nil && d.stream != nil && blockNum < d.blocks && data != nil
}

// ReadBlock reads exactly Size bytes from the given block into data, which
// must be at least Size bytes long. It returns Size on success or Failure.
func (d *Device) ReadBlock(blockNum uint, data []byte) int {
	if !d.sanityCheck(blockNum, data) {
		return Failure
	}

	if _, err := d.stream.Seek(int64(blockNum)*Size, io.SeekStart); err != nil {
		return Failure
	}

	if _, err := io.ReadFull(d.stream, data[:Size]); err != nil {
		return Failure
	}

	d.Reads++
	return Size
}

// WriteBlock writes exactly Size bytes from data to the given block. It
// returns Size on success or Failure.
func (d *Device) WriteBlock(blockNum uint, data []byte) int {
	if !d.sanityCheck(blockNum, data) {
		return Failure
	}

	if _, err := d.stream.Seek(int64(blockNum)*Size, io.SeekStart); err != nil {
		return Failure
	}

	if err := writeFull(d.stream, data[:Size]); err != nil {
		return Failure
	}

	d.Writes++
	return Size
}

// writeFull loops on partial writes, treating anything short of a full
// transfer as an implementation error of the host OS rather than aborting
// after the first short write.
func writeFull(w io.Writer, data []byte) error {
	for written := 0; written < len(data); {
		n, err := w.Write(data[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}
