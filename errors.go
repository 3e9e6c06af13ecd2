package simplefs

import (
	"fmt"
	"syscall"
)

// Errno aliases for the error taxonomy of spec.md §7. These are the only
// syscall.Errno values this package produces.
const (
	// EINVAL is InvalidArgument: a null buffer, an out-of-range block, or
	// an out-of-range inode number.
	EINVAL = syscall.EINVAL
	// EILSEQ is NotFormatted: the super-block's magic number or
	// cross-field layout is invalid.
	EILSEQ = syscall.EILSEQ
	// ENOENT is NotFound: an operation against an inode whose valid bit
	// is zero.
	ENOENT = syscall.ENOENT
	// ENOSPC is NoSpace: the allocator has no free block left to hand
	// out.
	ENOSPC = syscall.ENOSPC
	// EIO is IOError: the block device failed for reasons outside of its
	// own sanity check.
	EIO = syscall.EIO
	// EBUSY is AlreadyMounted/AlreadyFormatted: the file system already
	// has a device attached.
	EBUSY = syscall.EBUSY
)

// DriverError wraps a syscall.Errno with an optional, more specific
// message. It is the error type the public API returns: alongside -1
// (or, from a Write that failed partway, the bytes already written) from
// the calls that return a number, and on its own from Format, Mount and
// Remove.
type DriverError struct {
	ErrnoCode syscall.Errno
	message   string
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.ErrnoCode.Error()
}

// Errno returns the underlying syscall.Errno this error represents.
func (e *DriverError) Errno() syscall.Errno {
	return e.ErrnoCode
}

// Is reports whether target is the same errno code, so callers can use
// errors.Is(err, simplefs.ENOENT) and similar.
func (e *DriverError) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return e.ErrnoCode == errno
	}
	return false
}

// NewDriverError creates a DriverError whose message is the errno's
// default description.
func NewDriverError(errnoCode syscall.Errno) *DriverError {
	return &DriverError{ErrnoCode: errnoCode, message: errnoCode.Error()}
}

// NewDriverErrorWithMessage creates a DriverError from an errno code with
// a more specific message.
func NewDriverErrorWithMessage(errnoCode syscall.Errno, message string) *DriverError {
	return &DriverError{
		ErrnoCode: errnoCode,
		message:   fmt.Sprintf("%s: %s", errnoCode.Error(), message),
	}
}
