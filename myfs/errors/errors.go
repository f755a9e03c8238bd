// Package errors defines the error kinds the core filesystem library can
// return. The mount driver, mkfs, and fsinfo collaborators map these to
// whatever error representation their host expects (errno codes, FUSE
// status codes, process exit codes, ...); the core only ever deals in
// [DriverError].
package errors

import "fmt"

// DriverError is the interface every error returned by this module
// implements. It lets callers attach additional context to a sentinel error
// without losing the ability to compare against the sentinel with
// [errors.Is]-style checks (the wrapped form returned by WithMessage and
// WrapError has an Unwrap method; DriverError itself does not declare one).
type DriverError interface {
	error
	WithMessage(message string) DriverError
	WrapError(err error) DriverError
}

// -----------------------------------------------------------------------------

// wrappedError decorates a sentinel [FSError] with extra context, either a
// free-form message or another error.
type wrappedError struct {
	message  string
	original error
}

func (e wrappedError) Error() string {
	return e.message
}

func (e wrappedError) WithMessage(message string) DriverError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.message, message),
		original: e,
	}
}

func (e wrappedError) WrapError(err error) DriverError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		original: err,
	}
}

func (e wrappedError) Unwrap() error {
	return e.original
}

// -----------------------------------------------------------------------------

// FSError is a sentinel error kind surfaced by the core to its callers. It is
// a plain string so that two FSErrors with the same message compare equal,
// and so zero-value comparisons against it behave sanely.
type FSError string

func (e FSError) Error() string {
	return string(e)
}

func (e FSError) WithMessage(message string) DriverError {
	return wrappedError{message: message, original: e}
}

func (e FSError) WrapError(err error) DriverError {
	return wrappedError{message: fmt.Sprintf("%s: %s", e.Error(), err.Error()), original: err}
}

// Error kinds, see spec.md §7.
const (
	// NoEntry means a path component does not exist.
	NoEntry = FSError("no such file or directory")
	// NotADirectory means a non-leaf path component is not a directory.
	NotADirectory = FSError("not a directory")
	// IsDirectory means an operation that refuses directories (unlink,
	// truncate, read, write) was given one.
	IsDirectory = FSError("is a directory")
	// Exists means the destination of an operation that forbids overwriting
	// is already occupied.
	Exists = FSError("file exists")
	// OutOfInodes means the inode bitmap has no free slots.
	OutOfInodes = FSError("out of inodes")
	// OutOfSpace means the data-block allocator could not satisfy a grow
	// request. The caller rolls back anything it had already taken before
	// this is returned.
	OutOfSpace = FSError("no space left on device")
	// FileTooLarge means the requested size would exceed what the inode's
	// block tree can address.
	FileTooLarge = FSError("file too large")
	// NameTooLong means a directory entry name exceeds MaxFileNameLength.
	NameTooLong = FSError("file name too long")
	// CorruptImage means an internal structural assertion about the on-disk
	// layout was violated. It is reported, never auto-repaired.
	CorruptImage = FSError("file system image is corrupt")
	// NotFound means a directory removal was asked to remove an inode number
	// that isn't present in the directory.
	NotFound = FSError("directory entry not found")
	// NotEmpty means rmdir was asked to remove a non-empty directory.
	NotEmpty = FSError("directory not empty")
	// InvalidArgument means a caller-supplied parameter is out of range.
	InvalidArgument = FSError("invalid argument")
)
