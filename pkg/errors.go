package dupsweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

// ErrorKind classifies a per-file problem
type ErrorKind string

const (
	KindIO         ErrorKind = "io"
	KindPermission ErrorKind = "permission"
	KindTooLarge   ErrorKind = "too_large"
	KindRace       ErrorKind = "race"
	KindDeletion   ErrorKind = "deletion"
	KindCancelled  ErrorKind = "cancelled"
)

var (
	ErrTooLarge          = errors.New("file exceeds size ceiling")
	ErrNotRegular        = errors.New("not a regular file")
	ErrChangedDuringRead = errors.New("file changed during read")
	ErrVanished          = errors.New("file vanished")
)

// InvalidRootError is returned when a scan root is missing or not a directory.
// It is the only error that aborts a scan.
type InvalidRootError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidRootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid scan root %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid scan root %q: %s", e.Path, e.Reason)
}

func (e *InvalidRootError) Unwrap() error { return e.Err }

// IsInvalidRoot reports whether err is an InvalidRootError
func IsInvalidRoot(err error) bool {
	var e *InvalidRootError
	return errors.As(err, &e)
}

// FileError records a problem with one path. Scans and deletions collect
// these as data instead of returning them.
type FileError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Reason returns the message without kind and path, for error logs keyed by path
func (e *FileError) Reason() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func newFileError(kind ErrorKind, path string, err error) *FileError {
	return &FileError{Kind: kind, Path: path, Err: err}
}

// ErrorKindOf returns the kind of a FileError, or "" for anything else
func ErrorKindOf(err error) ErrorKind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func IsPermission(err error) bool { return ErrorKindOf(err) == KindPermission }
func IsTooLarge(err error) bool   { return ErrorKindOf(err) == KindTooLarge }
func IsRace(err error) bool       { return ErrorKindOf(err) == KindRace }

// classifyOSError maps an OS error onto the per-file taxonomy
func classifyOSError(path string, err error) *FileError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newFileError(KindCancelled, path, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return newFileError(KindPermission, path, err)
	case errors.Is(err, ErrTooLarge):
		return newFileError(KindTooLarge, path, err)
	case isNotExist(err):
		return newFileError(KindIO, path, fmt.Errorf("%w: %w", ErrVanished, err))
	default:
		return newFileError(KindIO, path, err)
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR)
}
