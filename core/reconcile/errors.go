package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"treesync/core/tree"
)

var (
	// ErrContractViolation reports adapter output that breaks the engine's
	// input contract. It aborts the current pass.
	ErrContractViolation = errors.New("contract violation")
	// ErrMigrationConflict reports a root migration that would collide with
	// an identity held outside the migrated subtree.
	ErrMigrationConflict = errors.New("migration conflict")
	// ErrSchedulerClosed is returned by Scheduler.Do after Close.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// FailureCode classifies adapter I/O failures.
type FailureCode string

const (
	// CodeDirectoryNotFound means a listed directory no longer exists at its path.
	CodeDirectoryNotFound FailureCode = "DIRECTORY_NOT_FOUND"
	// CodePathNotFound means a path no longer resolves.
	CodePathNotFound FailureCode = "PATH_NOT_FOUND"
	// CodeIdentityMismatch means the path resolves to a different identity.
	CodeIdentityMismatch FailureCode = "IDENTITY_MISMATCH"
	// CodeMetadataMismatch means the node changed between listing and read.
	CodeMetadataMismatch FailureCode = "METADATA_MISMATCH"
	// CodeObjectNotFound means the identity no longer exists.
	CodeObjectNotFound FailureCode = "OBJECT_NOT_FOUND"
	// CodePathUnsupported means the adapter cannot represent the path.
	CodePathUnsupported FailureCode = "PATH_UNSUPPORTED"
	// CodeSharingViolation means the node is locked by another process.
	CodeSharingViolation FailureCode = "SHARING_VIOLATION"
	// CodeTimeout means the request timed out.
	CodeTimeout FailureCode = "TIMEOUT"
	// CodeUnknown covers everything else.
	CodeUnknown FailureCode = "UNKNOWN"
)

// Absent reports whether the code means the node does not exist.
func (c FailureCode) Absent() bool {
	switch c {
	case CodePathNotFound, CodeObjectNotFound, CodePathUnsupported:
		return true
	default:
		return false
	}
}

// FailureOp names the I/O operation a failure belongs to.
type FailureOp int

const (
	OpList FailureOp = iota
	OpFetch
	OpRoots
)

// String returns a human-readable operation.
func (o FailureOp) String() string {
	switch o {
	case OpList:
		return "list"
	case OpFetch:
		return "fetch"
	default:
		return "roots"
	}
}

// Failure is a classified adapter error. Adapters wrap their errors in a
// Failure so the engine can act on the code and the identity it concerns.
type Failure[A comparable] struct {
	Code  FailureCode
	AltID tree.AltID[A]
	Err   error
}

// NewFailure wraps err with a code and the identity it concerns.
func NewFailure[A comparable](code FailureCode, alt tree.AltID[A], err error) *Failure[A] {
	return &Failure[A]{Code: code, AltID: alt, Err: err}
}

// Error implements error.
func (f *Failure[A]) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Code, f.AltID)
	}
	return fmt.Sprintf("%s: %s: %v", f.Code, f.AltID, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure[A]) Unwrap() error {
	return f.Err
}

// Classify maps err onto a failure code and the identity it carries.
// Cancellation is not a failure: ok is false for context.Canceled.
func Classify[A comparable](err error) (code FailureCode, alt tree.AltID[A], ok bool) {
	if err == nil || errors.Is(err, context.Canceled) {
		return "", alt, false
	}
	var f *Failure[A]
	if errors.As(err, &f) {
		return f.Code, f.AltID, true
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return CodeTimeout, alt, true
	case errors.Is(err, fs.ErrNotExist):
		return CodeObjectNotFound, alt, true
	default:
		return CodeUnknown, alt, true
	}
}

func contractError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}
