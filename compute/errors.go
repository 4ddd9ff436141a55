package compute

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a device API failure.
type ErrorKind int

const (
	KindPlatform ErrorKind = iota
	KindBuild
	KindMemory
	KindLaunch
	KindInvalidArg
	KindNotSupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "Platform"
	case KindBuild:
		return "Build"
	case KindMemory:
		return "Memory"
	case KindLaunch:
		return "Launch"
	case KindInvalidArg:
		return "InvalidArgument"
	case KindNotSupported:
		return "NotSupported"
	default:
		return "Unknown"
	}
}

// Error is a device API failure with the operation that produced it.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so sentinel errors compare by
// classification rather than identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func NewError(kind ErrorKind, op, message string, err error) error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func NewBuildError(op, message string, err error) error {
	return NewError(KindBuild, op, message, err)
}

func NewMemoryError(op, message string, err error) error {
	return NewError(KindMemory, op, message, err)
}

func NewLaunchError(op, message string, err error) error {
	return NewError(KindLaunch, op, message, err)
}

func NewInvalidArgError(op, message string) error {
	return NewError(KindInvalidArg, op, message, nil)
}

// ErrNotSupported is returned by backends that are not compiled in.
var ErrNotSupported = &Error{Kind: KindNotSupported, Message: "backend not supported in this build"}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

func IsBuildError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindBuild
}

func IsMemoryError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindMemory
}

func IsLaunchError(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindLaunch
}
