package typetraits

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrTruncated           = errors.New("typetraits: truncated data")
	ErrInvalidBool         = errors.New("typetraits: invalid bool value")
	ErrNegativeCount       = errors.New("typetraits: negative count")
	ErrLimitExceeded       = errors.New("typetraits: decode limit exceeded")
	ErrTrailingBytes       = errors.New("typetraits: trailing bytes after value")
	ErrGuard               = errors.New("typetraits: guard failed")
	ErrUnrecognizedCase    = errors.New("typetraits: unrecognized case")
	ErrDuplicateCase       = errors.New("typetraits: duplicate union case")
	ErrRecursiveUnset      = errors.New("typetraits: recursive descriptor not set")
	ErrRecursiveAlreadySet = errors.New("typetraits: recursive descriptor already set")
	ErrUnboundContainer    = errors.New("typetraits: container has no descriptor; build it with Empty or New")
)

// GuardError reports a value rejected by a guarded descriptor.
type GuardError struct {
	Type string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("typetraits: guard failed for %s", e.Type)
}

func (e *GuardError) Is(target error) bool {
	return target == ErrGuard
}

// UnrecognizedCaseError reports a union value no case accepts (encode side)
// or a case name the union does not declare (decode side).
type UnrecognizedCaseError struct {
	Type string
	Name string
}

func (e *UnrecognizedCaseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("typetraits: unrecognized case %q for %s", e.Name, e.Type)
	}
	return fmt.Sprintf("typetraits: unrecognized case for %s", e.Type)
}

func (e *UnrecognizedCaseError) Is(target error) bool {
	return target == ErrUnrecognizedCase
}

// truncated maps short reads to ErrTruncated and passes transport errors through.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, io.ErrUnexpectedEOF)
	}
	return err
}
