package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ExceptionRecord is a serializable snapshot of an error and its causes.
type ExceptionRecord struct {
	TypeName string
	Message  string
	Causes   []ExceptionRecord
}

// RecordFromError snapshots err. Joined errors contribute every member as a
// cause; otherwise the single wrapped error, if any, is the only cause.
func RecordFromError(err error) ExceptionRecord {
	if err == nil {
		return ExceptionRecord{TypeName: "<nil>"}
	}
	rec := ExceptionRecord{
		TypeName: fmt.Sprintf("%T", err),
		Message:  err.Error(),
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, cause := range e.Unwrap() {
			if cause != nil {
				rec.Causes = append(rec.Causes, RecordFromError(cause))
			}
		}
	default:
		if cause := errors.Unwrap(err); cause != nil {
			rec.Causes = []ExceptionRecord{RecordFromError(cause)}
		}
	}
	return rec
}

// RecordFromPanic snapshots a value recovered from a panic.
func RecordFromPanic(v any) ExceptionRecord {
	if err, ok := v.(error); ok {
		return RecordFromError(err)
	}
	return ExceptionRecord{
		TypeName: fmt.Sprintf("%T", v),
		Message:  fmt.Sprint(v),
	}
}

// UnknownRequestRecord is sent back for a request the server does not handle.
func UnknownRequestRecord() ExceptionRecord {
	return ExceptionRecord{TypeName: "--", Message: "Unknown request type"}
}

// String renders the record tree, one record per line.
func (r ExceptionRecord) String() string {
	var b strings.Builder
	r.render(&b, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (r ExceptionRecord) render(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("    ", depth))
	b.WriteString(r.TypeName)
	b.WriteString(": ")
	b.WriteString(r.Message)
	b.WriteByte('\n')
	for _, c := range r.Causes {
		c.render(b, depth+1)
	}
}

// RemoteError exposes an Error response as a Go error on the client side.
type RemoteError struct {
	Record ExceptionRecord
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Record.TypeName, e.Record.Message)
}

func (e *RemoteError) Unwrap() []error {
	if len(e.Record.Causes) == 0 {
		return nil
	}
	out := make([]error, len(e.Record.Causes))
	for i, c := range e.Record.Causes {
		out[i] = &RemoteError{Record: c}
	}
	return out
}
