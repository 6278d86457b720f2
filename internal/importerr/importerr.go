// Package importerr holds the error kinds shared by the control-point import
// pipeline. Callers match kinds with errors.Is and decide for themselves
// whether a failure ends the process.
package importerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound: data directory, project, GPF or control-point file missing.
	ErrNotFound = errors.New("not found")
	// ErrFormat: coordinate line or DMS token malformed.
	ErrFormat = errors.New("malformed coordinate")
	// ErrCorruptFile: GPF point-count header unparsable.
	ErrCorruptFile = errors.New("corrupt gpf")
	// ErrIOWrite: backup, temp or replace step failed.
	ErrIOWrite = errors.New("write failed")
)

// Error carries the kind plus the path/value an operator needs to fix the input.
type Error struct {
	Kind  error
	Op    string
	Path  string
	Value string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(op, path string, err error) error {
	return &Error{Kind: ErrNotFound, Op: op, Path: path, Err: err}
}

func Format(op, value string, err error) error {
	return &Error{Kind: ErrFormat, Op: op, Value: value, Err: err}
}

func Corrupt(op, path, value string, err error) error {
	return &Error{Kind: ErrCorruptFile, Op: op, Path: path, Value: value, Err: err}
}

func IOWrite(op, path string, err error) error {
	return &Error{Kind: ErrIOWrite, Op: op, Path: path, Err: err}
}

// Hint returns the next action an operator should take for err's kind.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "check the data directory, project name and GPF location, then try again"
	case errors.Is(err, ErrCorruptFile):
		return "line 2 of the GPF must be the integer point count; restore from the _backup.gpf copy if needed"
	case errors.Is(err, ErrFormat):
		return "fix the coordinate line after the \"Control Point:\" marker and re-run; the GPF was not modified"
	case errors.Is(err, ErrIOWrite):
		return "check disk space and permissions; the _backup.gpf copy holds the pre-run GPF"
	default:
		return ""
	}
}
