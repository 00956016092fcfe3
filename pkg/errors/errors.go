// Package errors defines the error kinds surfaced by the indexing and search
// core: I/O failures carrying the offending path, codec failures for corrupt
// or incompatible index files, and per-document build failures.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIO           = errors.New("i/o error")
	ErrCodec        = errors.New("codec error")
	ErrIndexBuild   = errors.New("index build error")
	ErrLocked       = errors.New("index file is locked by another writer")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// IOError reports a failed open, read, write or rename on Path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NewIO wraps err as an IOError. A nil err yields nil.
func NewIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// CodecError reports bytes that are truncated, malformed, or written by an
// incompatible codec version.
type CodecError struct {
	Reason string
	Err    error
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s: %v", e.Reason, e.Err)
	}
	return "codec: " + e.Reason
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

// Codecf builds a CodecError with a formatted reason.
func Codecf(format string, args ...any) error {
	return &CodecError{Reason: fmt.Sprintf(format, args...)}
}

// IndexBuildError wraps the failure to read one document during a batch build.
type IndexBuildError struct {
	Filename string
	Err      error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("indexing %s: %v", e.Filename, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

func (e *IndexBuildError) Is(target error) bool {
	return target == ErrIndexBuild
}

// HTTPStatusCode maps an error to the status the searcher service responds with.
func HTTPStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrLocked):
		return http.StatusConflict
	case errors.Is(err, ErrCodec), errors.Is(err, ErrIO):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
