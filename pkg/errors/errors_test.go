package errors

import (
	"errors"
	"net/http"
	"os"
	"testing"
)

func TestIOError(t *testing.T) {
	err := NewIO("read", "/tmp/x", os.ErrNotExist)
	if !errors.Is(err, ErrIO) {
		t.Error("IOError should match ErrIO")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("IOError should unwrap to the cause")
	}
	if err.Error() != "read /tmp/x: file does not exist" {
		t.Errorf("Error() = %q", err.Error())
	}
	if NewIO("read", "/tmp/x", nil) != nil {
		t.Error("NewIO(nil) should be nil")
	}
}

func TestCodecError(t *testing.T) {
	err := Codecf("bad magic %#x", 0x1234)
	if !errors.Is(err, ErrCodec) || errors.Is(err, ErrIO) {
		t.Errorf("Codecf error matches wrong kinds: %v", err)
	}
	wrapped := &CodecError{Reason: "decompressing body", Err: errors.New("eof")}
	if wrapped.Error() != "codec: decompressing body: eof" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestIndexBuildError(t *testing.T) {
	err := error(&IndexBuildError{Filename: "a.txt", Err: NewIO("read", "a.txt", os.ErrPermission)})
	if !errors.Is(err, ErrIndexBuild) || !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("IndexBuildError chain incomplete: %v", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Path != "a.txt" {
		t.Errorf("errors.As IOError failed: %v", err)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{NewIO("lock", "x", ErrLocked), http.StatusConflict},
		{Codecf("truncated"), http.StatusServiceUnavailable},
		{NewIO("read", "x", os.ErrNotExist), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
