// Package source discovers the files to index under a directory and reads
// them lazily for the build pipeline.
package source

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// WalkOptions filters the files Walk returns.
type WalkOptions struct {
	// Extensions without the leading dot; empty accepts every file.
	Extensions []string
	// SkipHidden drops files and directories whose name starts with ".".
	SkipHidden bool
	// ExcludeDirs are directory names never descended into.
	ExcludeDirs []string
}

// Walk returns the regular files under root accepted by opts, sorted. An
// unreadable root is an *errors.IOError; unreadable subdirectories are
// logged and skipped.
func Walk(root string, opts WalkOptions) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, herrors.NewIO("stat", root, err)
	}
	if !info.IsDir() {
		if accept(filepath.Base(root), opts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excluded[d] = struct{}{}
	}
	logger := slog.Default().With("component", "source")

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return herrors.NewIO("walk", path, err)
			}
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, ok := excluded[name]; ok {
				return filepath.SkipDir
			}
			if opts.SkipHidden && isHidden(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if opts.SkipHidden && isHidden(name) {
			return nil
		}
		if len(exts) > 0 {
			if _, ok := exts[extension(name)]; !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ErrNotText is wrapped in the IOError ReadFile returns for content that is
// not valid UTF-8.
var ErrNotText = errors.New("content is not valid UTF-8")

// ReadFile returns the content of path as a string. Content that is not
// valid UTF-8 is a read failure, so binary files follow the build mode.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", herrors.NewIO("read", path, err)
	}
	if !utf8.Valid(data) {
		return "", herrors.NewIO("read", path, ErrNotText)
	}
	return string(data), nil
}

// Documents turns paths into lazily read build inputs named by their path.
func Documents(paths []string) []indexer.Document {
	docs := make([]indexer.Document, len(paths))
	for i, p := range paths {
		docs[i] = indexer.Document{
			Filename: p,
			Load:     func() (string, error) { return ReadFile(p) },
		}
	}
	return docs
}

func accept(name string, opts WalkOptions) bool {
	if opts.SkipHidden && isHidden(name) {
		return false
	}
	if len(opts.Extensions) == 0 {
		return true
	}
	ext := extension(name)
	for _, e := range opts.Extensions {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
