package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// Save encodes coll and atomically replaces the file at path. Writers are
// serialised by an exclusive <path>.lock file; a second concurrent Save
// fails with an error matching errors.ErrLocked. The data goes to
// <path>.tmp, is fsynced, and is renamed over path only on success, so a
// reader never observes a partial file under path.
func Save(coll index.Collection, path string, opts Options) (int64, error) {
	data, err := Encode(coll, opts)
	if err != nil {
		return 0, fmt.Errorf("encoding index: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, herrors.NewIO("mkdir", dir, err)
		}
	}
	release, err := acquireLock(path)
	if err != nil {
		return 0, err
	}
	defer release()

	tmpPath := path + ".tmp"
	if err := writeFileSync(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, herrors.NewIO("rename", path, err)
	}
	return int64(len(data)), nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return herrors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = herrors.NewIO("close", path, cerr)
		}
	}()
	if _, err := f.Write(data); err != nil {
		return herrors.NewIO("write", path, err)
	}
	if err := f.Sync(); err != nil {
		return herrors.NewIO("sync", path, err)
	}
	return nil
}

// acquireLock creates <path>.lock exclusively and returns its release func.
// A lock left behind by a crashed writer must be removed by hand.
func acquireLock(path string) (func(), error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, herrors.NewIO("lock", path, herrors.ErrLocked)
	}
	if err != nil {
		return nil, herrors.NewIO("lock", lockPath, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return func() {
		f.Close()
		os.Remove(lockPath)
	}, nil
}
