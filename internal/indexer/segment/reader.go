package segment

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// Load reads and decodes the index file at path.
func Load(path string) (index.Collection, error) {
	coll, _, err := LoadWithInfo(path)
	return coll, err
}

// LoadWithInfo is Load that also reports the file header, size and checksum.
// Open and read failures are *errors.IOError; bad contents are
// *errors.CodecError.
func LoadWithInfo(path string) (index.Collection, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Collection{}, Info{}, herrors.NewIO("read", path, err)
	}
	return decode(data)
}
