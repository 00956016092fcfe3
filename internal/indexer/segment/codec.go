package segment

import (
	"encoding/binary"
	"hash/crc32"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// Encode serialises coll. It fails only when compression fails.
func Encode(coll index.Collection, opts Options) ([]byte, error) {
	raw := encodeBody(coll)
	stored, used, err := compress(raw, opts.Compression)
	if err != nil {
		return nil, err
	}
	out := make([]byte, HeaderSize, HeaderSize+len(stored)+FooterSize)
	putHeader(out, Header{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		Compression: used,
		EntryCount:  uint32(len(coll.Entries)),
		RawSize:     uint64(len(raw)),
		StoredSize:  uint64(len(stored)),
	})
	out = append(out, stored...)
	sum := crc32.ChecksumIEEE(out)
	out = binary.LittleEndian.AppendUint32(out, sum)
	out = binary.LittleEndian.AppendUint32(out, MagicBytes)
	return out, nil
}

// Decode parses bytes produced by Encode. Any truncation, corruption or
// version mismatch yields a *errors.CodecError and no collection.
func Decode(data []byte) (index.Collection, error) {
	coll, _, err := decode(data)
	return coll, err
}

func decode(data []byte) (index.Collection, Info, error) {
	var info Info
	if len(data) < HeaderSize+FooterSize {
		return index.Collection{}, info, herrors.Codecf("truncated: %d bytes is shorter than header and footer", len(data))
	}
	h := readHeader(data)
	if h.Magic != MagicBytes {
		return index.Collection{}, info, herrors.Codecf("bad magic bytes %#x", h.Magic)
	}
	if h.Version != FormatVersion {
		return index.Collection{}, info, herrors.Codecf("unsupported format version %d, want %d", h.Version, FormatVersion)
	}
	if h.StoredSize != uint64(len(data)-HeaderSize-FooterSize) {
		return index.Collection{}, info, herrors.Codecf("body is %d bytes, header says %d", len(data)-HeaderSize-FooterSize, h.StoredSize)
	}
	footer := data[len(data)-FooterSize:]
	if binary.LittleEndian.Uint32(footer[4:8]) != MagicBytes {
		return index.Collection{}, info, herrors.Codecf("bad footer magic")
	}
	sum := crc32.ChecksumIEEE(data[:len(data)-FooterSize])
	if want := binary.LittleEndian.Uint32(footer[0:4]); sum != want {
		return index.Collection{}, info, herrors.Codecf("checksum mismatch: got %#x, want %#x", sum, want)
	}
	raw, err := decompress(data[HeaderSize:len(data)-FooterSize], h.Compression, h.RawSize)
	if err != nil {
		return index.Collection{}, info, &herrors.CodecError{Reason: "decompressing body", Err: err}
	}
	coll, err := decodeBody(raw, h.EntryCount)
	if err != nil {
		return index.Collection{}, info, err
	}
	info = Info{Header: h, Bytes: int64(len(data)), Checksum: sum}
	return coll, info, nil
}

func putHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	b[8] = byte(h.Compression)
	binary.LittleEndian.PutUint32(b[12:16], h.EntryCount)
	binary.LittleEndian.PutUint64(b[16:24], h.RawSize)
	binary.LittleEndian.PutUint64(b[24:32], h.StoredSize)
}

func readHeader(b []byte) Header {
	return Header{
		Magic:       binary.LittleEndian.Uint32(b[0:4]),
		Version:     binary.LittleEndian.Uint32(b[4:8]),
		Compression: Compression(b[8]),
		EntryCount:  binary.LittleEndian.Uint32(b[12:16]),
		RawSize:     binary.LittleEndian.Uint64(b[16:24]),
		StoredSize:  binary.LittleEndian.Uint64(b[24:32]),
	}
}

func encodeBody(coll index.Collection) []byte {
	var b []byte
	for i := range coll.Entries {
		e := &coll.Entries[i]
		b = appendString(b, e.Filename)
		b = appendString(b, string(e.BWT))
		b = appendInts(b, e.SuffixArray)
		runes := e.Occurrences.Runes()
		b = binary.AppendUvarint(b, uint64(len(runes)))
		for _, r := range runes {
			b = binary.AppendUvarint(b, uint64(r))
			b = appendInts(b, e.Occurrences[r])
		}
		b = binary.AppendUvarint(b, uint64(len(e.Tokens)))
		for _, t := range e.Tokens {
			b = appendString(b, t)
		}
	}
	return b
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendInts(b []byte, vals []int) []byte {
	b = binary.AppendUvarint(b, uint64(len(vals)))
	for _, v := range vals {
		b = binary.AppendUvarint(b, uint64(v))
	}
	return b
}

func decodeBody(raw []byte, count uint32) (index.Collection, error) {
	d := &decoder{buf: raw}
	if uint64(count) > uint64(len(raw)) {
		return index.Collection{}, herrors.Codecf("entry count %d exceeds body size %d", count, len(raw))
	}
	entries := make([]index.IndexEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := d.entry()
		if err != nil {
			return index.Collection{}, &herrors.CodecError{Reason: "decoding entry", Err: err}
		}
		if err := e.Validate(); err != nil {
			return index.Collection{}, &herrors.CodecError{Reason: "invalid entry", Err: err}
		}
		entries = append(entries, e)
	}
	if d.off != len(d.buf) {
		return index.Collection{}, herrors.Codecf("%d trailing bytes after %d entries", len(d.buf)-d.off, count)
	}
	return index.NewCollection(entries), nil
}

// decoder reads varint-framed values from buf, bounds-checking every read.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		return 0, herrors.Codecf("truncated or overlong varint at offset %d", d.off)
	}
	d.off += n
	return v, nil
}

func (d *decoder) readInt() (int, error) {
	v, err := d.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(maxInt) {
		return 0, herrors.Codecf("value %d overflows int at offset %d", v, d.off)
	}
	return int(v), nil
}

// length reads a count of items, each at least one byte long.
func (d *decoder) length() (int, error) {
	n, err := d.readInt()
	if err != nil {
		return 0, err
	}
	if n > d.remaining() {
		return 0, herrors.Codecf("length %d exceeds remaining %d bytes at offset %d", n, d.remaining(), d.off)
	}
	return n, nil
}

// readRaw reads a length-prefixed string without interpreting its bytes.
func (d *decoder) readRaw() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s, nil
}

func (d *decoder) readString() (string, error) {
	start := d.off
	s, err := d.readRaw()
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", herrors.Codecf("invalid UTF-8 string at offset %d", start)
	}
	return s, nil
}

func (d *decoder) ints() ([]int, error) {
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	vals := make([]int, n)
	for i := range vals {
		if vals[i], err = d.readInt(); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (d *decoder) entry() (index.IndexEntry, error) {
	var e index.IndexEntry
	var err error
	// Filenames are opaque: paths from the walk may hold any bytes.
	if e.Filename, err = d.readRaw(); err != nil {
		return e, err
	}
	bwt, err := d.readString()
	if err != nil {
		return e, err
	}
	e.BWT = []rune(bwt)
	if e.SuffixArray, err = d.ints(); err != nil {
		return e, err
	}
	runes, err := d.length()
	if err != nil {
		return e, err
	}
	e.Occurrences = make(fmindex.OccurrenceTable, runes)
	prev := int64(-1)
	for i := 0; i < runes; i++ {
		v, err := d.uvarint()
		if err != nil {
			return e, err
		}
		if v > utf8.MaxRune || !utf8.ValidRune(rune(v)) {
			return e, herrors.Codecf("invalid rune %#x in occurrence table", v)
		}
		if int64(v) <= prev {
			return e, herrors.Codecf("occurrence table runes out of order at %#x", v)
		}
		prev = int64(v)
		if e.Occurrences[rune(v)], err = d.ints(); err != nil {
			return e, err
		}
	}
	tokens, err := d.length()
	if err != nil {
		return e, err
	}
	e.Tokens = make(index.TokenSet, tokens)
	for i := range e.Tokens {
		if e.Tokens[i], err = d.readString(); err != nil {
			return e, err
		}
	}
	if !e.Tokens.Valid() {
		return e, herrors.Codecf("entry %q: duplicate or unsorted tokens", e.Filename)
	}
	return e, nil
}

const maxInt = int(^uint(0) >> 1)
