// Package segment encodes an index collection into the hunt index file
// format and saves or loads it atomically.
//
// Layout, little-endian:
//
//	header (32 bytes)  magic u32 | version u32 | compression u8 | pad [3]
//	                   | entry count u32 | raw body length u64 | stored body length u64
//	body               entries, compressed as a single block unless compression is none
//	footer (8 bytes)   crc32 (IEEE) of header and stored body u32 | magic u32
//
// Inside the raw body every integer and length is an unsigned varint. Each
// entry is written as: filename (length-prefixed opaque bytes), bwt
// (length-prefixed UTF-8), suffix array (count, values), occurrence table
// (count, then per rune in ascending order: rune, count, values), tokens
// (count, then length-prefixed strings in ascending order).
package segment

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
)

const (
	MagicBytes    uint32 = 0x544E5548 // "HUNT"
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 8
)

// Compression selects how the body is stored.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return config.CompressionNone
	case CompressionLZ4:
		return config.CompressionLZ4
	case CompressionZSTD:
		return config.CompressionZSTD
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a config value to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", config.CompressionNone:
		return CompressionNone, nil
	case config.CompressionLZ4:
		return CompressionLZ4, nil
	case config.CompressionZSTD:
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Options controls encoding.
type Options struct {
	Compression Compression
}

// Header is the fixed-size prefix of an index file.
type Header struct {
	Magic       uint32
	Version     uint32
	Compression Compression
	EntryCount  uint32
	RawSize     uint64
	StoredSize  uint64
}

// Info describes a decoded index file.
type Info struct {
	Header   Header
	Bytes    int64
	Checksum uint32
}
