package segment

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// lz4MaxRatio bounds how far an lz4 block can expand.
const lz4MaxRatio = 255

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// compress returns the stored form of raw. An lz4 block that does not
// shrink is reported as incompressible by the library; the raw bytes are
// then stored and the header says none.
func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, fmt.Errorf("zstd encoder: %w", err)
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), CompressionZSTD, nil
	default:
		return nil, 0, fmt.Errorf("unknown compression %d", c)
	}
}

// decompress reverses compress and checks the result is exactly rawSize bytes.
func decompress(stored []byte, c Compression, rawSize uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != rawSize {
			return nil, fmt.Errorf("stored body is %d bytes, header says %d", len(stored), rawSize)
		}
		return stored, nil
	case CompressionLZ4:
		if rawSize > uint64(len(stored))*lz4MaxRatio+lz4MaxRatio {
			return nil, fmt.Errorf("lz4 body of %d bytes cannot expand to %d", len(stored), rawSize)
		}
		raw := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(n) != rawSize {
			return nil, fmt.Errorf("lz4 body decompressed to %d bytes, header says %d", n, rawSize)
		}
		return raw, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint64(len(raw)) != rawSize {
			return nil, fmt.Errorf("zstd body decompressed to %d bytes, header says %d", len(raw), rawSize)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}
