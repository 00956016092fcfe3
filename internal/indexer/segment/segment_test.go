package segment

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

func makeEntry(filename, content string, tokens ...string) index.IndexEntry {
	text := fmindex.Terminate(content)
	sa := fmindex.SuffixArray(text)
	bwt := fmindex.BWTFromSuffixArray(text, sa)
	return index.IndexEntry{
		Filename:    filename,
		BWT:         bwt,
		SuffixArray: sa,
		Occurrences: fmindex.ComputeOccurrences(bwt),
		Tokens:      index.NewTokenSet(tokens...),
	}
}

func sampleCollection() index.Collection {
	return index.NewCollection([]index.IndexEntry{
		makeEntry("docs/a.txt", "The quick fox runs.", "quick", "fox", "runs"),
		makeEntry("docs/b.txt", strings.Repeat("banana split ", 50), "banana", "split"),
		makeEntry("docs/ü.txt", "naïve café 日本語", "naïve", "café", "日本語"),
		makeEntry("docs/empty.txt", ""),
	})
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			want := sampleCollection()
			data, err := Encode(want, Options{Compression: c})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, info, err := decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
			}
			if info.Header.EntryCount != uint32(want.Len()) {
				t.Errorf("EntryCount = %d, want %d", info.Header.EntryCount, want.Len())
			}
			if info.Bytes != int64(len(data)) {
				t.Errorf("Bytes = %d, want %d", info.Bytes, len(data))
			}
		})
	}
}

func TestRoundTripEmptyCollection(t *testing.T) {
	want := index.NewCollection(nil)
	data, err := Encode(want, Options{Compression: CompressionZSTD})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if h := readHeader(data); h.Compression != CompressionNone {
		t.Errorf("empty body stored as %s, want none", h.Compression)
	}
}

func TestCompressionShrinksRepetitiveBody(t *testing.T) {
	coll := index.NewCollection([]index.IndexEntry{
		makeEntry("big.txt", strings.Repeat("all work and no play ", 200), "work", "play"),
	})
	plain, err := Encode(coll, Options{Compression: CompressionNone})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		packed, err := Encode(coll, Options{Compression: c})
		if err != nil {
			t.Fatal(err)
		}
		if len(packed) >= len(plain) {
			t.Errorf("%s: %d bytes, not smaller than %d", c, len(packed), len(plain))
		}
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	good, err := Encode(sampleCollection(), Options{Compression: CompressionNone})
	if err != nil {
		t.Fatal(err)
	}

	flip := func(i int) []byte {
		b := append([]byte(nil), good...)
		b[i] ^= 0xFF
		return b
	}
	// resign recomputes the checksum so the decoder reaches body parsing.
	resign := func(b []byte) []byte {
		sum := crc32.ChecksumIEEE(b[:len(b)-FooterSize])
		binary.LittleEndian.PutUint32(b[len(b)-FooterSize:], sum)
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"header only", good[:HeaderSize]},
		{"truncated body", good[:len(good)-20]},
		{"bad magic", flip(0)},
		{"bad version", flip(4)},
		{"bad footer magic", flip(len(good) - 1)},
		{"flipped body byte", flip(HeaderSize + 5)},
		{"flipped checksum", flip(len(good) - FooterSize)},
		{"unknown compression", resign(flip(8))},
		{"entry count too high", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[12:16], 5)
			return resign(b)
		}()},
		{"entry count too low", func() []byte {
			b := append([]byte(nil), good...)
			binary.LittleEndian.PutUint32(b[12:16], 1)
			return resign(b)
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coll, err := Decode(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, herrors.ErrCodec) {
				t.Errorf("error %v does not match ErrCodec", err)
			}
			if coll.Entries != nil {
				t.Error("a failed decode must not return entries")
			}
		})
	}
}

func TestDecodeRejectsInvalidEntry(t *testing.T) {
	bad := makeEntry("bad.txt", "abc")
	bad.Occurrences['a'][1] = 7
	data, err := Encode(index.NewCollection([]index.IndexEntry{bad}), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data); !errors.Is(err, herrors.ErrCodec) {
		t.Errorf("Decode = %v, want ErrCodec", err)
	}
}

func TestRoundTripOpaqueFilenames(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{"latin-1 byte", "caf\xe9.txt"},
		{"embedded nul", "a\x00b.txt"},
		{"lone continuation", "\x80\xbf"},
		{"truncated rune", "docs/\xe6\x97.txt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := index.NewCollection([]index.IndexEntry{
				makeEntry(tt.filename, "cat and bat", "cat", "bat"),
			})
			for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
				data, err := Encode(want, Options{Compression: c})
				if err != nil {
					t.Fatalf("%s: Encode: %v", c, err)
				}
				got, err := Decode(data)
				if err != nil {
					t.Fatalf("%s: Decode: %v", c, err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Errorf("%s: filename %q came back as %q", c, tt.filename, got.Entries[0].Filename)
				}
			}

			path := filepath.Join(t.TempDir(), "index.bin")
			if _, err := Save(want, path, Options{Compression: CompressionZSTD}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load of just-saved index: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load = %+v, want %+v", got, want)
			}
		})
	}
}

func TestDecodeRejectsInvalidUTF8Text(t *testing.T) {
	data, err := Encode(index.NewCollection([]index.IndexEntry{makeEntry("x", "ab")}), Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Body: filename (len 1, "x"), then the bwt length and its first byte.
	bwt := HeaderSize + 3
	if data[bwt-1] != 3 {
		t.Fatalf("unexpected layout: bwt length byte = %d", data[bwt-1])
	}
	data[bwt] = 0xFF
	sum := crc32.ChecksumIEEE(data[:len(data)-FooterSize])
	binary.LittleEndian.PutUint32(data[len(data)-FooterSize:], sum)

	if _, err := Decode(data); !errors.Is(err, herrors.ErrCodec) {
		t.Errorf("Decode = %v, want ErrCodec", err)
	}
}

func TestDecodeCompressedTruncation(t *testing.T) {
	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		data, err := Encode(sampleCollection(), Options{Compression: c})
		if err != nil {
			t.Fatal(err)
		}
		for cut := 1; cut < len(data); cut += 7 {
			if _, err := Decode(data[:cut]); !errors.Is(err, herrors.ErrCodec) {
				t.Fatalf("%s cut at %d: err = %v, want ErrCodec", c, cut, err)
			}
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.bin")
	want := index.NewCollection([]index.IndexEntry{
		makeEntry("one.txt", "The quick fox runs.", "quick", "fox", "runs"),
	})

	n, err := Save(want, path, Options{Compression: CompressionZSTD})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != n {
		t.Errorf("Save reported %d bytes, file has %d", n, st.Size())
	}
	for _, leftover := range []string{path + ".tmp", path + ".lock"} {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after Save", leftover)
		}
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSaveReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	first := index.NewCollection([]index.IndexEntry{makeEntry("a.txt", "alpha", "alpha")})
	second := index.NewCollection([]index.IndexEntry{makeEntry("b.txt", "beta", "beta")})
	if _, err := Save(first, path, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := Save(second, path, Options{Compression: CompressionLZ4}); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("got %+v, want the second collection", got)
	}
}

func TestSaveLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	if err := os.WriteFile(path+".lock", []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Save(sampleCollection(), path, Options{})
	if !errors.Is(err, herrors.ErrLocked) {
		t.Fatalf("Save = %v, want ErrLocked", err)
	}
	if !errors.Is(err, herrors.ErrIO) {
		t.Errorf("lock error should be an IO error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a locked Save must not create the index file")
	}
}

func TestConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	coll := sampleCollection()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Save(coll, path, Options{Compression: CompressionZSTD})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, herrors.ErrLocked):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatal("no Save succeeded")
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, coll) {
		t.Error("file written by concurrent saves does not decode to the collection")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	if !errors.Is(err, herrors.ErrIO) {
		t.Fatalf("Load = %v, want ErrIO", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load error should unwrap to os.ErrNotExist: %v", err)
	}
}

func TestLoadPartialFile(t *testing.T) {
	data, err := Encode(sampleCollection(), Options{Compression: CompressionZSTD})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "partial.bin")
	if err := os.WriteFile(path, data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, herrors.ErrCodec) {
		t.Errorf("Load = %v, want ErrCodec", err)
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"lz4":  CompressionLZ4,
		"ZSTD": CompressionZSTD,
	}
	for in, want := range tests {
		got, err := ParseCompression(in)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("expected error for gzip")
	}
}

func BenchmarkEncodeZSTD(b *testing.B) {
	coll := sampleCollection()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(coll, Options{Compression: CompressionZSTD}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeZSTD(b *testing.B) {
	data, err := Encode(sampleCollection(), Options{Compression: CompressionZSTD})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}
