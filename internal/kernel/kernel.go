package kernel

// Codec detection for compressed kernel payloads.
// R-only: gzip, zstd, lz4, xz, lzma, bzip2
// Names: auto|raw|gzip|gz|zstd|zst|lz4|lzma|bzip2|bz2|xz

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

var ErrUnknownCodec = errors.New("kernel: unknown codec")

// ---------- name helpers ----------

func normalize(name string) string {
	switch name {
	case "", "auto":
		return "auto"
	case "none", "raw":
		return "raw"
	case "gz":
		return "gzip"
	case "zst":
		return "zstd"
	case "bz2":
		return "bzip2"
	default:
		return name
	}
}

// ---------- magic detection (best-effort) ----------

// Detect names the compressor wrapping data, or "raw" when no known
// magic matches. Raw lzma streams carry no reliable signature and must
// be named explicitly.
func Detect(data []byte) string {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		return "gzip"
	}
	if len(data) >= 4 && data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD {
		return "zstd"
	}
	if len(data) >= 4 && data[0] == 0x04 && data[1] == 0x22 && data[2] == 0x4D && data[3] == 0x18 {
		return "lz4"
	}
	if len(data) >= 6 && data[0] == 0xFD && data[1] == '7' && data[2] == 'z' && data[3] == 'X' && data[4] == 'Z' && data[5] == 0x00 {
		return "xz"
	}
	if len(data) >= 3 && data[0] == 'B' && data[1] == 'Z' && data[2] == 'h' {
		return "bzip2"
	}
	return "raw"
}

// ---------- high-level API (buffer-based) ----------

// Unwrap auto-detects the compressor and returns the decompressed
// payload along with the codec name that was applied.
func Unwrap(in []byte) ([]byte, string, error) {
	kind := Detect(in)
	if kind == "raw" {
		return in, "raw", nil
	}
	out, err := Decompress(in, kind)
	return out, kind, err
}

func Decompress(in []byte, name string) ([]byte, error) {
	switch normalize(name) {
	case "raw":
		return in, nil
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case "zstd":
		d, err := zstd.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return io.ReadAll(d)
	case "lz4":
		lr := lz4.NewReader(bytes.NewReader(in))
		return io.ReadAll(lr)
	case "xz":
		xr, err := xz.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(xr)
	case "lzma":
		lr, err := lzma.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(lr)
	case "bzip2":
		br, err := bzip2.NewReader(bytes.NewReader(in), &bzip2.ReaderConfig{})
		if err != nil {
			return nil, err
		}
		defer br.Close()
		return io.ReadAll(br)
	case "auto":
		out, _, err := Unwrap(in)
		return out, err
	default:
		return nil, ErrUnknownCodec
	}
}
