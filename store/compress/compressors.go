package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

func init() {
	registerCompressor(Zstd{})
	registerCompressor(Flate{})
}

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	zenc, _ = zstd.NewWriter(nil)
	zdec, _ = zstd.NewReader(nil)
)

// Zstd is a Compressor implementing Zstandard compression.
type Zstd struct{}

// ID implements Compressor.ID.
func (Zstd) ID() byte { return 1 }

// Compress implements Compressor.Compress.
func (Zstd) Compress(inp []byte) ([]byte, error) {
	return zenc.EncodeAll(inp, nil), nil
}

// Uncompress implements Compressor.Uncompress.
func (Zstd) Uncompress(inp []byte) ([]byte, error) {
	return zdec.DecodeAll(inp, nil)
}

// Flate is a Compressor implementing RFC1951 DEFLATE compression.
type Flate struct {
	Level int
}

// ID implements Compressor.ID.
func (Flate) ID() byte { return 2 }

// Compress implements Compressor.Compress.
func (f Flate) Compress(inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w, err := flate.NewWriter(buf, f.Level)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(inp); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Uncompress implements Compressor.Uncompress.
func (Flate) Uncompress(inp []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(inp))
	defer r.Close()
	return io.ReadAll(r)
}
