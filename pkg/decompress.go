package pkg

import (
	"bufio"
	"compress/zlib"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// CompressionFormat enumerates the algorithms C2 can detect and wrap.
// Modeled on nabbar-golib's archive/compress Algorithm enum (detect,
// extension table, Reader/Writer factory methods).
type CompressionFormat int

const (
	CompressionAuto CompressionFormat = iota
	CompressionNone
	CompressionGzip
	CompressionZlib
	CompressionDeflate
	CompressionBrotli
)

func (f CompressionFormat) String() string {
	switch f {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionDeflate:
		return "deflate"
	case CompressionBrotli:
		return "brotli"
	default:
		return "auto"
	}
}

// Extension returns the conventional file suffix for the format, or ""
// for None/Auto.
func (f CompressionFormat) Extension() string {
	switch f {
	case CompressionGzip:
		return ".gz"
	case CompressionDeflate:
		return ".deflate"
	case CompressionZlib:
		return ".zlib"
	case CompressionBrotli:
		return ".br"
	default:
		return ""
	}
}

// formatByExtension implements detection step (ii): path extension
// match, per spec section 4.1.
func formatByExtension(path string) CompressionFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".deflate":
		return CompressionDeflate
	case ".br":
		return CompressionBrotli
	case ".zlib":
		return CompressionZlib
	default:
		return CompressionAuto
	}
}

// detectMagic implements detection step (iii): a magic-byte probe on
// the first few bytes of the stream.
func detectMagic(head []byte) CompressionFormat {
	if len(head) >= 2 && head[0] == 0x1F && head[1] == 0x8B {
		return CompressionGzip
	}
	if len(head) >= 2 && head[0] == 0x78 {
		switch head[1] {
		case 0x01, 0x5E, 0x9C, 0xDA:
			return CompressionZlib
		}
	}
	return CompressionNone
}

// resolveFormat applies the three-step detection order from spec
// section 4.1: caller-supplied format, path extension, magic bytes.
func resolveFormat(cfg *Config, head []byte) CompressionFormat {
	if cfg.CompressionFormat != CompressionAuto {
		return cfg.CompressionFormat
	}
	if cfg.SourcePath != "" {
		if f := formatByExtension(cfg.SourcePath); f != CompressionAuto {
			return f
		}
	}
	return detectMagic(head)
}

// openDecompressed wraps src with the appropriate decompressor (or
// passes it through unchanged) and layers the decompressed-size guard
// on top. It peeks a handful of bytes to run magic-byte detection
// without consuming them from the caller's point of view.
func openDecompressed(src io.Reader, cfg *Config) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(src, 64)
	head, _ := br.Peek(6)
	format := resolveFormat(cfg, head)

	var inner io.Reader = br
	var closer io.Closer

	switch format {
	case CompressionNone, CompressionAuto:
		return &guardedReader{r: br, limit: cfg.MaxDecompressedSize}, nil
	case CompressionGzip:
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, &Fault{Kind: KindIo, Cause: errors.Wrap(err, "opening gzip stream")}
		}
		inner, closer = gz, gz
	case CompressionZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, &Fault{Kind: KindIo, Cause: errors.Wrap(err, "opening zlib stream")}
		}
		inner, closer = zr, zr
	case CompressionDeflate:
		fr := flate.NewReader(br)
		inner, closer = fr, fr
	case CompressionBrotli:
		inner = brotli.NewReader(br)
	default:
		return nil, &Fault{Kind: KindIo, Cause: errors.Errorf("unsupported compression format %v", format)}
	}

	return &guardedReader{r: inner, closer: closer, limit: cfg.MaxDecompressedSize}, nil
}

// guardedReader counts bytes delivered downstream and raises
// KindDecompressionBomb once the configured ceiling is exceeded,
// implementing C2's decompression-bomb guard. A limit of 0 disables
// the guard, per spec section 4.1.
type guardedReader struct {
	r       io.Reader
	closer  io.Closer
	limit   int64
	emitted int64
}

func (g *guardedReader) Read(p []byte) (int, error) {
	if g.limit > 0 && g.emitted > g.limit {
		return 0, &Fault{Kind: KindDecompressionBomb, Cause: errors.Errorf("decompressed size exceeds limit of %d bytes", g.limit)}
	}
	n, err := g.r.Read(p)
	g.emitted += int64(n)
	if g.limit > 0 && g.emitted > g.limit {
		return n, &Fault{Kind: KindDecompressionBomb, Cause: errors.Errorf("decompressed size exceeds limit of %d bytes", g.limit)}
	}
	return n, err
}

func (g *guardedReader) Close() error {
	if g.closer != nil {
		return g.closer.Close()
	}
	return nil
}
