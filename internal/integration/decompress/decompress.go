// Package decompress opens log files, transparently decompressing them based on their extension.
package decompress

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/farcloser/primordium/fault"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression applied to a log file.
type Codec int

const (
	CodecNone Codec = iota
	CodecGzip
	CodecLZ4
	CodecZstd
	CodecXZ
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	case CodecXZ:
		return "xz"
	}

	return "unknown"
}

// Extensions lists the compressed suffixes recognized after ".log".
//
//nolint:gochecknoglobals // effectively const
var Extensions = []string{".gz", ".lz4", ".zst", ".xz"}

// CodecFor returns the codec implied by the file name.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CodecGzip
	case ".lz4":
		return CodecLZ4
	case ".zst":
		return CodecZstd
	case ".xz":
		return CodecXZ
	default:
		return CodecNone
	}
}

// IsLogFile reports whether path names a plain or compressed log file.
func IsLogFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".log") {
		return true
	}

	for _, ext := range Extensions {
		if strings.HasSuffix(name, ".log"+ext) {
			return true
		}
	}

	return false
}

// Open opens path and returns a reader over its decompressed content.
// The caller must Close the returned reader.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	codec := CodecFor(path)

	slog.Debug("decompress.Open", "path", path, "codec", codec.String())

	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified log files
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	switch codec {
	case CodecGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()

			return nil, fmt.Errorf("%w: gzip header: %w", fault.ErrReadFailure, err)
		}

		return &stackedReader{Reader: gz, closers: []io.Closer{gz, file}}, nil
	case CodecLZ4:
		return &stackedReader{Reader: lz4.NewReader(file), closers: []io.Closer{file}}, nil
	case CodecZstd:
		return external(ctx, zstdBinary, file)
	case CodecXZ:
		return external(ctx, xzBinary, file)
	case CodecNone:
	}

	return file, nil
}

// stackedReader closes every layer of a decoder stack, innermost last.
type stackedReader struct {
	io.Reader

	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var first error

	for _, closer := range s.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
