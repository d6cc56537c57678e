// Package compress wraps export streams with a compression algorithm.
package compress

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm.
type Type string

const (
	None Type = "none"
	S2   Type = "s2"
	Zstd Type = "zstd"
	LZ4  Type = "lz4"
)

// Parse returns the Type named by s. The empty string means None.
func Parse(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "", None:
		return None, nil
	case S2, Zstd, LZ4:
		return t, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// Ext returns the conventional file extension, including the dot.
func (t Type) Ext() string {
	switch t {
	case S2:
		return ".s2"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	}
	return ""
}

// NewWriter wraps w. Closing the returned writer flushes the compressor but
// does not close w.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None, "":
		return nopCloser{w}, nil
	case S2:
		return s2.NewWriter(w), nil
	case Zstd:
		e, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return e, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown compression %q", t)
}

// NewReader wraps r with the matching decompressor.
func NewReader(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case None, "":
		return io.NopCloser(r), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Zstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unknown compression %q", t)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
