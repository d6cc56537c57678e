package godbf

import (
	"fmt"

	"github.com/axgle/mahonia"
)

// Transcoder maps bytes of one single-byte code page onto another through a
// 256 entry lookup table. The ASCII half is kept as is.
type Transcoder struct {
	table  [256]byte
	direct bool
}

// CanTranscode reports whether a table can be built between src and dst.
func CanTranscode(src, dst *Encoding) bool {
	return src != nil && dst != nil && src.singleByte && dst.singleByte
}

// NewTranscoder builds the lookup table from src to dst. Characters of src
// missing in dst become '?'.
func NewTranscoder(src, dst *Encoding) (*Transcoder, error) {
	if !CanTranscode(src, dst) {
		return nil, fmt.Errorf("%w: cannot transcode between %s and %s", ErrUnsupportedType, src.Name(), dst.Name())
	}
	t := &Transcoder{}
	for i := range t.table {
		t.table[i] = byte(i)
	}
	if src.sameAs(dst) {
		t.direct = true
		return t, nil
	}
	var in [1]byte
	var out [8]byte
	for i := 0x80; i < 0x100; i++ {
		in[0] = byte(i)
		r, _, status := src.decoder(in[:])
		if status != mahonia.SUCCESS {
			t.table[i] = '?'
			continue
		}
		n, status := dst.encoder(out[:], r)
		if status != mahonia.SUCCESS || n != 1 {
			t.table[i] = '?'
			continue
		}
		t.table[i] = out[0]
	}
	return t, nil
}

// IsDirect is true when both sides use the same code page.
func (t *Transcoder) IsDirect() bool { return t.direct }

// Transcode maps n bytes of src starting at srcOff into dst at dstOff.
func (t *Transcoder) Transcode(src []byte, srcOff int, dst []byte, dstOff int, n int) {
	if t.direct {
		copy(dst[dstOff:dstOff+n], src[srcOff:srcOff+n])
		return
	}
	s := src[srcOff : srcOff+n]
	d := dst[dstOff : dstOff+n]
	for i, b := range s {
		d[i] = t.table[b]
	}
}
