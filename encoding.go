package godbf

import (
	"fmt"
	"strings"

	"github.com/axgle/mahonia"
)

// DefaultEncoding is used when no encoding option is given.
const DefaultEncoding = "windows-1252"

// Encoding converts between Go strings and the code page of a table.
type Encoding struct {
	name       string
	encoder    mahonia.Encoder
	decoder    mahonia.Decoder
	singleByte bool
	utf8       bool
}

// LookupEncoding returns the encoding for a charset name known to mahonia,
// e.g. "windows-1252", "cp850", "koi8-r" or "gbk".
func LookupEncoding(name string) (*Encoding, error) {
	cs := mahonia.GetCharset(name)
	if cs == nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	e := &Encoding{
		name:    cs.Name,
		encoder: cs.NewEncoder(),
		decoder: cs.NewDecoder(),
	}
	e.utf8 = strings.EqualFold(cs.Name, "UTF-8")
	e.singleByte = probeSingleByte(e.decoder)
	return e, nil
}

// probeSingleByte decodes every lead byte on its own. A multi-byte code page
// asks for more input on at least one of them.
func probeSingleByte(dec mahonia.Decoder) bool {
	var p [1]byte
	for i := 0; i < 256; i++ {
		p[0] = byte(i)
		_, size, status := dec(p[:])
		if status == mahonia.NO_ROOM || size != 1 {
			return false
		}
	}
	return true
}

// Name is the canonical charset name. Two encodings with the same name are
// byte compatible.
func (e *Encoding) Name() string { return e.name }

func (e *Encoding) SingleByte() bool { return e.singleByte }

func (e *Encoding) Decode(b []byte) string {
	if e.utf8 {
		return string(b)
	}
	return e.decoder.ConvertString(string(b))
}

func (e *Encoding) Encode(s string) []byte {
	if e.utf8 {
		return []byte(s)
	}
	return []byte(e.encoder.ConvertString(s))
}

func (e *Encoding) sameAs(o *Encoding) bool {
	return strings.EqualFold(e.name, o.name)
}
