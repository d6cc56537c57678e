package godbf

import "math"

const (
	SPACE      = 0x20
	EOF        = 0x1A
	NUL        = 0x00
	DELETED    = '*'
	TERMINATOR = 0x0D

	headerSize     = 32
	descriptorSize = 32

	memoBlockSize  = 512
	memoMaxScan    = 64 * 1024
	memoMaxBlocks  = (1 << 31) / memoBlockSize
	memoFirstBlock = 1
	maxRecordCount = math.MaxInt32
)

// Table file signatures. The high bit announces a memo file.
const (
	signatureDBase3     byte = 0x03
	signatureDBase4     byte = 0x04
	signatureDBase3Memo byte = 0x83
	signatureDBase4Memo byte = 0x8B
)

// dbfHeader is the fixed 32 byte table header.
type dbfHeader struct {
	Version         byte
	LastUpdateYear  byte
	LastUpdateMonth byte
	LastUpdateDay   byte
	NumRecords      uint32
	HeaderLength    uint16
	RecordLength    uint16
	Reserved        [20]byte
}

// fieldDescriptor is one 32 byte entry of the field list. Character fields
// store a 16 bit length in Length and Decimal.
type fieldDescriptor struct {
	Name      [11]byte
	Type      byte
	Reserved1 [4]byte
	Length    byte
	Decimal   byte
	Reserved2 [14]byte
}

func (d *fieldDescriptor) length() int {
	if FieldType(d.Type) == Character {
		return int(d.Length) | int(d.Decimal)<<8
	}
	return int(d.Length)
}

func (d *fieldDescriptor) precision() int {
	if FieldType(d.Type) == Character {
		return 0
	}
	return int(d.Decimal)
}

func newFieldDescriptor(f Field) fieldDescriptor {
	var d fieldDescriptor
	copy(d.Name[:MaxFieldNameLength], f.name)
	d.Type = byte(f.typ)
	if f.typ == Character {
		d.Length = byte(f.length)
		d.Decimal = byte(f.length >> 8)
	} else {
		d.Length = byte(f.length)
		d.Decimal = byte(f.precision)
	}
	return d
}

func signatureFor(d Dialect, memo bool) byte {
	switch {
	case d == DBase4 && memo:
		return signatureDBase4Memo
	case d == DBase4:
		return signatureDBase4
	case memo:
		return signatureDBase3Memo
	}
	return signatureDBase3
}

// parseSignature returns the dialect of a signature byte and whether a memo
// file belongs to the table.
func parseSignature(b byte) (Dialect, bool, bool) {
	switch b {
	case signatureDBase3:
		return DBase3, false, true
	case signatureDBase3Memo:
		return DBase3, true, true
	case signatureDBase4:
		return DBase4, false, true
	case signatureDBase4Memo:
		return DBase4, true, true
	}
	return DialectAuto, false, false
}
