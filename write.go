package godbf

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SetString stores s in character or memo field i. Character values are
// cut to the field width; memo values are written to the memo file.
func (s *Store) SetString(i int, str string) error {
	f, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	switch f.typ {
	case Character:
		fill(raw, s.encoding.Encode(str), false)
	case Memo:
		if err := s.setMemo(i, raw, s.encoding.Encode(str)); err != nil {
			return err
		}
	default:
		return &FieldTypeError{Field: f.name, Type: f.typ, Access: "SetString"}
	}
	s.touch()
	return nil
}

func (s *Store) SetInt(i int, v int32) error {
	return s.SetDecimal(i, decimal.NewFromInt32(v))
}

func (s *Store) SetLong(i int, v int64) error {
	return s.SetDecimal(i, decimal.NewFromInt(v))
}

func (s *Store) SetFloat(i int, v float32) error {
	return s.setFloat(i, float64(v), 32)
}

func (s *Store) SetDouble(i int, v float64) error {
	return s.setFloat(i, v, 64)
}

// SetDecimal stores d in numeric field i, rounded to the field precision and
// right aligned. Values wider than the field fail with ErrOutOfRange.
func (s *Store) SetDecimal(i int, d decimal.Decimal) error {
	f, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	if !f.isNumber() {
		return &FieldTypeError{Field: f.name, Type: f.typ, Access: "SetDecimal"}
	}
	if err := putNumber(f, raw, d.StringFixed(int32(f.precision))); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Store) setFloat(i int, v float64, bitSize int) error {
	f, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	if !f.isNumber() {
		return &FieldTypeError{Field: f.name, Type: f.typ, Access: "SetDouble"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v cannot be stored in field %s", ErrOutOfRange, v, f.name)
	}
	if err := putNumber(f, raw, strconv.FormatFloat(v, 'f', f.precision, bitSize)); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Store) SetBool(i int, b bool) error {
	f, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	if f.typ != Logical {
		return &FieldTypeError{Field: f.name, Type: f.typ, Access: "SetBool"}
	}
	raw[0] = 'F'
	if b {
		raw[0] = 'T'
	}
	s.touch()
	return nil
}

// SetDate stores the calendar day of t. The zero time clears the field.
func (s *Store) SetDate(i int, t time.Time) error {
	f, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	if f.typ != Date {
		return &FieldTypeError{Field: f.name, Type: f.typ, Access: "SetDate"}
	}
	if t.IsZero() {
		fill(raw, nil, false)
	} else {
		if y := t.Year(); y < 0 || y > 9999 {
			return fmt.Errorf("%w: year %d", ErrOutOfRange, y)
		}
		copy(raw, t.Format(dateLayout))
	}
	s.touch()
	return nil
}

// SetNull blanks field i. A memo field loses its block reference; the blocks
// themselves are left in the memo file.
func (s *Store) SetNull(i int) error {
	_, raw, err := s.writableField(i)
	if err != nil {
		return err
	}
	fill(raw, nil, false)
	delete(s.memoLens, i)
	s.touch()
	return nil
}

// SetValue stores v in field i, converting it to the field type first.
func (s *Store) SetValue(i int, v Value) error {
	f, _, err := s.writableField(i)
	if err != nil {
		return err
	}
	cv, err := v.convert(f)
	if err != nil {
		return fmt.Errorf("%w: field %s: %v", ErrFieldType, f.name, err)
	}
	switch cv.kind {
	case KindNull:
		return s.SetNull(i)
	case KindString:
		if cv.str == "" && f.typ == Memo {
			return s.SetNull(i)
		}
		return s.SetString(i, cv.str)
	case KindInteger, KindLong:
		return s.SetLong(i, cv.num)
	case KindDecimal:
		return s.SetDecimal(i, cv.dec)
	case KindBoolean:
		return s.SetBool(i, cv.b)
	case KindDate:
		return s.SetDate(i, cv.t)
	}
	return fmt.Errorf("%w: unknown value kind %s", ErrFieldType, cv.kind)
}

func (s *Store) SetValueByName(name string, v Value) error {
	i, err := s.Index(name)
	if err != nil {
		return err
	}
	return s.SetValue(i, v)
}

func (s *Store) writableField(i int) (Field, []byte, error) {
	if err := s.checkWritable(); err != nil {
		return Field{}, nil, err
	}
	return s.field(i)
}

// setMemo writes data for memo field i and stores the block number in raw.
func (s *Store) setMemo(i int, raw, data []byte) error {
	f := s.schema.fields[i]
	if len(data) == 0 {
		fill(raw, nil, false)
		s.memoLens[i] = 0
		return nil
	}
	if s.memo == nil {
		return fmt.Errorf("%w: field %s", ErrMissingMemo, f.name)
	}
	old, err := memoPointer(raw)
	if err != nil {
		old = 0
	}
	block, err := s.writeMemo(old, data)
	if err != nil {
		return err
	}
	fill(raw, []byte(strconv.Itoa(block)), true)
	s.memoLens[i] = len(data)
	return nil
}

func putNumber(f Field, raw []byte, text string) error {
	if len(text) > f.length {
		return fmt.Errorf("%w: %s does not fit field %s", ErrOutOfRange, text, f)
	}
	fill(raw, []byte(text), true)
	return nil
}

// fill writes val into raw padded with blanks, left or right aligned.
func fill(raw, val []byte, right bool) {
	if len(val) > len(raw) {
		val = val[:len(raw)]
	}
	pad := len(raw) - len(val)
	if right {
		for i := 0; i < pad; i++ {
			raw[i] = SPACE
		}
		copy(raw[pad:], val)
		return
	}
	n := copy(raw, val)
	for i := n; i < len(raw); i++ {
		raw[i] = SPACE
	}
}

// flushRecord writes the current record back to its slot if it changed. A
// freshly appended record is followed by the end of file marker.
func (s *Store) flushRecord() error {
	if s.position == 0 || !s.recordModified {
		return nil
	}
	off := s.recordOffset(s.position)
	if s.appending {
		buf := make([]byte, len(s.record)+1)
		copy(buf, s.record)
		buf[len(s.record)] = EOF
		if _, err := s.dbf.WriteAt(buf, off); err != nil {
			return fmt.Errorf("write record %d: %w", s.position, err)
		}
	} else if _, err := s.dbf.WriteAt(s.record, off); err != nil {
		return fmt.Errorf("write record %d: %w", s.position, err)
	}
	s.appending = false
	s.recordModified = false
	return nil
}

// flushHeader rewrites the update date and record count, and the memo block
// count, when the table changed since the last flush.
func (s *Store) flushHeader() error {
	if !s.tableModified {
		return nil
	}
	y, m, d := s.cfg.now().Date()
	s.header.LastUpdateYear = byte(y - 1900)
	s.header.LastUpdateMonth = byte(m)
	s.header.LastUpdateDay = byte(d)
	var b [7]byte
	b[0] = s.header.LastUpdateYear
	b[1] = s.header.LastUpdateMonth
	b[2] = s.header.LastUpdateDay
	binary.LittleEndian.PutUint32(b[3:], s.header.NumRecords)
	if _, err := s.dbf.WriteAt(b[:], 1); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if s.memo != nil {
		if err := s.flushMemoHeader(); err != nil {
			return err
		}
	}
	s.tableModified = false
	debugf("flushed header: %d records, %d memo blocks", s.header.NumRecords, s.memoBlocks)
	return nil
}
