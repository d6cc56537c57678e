package godbf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "20060102"

// GetRaw returns a copy of the stored bytes of field i.
func (s *Store) GetRaw(i int) ([]byte, error) {
	if err := s.checkRecord(); err != nil {
		return nil, err
	}
	_, raw, err := s.field(i)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(raw), nil
}

// GetString returns the text of field i. Character fields lose their
// trailing blanks, memo fields are read from the memo file and other types
// return their stored text without surrounding blanks.
func (s *Store) GetString(i int) (string, error) {
	if err := s.checkRecord(); err != nil {
		return "", err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return "", err
	}
	switch f.typ {
	case Character:
		return s.encoding.Decode(rightTrim(raw)), nil
	case Memo:
		b, err := s.memoValue(i, raw)
		if err != nil {
			return "", err
		}
		return s.encoding.Decode(b), nil
	}
	return string(trim(raw)), nil
}

// GetInt returns numeric field i as int32. Blank fields read as 0 and
// decimals are truncated.
func (s *Store) GetInt(i int) (int32, error) {
	n, err := s.GetLong(i)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		f, raw, _ := s.field(i)
		return 0, s.valueError(f, raw, strconv.ErrRange)
	}
	return int32(n), nil
}

// GetLong returns numeric field i as int64. Blank fields read as 0 and
// decimals are truncated.
func (s *Store) GetLong(i int) (int64, error) {
	d, ok, err := s.number(i, "GetLong")
	if err != nil || !ok {
		return 0, err
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
		f, raw, _ := s.field(i)
		return 0, s.valueError(f, raw, strconv.ErrRange)
	}
	return d.IntPart(), nil
}

func (s *Store) GetFloat(i int) (float32, error) {
	v, err := s.float(i, 32, "GetFloat")
	return float32(v), err
}

func (s *Store) GetDouble(i int) (float64, error) {
	return s.float(i, 64, "GetDouble")
}

// GetDecimal returns numeric field i exactly as stored. Blank fields read
// as zero.
func (s *Store) GetDecimal(i int) (decimal.Decimal, error) {
	d, _, err := s.number(i, "GetDecimal")
	return d, err
}

// GetBool returns logical field i. Indeterminate values read as false; use
// GetValue to tell them apart.
func (s *Store) GetBool(i int) (bool, error) {
	v, err := s.logical(i, "GetBool")
	if err != nil || v == nil {
		return false, err
	}
	return *v, nil
}

// GetDate returns date field i. Blank dates read as the zero time.
func (s *Store) GetDate(i int) (time.Time, error) {
	if err := s.checkRecord(); err != nil {
		return time.Time{}, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return time.Time{}, err
	}
	if f.typ != Date {
		return time.Time{}, &FieldTypeError{Field: f.name, Type: f.typ, Access: "GetDate"}
	}
	text := trim(raw)
	if len(text) == 0 {
		return time.Time{}, nil
	}
	t, err := parseDate(string(text))
	if err != nil {
		return time.Time{}, s.valueError(f, raw, err)
	}
	return t, nil
}

// GetValue returns field i as a tagged value. Blank numeric, logical and
// date fields are Null; character and memo fields are always strings.
func (s *Store) GetValue(i int) (Value, error) {
	if err := s.checkRecord(); err != nil {
		return Value{}, err
	}
	f, _, err := s.field(i)
	if err != nil {
		return Value{}, err
	}
	switch f.typ {
	case Character, Memo:
		str, err := s.GetString(i)
		if err != nil {
			return Value{}, err
		}
		return StringValue(str), nil
	case Numeric, Float:
		d, ok, err := s.number(i, "GetValue")
		if err != nil || !ok {
			return Null(), err
		}
		return numericValue(f, d), nil
	case Logical:
		b, err := s.logical(i, "GetValue")
		if err != nil || b == nil {
			return Null(), err
		}
		return BoolValue(*b), nil
	case Date:
		t, err := s.GetDate(i)
		if err != nil || t.IsZero() {
			return Null(), err
		}
		return DateValue(t), nil
	}
	return Value{}, &FieldTypeError{Field: f.name, Type: f.typ, Access: "GetValue"}
}

func (s *Store) GetValueByName(name string) (Value, error) {
	i, err := s.Index(name)
	if err != nil {
		return Value{}, err
	}
	return s.GetValue(i)
}

// IsNull reports whether field i is blank.
func (s *Store) IsNull(i int) (bool, error) {
	if err := s.checkRecord(); err != nil {
		return false, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return false, err
	}
	if f.typ == Logical {
		v, _ := parseLogical(raw[0])
		return v == nil, nil
	}
	return len(trim(raw)) == 0 || isZeroPointer(f, raw), nil
}

// GetLength returns the used length in bytes of field i: the trimmed width
// of a character field or the stored size of a memo value. Memo sizes are
// cached until the cursor moves or the field is written.
func (s *Store) GetLength(i int) (int, error) {
	if err := s.checkRecord(); err != nil {
		return 0, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return 0, err
	}
	switch f.typ {
	case Character:
		return len(rightTrim(raw)), nil
	case Memo:
		if n, ok := s.memoLens[i]; ok {
			return n, nil
		}
		b, err := s.memoValue(i, raw)
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}
	return len(trim(raw)), nil
}

func (s *Store) float(i, bitSize int, access string) (float64, error) {
	if err := s.checkRecord(); err != nil {
		return 0, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return 0, err
	}
	if !f.isNumber() {
		return 0, &FieldTypeError{Field: f.name, Type: f.typ, Access: access}
	}
	text := trim(raw)
	if len(text) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseFloat(string(text), bitSize)
	if err != nil {
		return 0, s.valueError(f, raw, err)
	}
	return v, nil
}

// number parses numeric field i. ok is false for a blank field.
func (s *Store) number(i int, access string) (d decimal.Decimal, ok bool, err error) {
	if err := s.checkRecord(); err != nil {
		return decimal.Zero, false, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !f.isNumber() {
		return decimal.Zero, false, &FieldTypeError{Field: f.name, Type: f.typ, Access: access}
	}
	text := trim(raw)
	if len(text) == 0 {
		return decimal.Zero, false, nil
	}
	d, err = parseNumber(string(text), f.typ == Float)
	if err != nil {
		return decimal.Zero, false, s.valueError(f, raw, err)
	}
	return d, true, nil
}

// logical decodes logical field i; nil means indeterminate.
func (s *Store) logical(i int, access string) (*bool, error) {
	if err := s.checkRecord(); err != nil {
		return nil, err
	}
	f, raw, err := s.field(i)
	if err != nil {
		return nil, err
	}
	if f.typ != Logical {
		return nil, &FieldTypeError{Field: f.name, Type: f.typ, Access: access}
	}
	v, ok := parseLogical(raw[0])
	if !ok {
		return nil, s.valueError(f, raw, fmt.Errorf("invalid logical byte 0x%02X", raw[0]))
	}
	return v, nil
}

func (s *Store) valueError(f Field, raw []byte, err error) error {
	return &ValueFormatError{Row: s.position, Field: f.name, Type: f.typ, Raw: bytes.Clone(raw), Err: err}
}

var (
	logicalTrue  = true
	logicalFalse = false
)

// parseLogical returns nil for an indeterminate value and ok=false for a
// byte that is not a logical value at all.
func parseLogical(c byte) (*bool, bool) {
	switch c {
	case 'T', 't', 'Y', 'y':
		return &logicalTrue, true
	case 'F', 'f', 'N', 'n':
		return &logicalFalse, true
	case SPACE, '?', NUL:
		return nil, true
	}
	return nil, false
}

func parseDate(s string) (time.Time, error) {
	if len(s) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("date %q is not YYYYMMDD", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, fmt.Errorf("date %q is not YYYYMMDD", s)
		}
	}
	return time.Parse(dateLayout, s)
}

// parseNumber accepts an optional sign, digits and a '.' separator. With
// exp set an exponent such as "E+03" may follow, as float fields carry.
func parseNumber(s string, exp bool) (decimal.Decimal, error) {
	mantissa := s
	if i := strings.IndexAny(s, "eE"); exp && i >= 0 {
		mantissa = s[:i]
		e := strings.TrimLeft(s[i+1:], "+-")
		if len(s[i+1:])-len(e) > 1 || !allDigits(e) {
			return decimal.Zero, fmt.Errorf("invalid numeric text %q", s)
		}
	}
	digits := 0
	for i := 0; i < len(mantissa); i++ {
		c := mantissa[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
		case (c == '-' || c == '+') && i == 0:
		default:
			return decimal.Zero, fmt.Errorf("invalid numeric text %q", s)
		}
	}
	if digits == 0 {
		return decimal.Zero, fmt.Errorf("invalid numeric text %q", s)
	}
	return decimal.NewFromString(strings.TrimPrefix(s, "+"))
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// rightTrim drops trailing blanks. A leading NUL marks an empty value, as
// written by some non-conforming tools.
func rightTrim(raw []byte) []byte {
	if len(raw) == 0 || raw[0] == NUL {
		return nil
	}
	return bytes.TrimRight(raw, " \x00")
}

func trim(raw []byte) []byte {
	if len(raw) == 0 || raw[0] == NUL {
		return nil
	}
	return bytes.Trim(raw, " \x00")
}
