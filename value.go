package godbf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindLong
	KindDecimal
	KindBoolean
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindLong:
		return "long"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a field value of one of the kinds above. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  int64
	dec  decimal.Decimal
	b    bool
	t    time.Time
}

func Null() Value { return Value{} }
func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func IntegerValue(v int32) Value { return Value{kind: KindInteger, num: int64(v)} }
func LongValue(v int64) Value { return Value{kind: KindLong, num: v} }
func DecimalValue(d decimal.Decimal) Value { return Value{kind: KindDecimal, dec: d} }
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// DateValue keeps only the calendar day of t.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsInteger() (int32, bool) { return int32(v.num), v.kind == KindInteger }
func (v Value) AsLong() (int64, bool) { return v.num, v.kind == KindLong || v.kind == KindInteger }
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }
func (v Value) AsDate() (time.Time, bool) { return v.t, v.kind == KindDate }

func (v Value) AsDecimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.dec, true
	case KindInteger, KindLong:
		return decimal.NewFromInt(v.num), true
	}
	return decimal.Zero, false
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInteger, KindLong:
		return v.num == o.num
	case KindDecimal:
		return v.dec.Equal(o.dec)
	case KindBoolean:
		return v.b == o.b
	case KindDate:
		return v.t.Equal(o.t)
	}
	return false
}

// String renders the value the way it is stored, without padding.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindInteger, KindLong:
		return strconv.FormatInt(v.num, 10)
	case KindDecimal:
		return v.dec.String()
	case KindBoolean:
		if v.b {
			return "T"
		}
		return "F"
	case KindDate:
		return v.t.Format(dateLayout)
	}
	return ""
}

// Interface returns the value as a plain Go value for encoders such as JSON.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger, KindLong:
		return v.num
	case KindDecimal:
		return v.dec
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t.Format(time.DateOnly)
	}
	return nil
}

// convert turns v into the natural kind for field f. Strings are parsed, so a
// value read from any field type can be written to any other.
func (v Value) convert(f Field) (Value, error) {
	if v.kind == KindNull {
		return v, nil
	}
	switch f.typ {
	case Character, Memo:
		if v.kind == KindString {
			return v, nil
		}
		return StringValue(v.String()), nil
	case Numeric, Float:
		switch v.kind {
		case KindInteger, KindLong, KindDecimal:
			return v, nil
		case KindBoolean:
			if v.b {
				return LongValue(1), nil
			}
			return LongValue(0), nil
		case KindString, KindDate:
			s := strings.TrimSpace(v.String())
			if s == "" {
				return Null(), nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return Value{}, err
			}
			return DecimalValue(d), nil
		}
	case Logical:
		switch v.kind {
		case KindBoolean:
			return v, nil
		case KindInteger, KindLong:
			return BoolValue(v.num != 0), nil
		case KindDecimal:
			return BoolValue(!v.dec.IsZero()), nil
		case KindString:
			s := strings.TrimSpace(v.str)
			if s == "" {
				return Null(), nil
			}
			b, ok := parseLogical(s[0])
			if !ok {
				return Value{}, fmt.Errorf("not a logical value: %q", s)
			}
			if b == nil {
				return Null(), nil
			}
			return BoolValue(*b), nil
		}
	case Date:
		switch v.kind {
		case KindDate:
			return v, nil
		case KindString:
			s := strings.TrimSpace(v.str)
			if s == "" {
				return Null(), nil
			}
			t, err := parseDate(s)
			if err != nil {
				return Value{}, err
			}
			return DateValue(t), nil
		}
	}
	return Value{}, fmt.Errorf("cannot convert %s to field type %c", v.kind, byte(f.typ))
}

// numericValue picks the narrowest kind able to hold a value of field f.
func numericValue(f Field, d decimal.Decimal) Value {
	if f.typ == Numeric && f.precision == 0 && d.IsInteger() {
		n := d.IntPart()
		if f.length <= 9 && n >= math.MinInt32 && n <= math.MaxInt32 {
			return IntegerValue(int32(n))
		}
		if f.length <= 18 {
			return LongValue(n)
		}
	}
	return DecimalValue(d)
}
