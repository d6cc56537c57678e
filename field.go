package godbf

import "fmt"

// FieldType is the one byte type tag stored in a field descriptor.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	Logical   FieldType = 'L'
	Date      FieldType = 'D'
	Memo      FieldType = 'M'
	Float     FieldType = 'F'
)

const (
	MaxFieldNameLength = 10
	maxCharLength      = 0xFFFF - 1
	maxNumericLength   = 20
	dateLength         = 8
	logicalLength      = 1
	memoLength         = 10
)

// Dialect selects the dBase flavour a schema is written for.
type Dialect int

const (
	// DialectAuto picks dBase III, or dBase IV when a field needs it.
	DialectAuto Dialect = iota
	DBase2
	DBase3
	DBase4
)

func (d Dialect) String() string {
	switch d {
	case DBase2:
		return "dBase II"
	case DBase3:
		return "dBase III"
	case DBase4:
		return "dBase IV"
	}
	return "auto"
}

// Field describes one column. It is immutable once constructed.
type Field struct {
	name      string
	typ       FieldType
	length    int
	precision int
}

// StringField returns a character field of the given width.
func StringField(name string, length int) (Field, error) {
	return NewField(name, Character, length, 0)
}

func DateField(name string) (Field, error) {
	return NewField(name, Date, dateLength, 0)
}

// IntegerField returns a numeric field without decimals.
func IntegerField(name string, length int) (Field, error) {
	return NewField(name, Numeric, length, 0)
}

func DecimalField(name string, length, precision int) (Field, error) {
	return NewField(name, Numeric, length, precision)
}

func FloatField(name string, length, precision int) (Field, error) {
	return NewField(name, Float, length, precision)
}

func BoolField(name string) (Field, error) {
	return NewField(name, Logical, logicalLength, 0)
}

func MemoField(name string) (Field, error) {
	return NewField(name, Memo, memoLength, 0)
}

// NewField validates and builds a field descriptor.
func NewField(name string, typ FieldType, length, precision int) (Field, error) {
	if err := validateFieldName(name); err != nil {
		return Field{}, err
	}
	if precision < 0 || length < 0 {
		return Field{}, fmt.Errorf("%w: field %s has negative length or precision", ErrOutOfRange, name)
	}
	switch typ {
	case Character:
		if length < 1 || length > maxCharLength {
			return Field{}, fmt.Errorf("%w: character field %s length %d", ErrOutOfRange, name, length)
		}
	case Numeric, Float:
		if length < 1 || length > maxNumericLength {
			return Field{}, fmt.Errorf("%w: numeric field %s length %d", ErrOutOfRange, name, length)
		}
		if precision > 0 && precision > length-2 {
			return Field{}, fmt.Errorf("%w: field %s precision %d does not fit length %d", ErrOutOfRange, name, precision, length)
		}
	case Date:
		length = dateLength
	case Logical:
		length = logicalLength
	case Memo:
		length = memoLength
	default:
		return Field{}, fmt.Errorf("%w: %q", ErrUnsupportedType, byte(typ))
	}
	if precision != 0 && typ != Numeric && typ != Float {
		return Field{}, fmt.Errorf("%w: field %s of type %c cannot have a precision", ErrOutOfRange, name, byte(typ))
	}
	return Field{name: name, typ: typ, length: length, precision: precision}, nil
}

// fieldFromDisk builds a descriptor read from an existing file. Names and
// lengths are taken as stored; unknown type tags read as character fields.
func fieldFromDisk(name string, typ FieldType, length, precision int) Field {
	switch typ {
	case Character, Numeric, Logical, Date, Memo, Float:
	default:
		typ = Character
	}
	if typ == Character {
		precision = 0
	}
	return Field{name: name, typ: typ, length: length, precision: precision}
}

func validateFieldName(name string) error {
	if name == "" || len(name) > MaxFieldNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidFieldName, name)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("%w: %q starts with a digit", ErrInvalidFieldName, name)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return fmt.Errorf("%w: %q contains %q", ErrInvalidFieldName, name, c)
	}
	return nil
}

func (f Field) Name() string { return f.name }
func (f Field) Type() FieldType { return f.typ }
func (f Field) Length() int { return f.length }
func (f Field) Precision() int { return f.precision }
func (f Field) IsZero() bool { return f.name == "" }
func (f Field) String() string { return fmt.Sprintf("%s %c(%d,%d)", f.name, byte(f.typ), f.length, f.precision) }
func (f Field) isNumber() bool { return f.typ == Numeric || f.typ == Float }
func (f Field) isTextual() bool { return f.typ == Character || f.typ == Memo }

// TestDialect reports whether the field type can be stored in dialect d.
func (f Field) TestDialect(d Dialect) error {
	ok := false
	switch f.typ {
	case Character, Numeric, Logical:
		ok = true
	case Date, Memo:
		ok = d != DBase2
	case Float:
		ok = d == DBase4 || d == DialectAuto
	}
	if !ok {
		return fmt.Errorf("%w: field %s type %c is not available in %s", ErrUnsupportedType, f.name, byte(f.typ), d)
	}
	return nil
}
