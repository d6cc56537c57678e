package godbf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldNames(t *testing.T) {
	_, err := StringField("ABCDEFGHIJ", 5)
	require.NoError(t, err)
	_, err = StringField("ABCDEFGHIJK", 5)
	require.ErrorIs(t, err, ErrInvalidFieldName)
	_, err = StringField("1ST", 5)
	require.ErrorIs(t, err, ErrInvalidFieldName)
	_, err = StringField("", 5)
	require.ErrorIs(t, err, ErrInvalidFieldName)
	_, err = StringField("NA-ME", 5)
	require.ErrorIs(t, err, ErrInvalidFieldName)

	f, err := StringField("_ID_2", 5)
	require.NoError(t, err)
	require.Equal(t, "_ID_2", f.Name())
}

func TestFieldLengths(t *testing.T) {
	tests := []struct {
		name      string
		typ       FieldType
		length    int
		precision int
		ok        bool
	}{
		{"char min", Character, 1, 0, true},
		{"char max", Character, 65534, 0, true},
		{"char zero", Character, 0, 0, false},
		{"char too long", Character, 65535, 0, false},
		{"numeric max", Numeric, 20, 0, true},
		{"numeric too long", Numeric, 21, 0, false},
		{"numeric precision", Numeric, 6, 4, true},
		{"numeric precision too large", Numeric, 6, 5, false},
		{"float", Float, 12, 4, true},
		{"char precision", Character, 10, 2, false},
		{"logical precision", Logical, 1, 1, false},
		{"negative", Numeric, -1, 0, false},
		{"unknown type", FieldType('X'), 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewField("F", tt.typ, tt.length, tt.precision)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestFixedLengthTypes(t *testing.T) {
	d, err := DateField("DAY")
	require.NoError(t, err)
	require.Equal(t, 8, d.Length())
	b, err := BoolField("OK")
	require.NoError(t, err)
	require.Equal(t, 1, b.Length())
	m, err := MemoField("NOTE")
	require.NoError(t, err)
	require.Equal(t, 10, m.Length())
	require.Equal(t, "NOTE M(10,0)", m.String())

	n, err := IntegerField("N", 9)
	require.NoError(t, err)
	require.Zero(t, n.Precision())
	require.False(t, n.IsZero())
	require.True(t, Field{}.IsZero())
}

func TestFieldDialects(t *testing.T) {
	f := mustField(t)
	date := f(DateField("D"))
	memo := f(MemoField("M"))
	float := f(FloatField("F", 10, 2))
	char := f(StringField("C", 3))

	require.ErrorIs(t, date.TestDialect(DBase2), ErrUnsupportedType)
	require.ErrorIs(t, memo.TestDialect(DBase2), ErrUnsupportedType)
	require.NoError(t, memo.TestDialect(DBase3))
	require.ErrorIs(t, float.TestDialect(DBase3), ErrUnsupportedType)
	require.NoError(t, float.TestDialect(DBase4))
	require.NoError(t, float.TestDialect(DialectAuto))
	for _, d := range []Dialect{DBase2, DBase3, DBase4} {
		require.NoError(t, char.TestDialect(d))
	}
	require.Equal(t, "dBase III", DBase3.String())
}

func TestFieldFromDisk(t *testing.T) {
	f := fieldFromDisk("ODD", FieldType('X'), 7, 0)
	require.Equal(t, Character, f.Type())
	require.Equal(t, 7, f.Length())
	require.Equal(t, "ODD", f.Name())
}
