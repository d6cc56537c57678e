package godbf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	require.True(t, Null().IsNull())
	require.True(t, Value{}.IsNull())

	n, ok := IntegerValue(7).AsLong()
	require.True(t, ok)
	require.EqualValues(t, 7, n)
	_, ok = StringValue("7").AsLong()
	require.False(t, ok)

	d, ok := LongValue(-2).AsDecimal()
	require.True(t, ok)
	require.True(t, d.Equal(decimal.NewFromInt(-2)))

	day := DateValue(time.Date(2024, 5, 6, 23, 59, 0, 0, time.FixedZone("X", 3600)))
	got, ok := day.AsDate()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), got)
	require.Equal(t, "20240506", day.String())
	require.Equal(t, "2024-05-06", day.Interface())

	require.Equal(t, "T", BoolValue(true).String())
	require.Equal(t, "1.5", DecimalValue(decimal.RequireFromString("1.50")).String())
	require.Nil(t, Null().Interface())
	require.Equal(t, "long", KindLong.String())
}

func TestValueEqual(t *testing.T) {
	require.True(t, IntegerValue(1).Equal(IntegerValue(1)))
	require.False(t, IntegerValue(1).Equal(LongValue(1)))
	require.True(t, DecimalValue(decimal.RequireFromString("1.0")).Equal(DecimalValue(decimal.NewFromInt(1))))
	require.False(t, StringValue("").Equal(Null()))
}

func TestValueConvert(t *testing.T) {
	f := mustField(t)
	num := f(DecimalField("N", 8, 2))
	logical := f(BoolField("L"))
	date := f(DateField("D"))
	char := f(StringField("C", 10))

	v, err := StringValue(" 1.25 ").convert(num)
	require.NoError(t, err)
	require.True(t, DecimalValue(decimal.RequireFromString("1.25")).Equal(v))
	v, err = StringValue("  ").convert(num)
	require.NoError(t, err)
	require.True(t, v.IsNull())
	_, err = StringValue("abc").convert(num)
	require.Error(t, err)
	v, err = BoolValue(true).convert(num)
	require.NoError(t, err)
	require.True(t, LongValue(1).Equal(v))

	v, err = StringValue("n").convert(logical)
	require.NoError(t, err)
	require.True(t, BoolValue(false).Equal(v))
	v, err = StringValue("?").convert(logical)
	require.NoError(t, err)
	require.True(t, v.IsNull())
	_, err = StringValue("x").convert(logical)
	require.Error(t, err)
	v, err = LongValue(3).convert(logical)
	require.NoError(t, err)
	require.True(t, BoolValue(true).Equal(v))

	_, err = LongValue(20240101).convert(date)
	require.Error(t, err)

	v, err = DateValue(time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)).convert(char)
	require.NoError(t, err)
	require.True(t, StringValue("20010203").Equal(v))
}

func TestNumericValueKinds(t *testing.T) {
	f := mustField(t)
	require.Equal(t, KindInteger, numericValue(f(IntegerField("A", 9)), decimal.NewFromInt(5)).Kind())
	require.Equal(t, KindLong, numericValue(f(IntegerField("B", 18)), decimal.NewFromInt(5)).Kind())
	require.Equal(t, KindDecimal, numericValue(f(IntegerField("C", 19)), decimal.NewFromInt(5)).Kind())
	require.Equal(t, KindDecimal, numericValue(f(DecimalField("D", 9, 2)), decimal.NewFromInt(5)).Kind())
	require.Equal(t, KindDecimal, numericValue(f(FloatField("E", 9, 0)), decimal.NewFromInt(5)).Kind())
}
