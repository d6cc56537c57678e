package godbf

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func threeRows(t *testing.T) (string, *Store) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "first")
	appendExampleRow(t, s, "ABCD", "2.5", false, strings.Repeat("m", 700))
	appendExampleRow(t, s, "AB", "-3", true, "")
	return path, s
}

func TestReadTable(t *testing.T) {
	_, s := threeRows(t)
	defer s.Close()
	require.NoError(t, s.Seek(2))

	progress := &progressRecorder{}
	table, err := s.ReadTable(context.Background(), ReadTableOptions{Progress: progress})
	require.NoError(t, err)
	require.Equal(t, 2, s.Position())
	require.Equal(t, 3, progress.bound)
	require.Equal(t, 3, progress.advanced)

	require.Len(t, table.Columns, 4)
	require.Equal(t, Column{Name: "QTY", Type: Numeric, Kind: KindDecimal, Field: 1}, table.Columns[1])
	require.Equal(t, KindBoolean, table.Columns[2].Kind)
	require.Equal(t, KindString, table.Columns[3].Kind)
	require.Len(t, table.Rows, 3)
	require.True(t, StringValue("ABCD").Equal(table.Rows[1][0]))
	require.True(t, DecimalValue(decimal.RequireFromString("2.5")).Equal(table.Rows[1][1]))
	require.True(t, BoolValue(true).Equal(table.Rows[2][2]))
	require.True(t, StringValue("").Equal(table.Rows[2][3]))
}

func TestReadTableColumnsFromCurrent(t *testing.T) {
	_, s := threeRows(t)
	defer s.Close()
	require.NoError(t, s.Seek(2))

	table, err := s.ReadTable(context.Background(), ReadTableOptions{
		Columns:     []string{"active", "CODE"},
		FromCurrent: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ACTIVE", "CODE"}, []string{table.Columns[0].Name, table.Columns[1].Name})
	require.Len(t, table.Rows, 2)
	require.True(t, StringValue("ABCD").Equal(table.Rows[0][1]))
	require.True(t, StringValue("AB").Equal(table.Rows[1][1]))

	_, err = s.ReadTable(context.Background(), ReadTableOptions{Columns: []string{"NOPE"}})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadTableSkipsDeleted(t *testing.T) {
	_, s := threeRows(t)
	defer s.Close()
	require.NoError(t, s.Seek(1))
	require.NoError(t, s.SetDeleted(true))

	table, err := s.ReadTable(context.Background(), ReadTableOptions{FromCurrent: true})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	require.True(t, StringValue("ABCD").Equal(table.Rows[0][0]))
}

func TestReadTableErrorSink(t *testing.T) {
	path, s := threeRows(t)
	require.NoError(t, s.Close())
	// QTY of record 2
	patchFile(t, path, 161+22+1+4, []byte("1x.000"))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadTable(context.Background(), ReadTableOptions{})
	require.ErrorIs(t, err, ErrValueFormat)

	var errs ErrorList
	table, err := s.ReadTable(context.Background(), ReadTableOptions{Errors: &errs})
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0], "QTY")
	require.True(t, table.Rows[1][1].IsNull())
	require.True(t, StringValue("ABCD").Equal(table.Rows[1][0]))
}

func TestReadTableCanceled(t *testing.T) {
	_, s := threeRows(t)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table, err := s.ReadTable(ctx, ReadTableOptions{})
	require.ErrorIs(t, err, ErrCanceled)
	require.Empty(t, table.Rows)
	require.Equal(t, 3, s.Position())
}

func TestMaxLengths(t *testing.T) {
	_, s := threeRows(t)
	defer s.Close()

	progress := &progressRecorder{}
	lengths, err := s.MaxLengths(context.Background(), progress)
	require.NoError(t, err)
	require.Equal(t, []int{4, 0, 0, 700}, lengths)
	require.Equal(t, 3, s.Position())
	require.Equal(t, 3, progress.bound)
	require.Equal(t, 3, progress.advanced)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lengths, err = s.MaxLengths(ctx, nil)
	require.ErrorIs(t, err, ErrCanceled)
	require.Equal(t, []int{0, 0, 0, 0}, lengths)
	require.Equal(t, 3, s.Position())
}

func TestMaxLengthsWithoutTextFields(t *testing.T) {
	f := mustField(t)
	s := createTable(t, "n.dbf", []Field{f(IntegerField("N", 4))})
	require.NoError(t, s.Append())
	lengths, err := s.MaxLengths(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []int{0}, lengths)
}

type item struct {
	Code    string          `dbf:"CODE"`
	Qty     decimal.Decimal `dbf:"QTY"`
	Active  bool            `dbf:"ACTIVE"`
	Note    string          `dbf:"NOTE"`
	Missing string          `dbf:"NOPE"`
	Local   int
}

func TestModelRoundTrip(t *testing.T) {
	path, s := createExample(t)
	in := item{Code: "AB12", Qty: decimal.RequireFromString("12.5"), Active: true, Note: "hello world", Local: 7}
	require.NoError(t, s.AppendModel(&in))
	require.NoError(t, s.AppendModel(&item{Code: "Z"}))
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var out item
	require.NoError(t, s.Seek(1))
	require.NoError(t, s.Scan(&out))
	require.Equal(t, "AB12", out.Code)
	require.True(t, out.Qty.Equal(in.Qty))
	require.True(t, out.Active)
	require.Equal(t, "hello world", out.Note)
	require.Zero(t, out.Local)

	require.NoError(t, s.Seek(2))
	var loose struct {
		Qty    int   `dbf:"QTY"`
		Active Value `dbf:"ACTIVE"`
		Code   []int `dbf:"-"`
	}
	require.NoError(t, s.Scan(&loose))
	require.Zero(t, loose.Qty)
	require.True(t, BoolValue(false).Equal(loose.Active))

	require.Error(t, s.Scan(out))
	require.Error(t, s.Scan(&loose.Qty))
}

func TestModelTypes(t *testing.T) {
	f := mustField(t)
	s := createTable(t, "m.dbf", []Field{
		f(IntegerField("SMALL", 4)),
		f(DecimalField("RATE", 8, 3)),
		f(DateField("DAY")),
	})
	type row struct {
		Small uint8     `dbf:"SMALL"`
		Rate  float64   `dbf:"RATE"`
		Day   time.Time `dbf:"DAY"`
	}
	day := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendModel(&row{Small: 200, Rate: 0.125, Day: day}))

	var out row
	require.NoError(t, s.Scan(&out))
	require.EqualValues(t, 200, out.Small)
	require.InDelta(t, 0.125, out.Rate, 1e-9)
	require.True(t, day.Equal(out.Day))

	require.NoError(t, s.SetLong(0, 999))
	require.Error(t, s.Scan(&out))
}

func TestAppendModelRejectsWholeRow(t *testing.T) {
	f := mustField(t)
	path := filepath.Join(t.TempDir(), "r.dbf")
	schema, err := NewSchema(f(StringField("CODE", 4)), f(IntegerField("N", 4)))
	require.NoError(t, err)
	s, err := Create(path, schema)
	require.NoError(t, err)
	type row struct {
		Code string `dbf:"CODE"`
		N    int    `dbf:"N"`
	}
	type textRow struct {
		Code string `dbf:"CODE"`
		N    string `dbf:"N"`
	}
	require.NoError(t, s.AppendModel(&row{Code: "OK", N: 1}))

	err = s.AppendModel(&textRow{Code: "BAD", N: "abc"})
	require.ErrorIs(t, err, ErrFieldType)
	require.Equal(t, 1, s.RecordCount())

	err = s.AppendModel(&row{Code: "WIDE", N: 123456})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Equal(t, 1, s.RecordCount())
	require.Zero(t, s.Position())

	require.NoError(t, s.AppendModel(&row{Code: "NEXT", N: 2}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, 2, s.RecordCount())
	require.NoError(t, s.Seek(2))
	code, err := s.GetString(0)
	require.NoError(t, err)
	require.Equal(t, "NEXT", code)
}
