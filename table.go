package godbf

import (
	"context"
	"fmt"
)

// Column describes one column of a materialized Table.
type Column struct {
	Name  string
	Type  FieldType
	Kind  Kind
	Field int
}

// Table is a table read fully into memory, one row per non-deleted record.
type Table struct {
	Columns []Column
	Rows    [][]Value
}

// ErrorSink collects per-cell decoding errors.
type ErrorSink interface {
	Add(msg string)
}

// ErrorList is an ErrorSink that keeps messages in order.
type ErrorList []string

func (l *ErrorList) Add(msg string) { *l = append(*l, msg) }

// ReadTableOptions selects what ReadTable reads.
type ReadTableOptions struct {
	// Columns names the fields to read, in order. Empty means all fields.
	Columns []string
	// FromCurrent starts at the current record instead of the first one.
	FromCurrent bool
	// Errors receives cell errors. A failing cell is then left Null; without
	// a sink the first cell error is returned.
	Errors ErrorSink
	Progress Progress
}

// ReadTable materializes the table. The cursor is restored afterwards.
func (s *Store) ReadTable(ctx context.Context, opts ReadTableOptions) (*Table, error) {
	cols, err := s.columns(opts.Columns)
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: cols}
	start := s.position
	defer func() {
		if err := s.Seek(start); err != nil {
			debugf("restore position %d: %v", start, err)
		}
	}()

	onRecord := opts.FromCurrent && s.position > 0 && (!s.cfg.skipDeleted || !s.Deleted())
	if !opts.FromCurrent {
		if err := s.Seek(0); err != nil {
			return nil, err
		}
	}
	if opts.Progress != nil {
		bound := s.RecordCount() - s.position
		if onRecord {
			bound++
		}
		opts.Progress.SetBound(bound)
	}
	for {
		if err := canceled(ctx); err != nil {
			return t, err
		}
		if !onRecord {
			ok, err := s.Advance()
			if err != nil {
				return t, err
			}
			if !ok {
				return t, nil
			}
		}
		onRecord = false
		row, err := s.readRow(cols, opts.Errors)
		if err != nil {
			return t, err
		}
		t.Rows = append(t.Rows, row)
		if opts.Progress != nil {
			opts.Progress.Advance()
		}
	}
}

func (s *Store) readRow(cols []Column, sink ErrorSink) ([]Value, error) {
	row := make([]Value, len(cols))
	for c, col := range cols {
		v, err := s.GetValue(col.Field)
		if err != nil {
			if sink == nil {
				return nil, err
			}
			sink.Add(fmt.Sprintf("record %d, column %s: %v", s.position, col.Name, err))
			v = Null()
		}
		row[c] = v
	}
	return row, nil
}

func (s *Store) columns(names []string) ([]Column, error) {
	idx := make([]int, 0, s.schema.Len())
	if len(names) == 0 {
		for i := range s.schema.fields {
			idx = append(idx, i)
		}
	}
	for _, name := range names {
		i, err := s.Index(name)
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	cols := make([]Column, len(idx))
	for c, i := range idx {
		f := s.schema.fields[i]
		cols[c] = Column{Name: f.name, Type: f.typ, Kind: naturalKind(f), Field: i}
	}
	return cols, nil
}

// naturalKind is the kind GetValue returns for a non-blank field f.
func naturalKind(f Field) Kind {
	switch f.typ {
	case Numeric:
		if f.precision == 0 {
			if f.length <= 9 {
				return KindInteger
			}
			if f.length <= 18 {
				return KindLong
			}
		}
		return KindDecimal
	case Float:
		return KindDecimal
	case Logical:
		return KindBoolean
	case Date:
		return KindDate
	}
	return KindString
}
