package godbf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	maxRecordSize   = 0xFFFF
	maxDBase2Fields = 32
)

// Schema is an ordered set of fields. It can be extended until it is bound
// to a Store, after which it is locked for good.
type Schema struct {
	fields     []Field
	offsets    []int
	index      map[string]int
	recordSize int
	hasMemo    bool
	locked     bool
}

// NewSchema builds a schema from fields in order.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{index: make(map[string]int), recordSize: 1}
	for _, f := range fields {
		if err := s.Add(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a field. It fails once the schema is locked, for zero value
// fields and for names already present (compared case-insensitively).
func (s *Schema) Add(f Field) error {
	if s.locked {
		return fmt.Errorf("%w: cannot add field %s", ErrSchemaLocked, f.name)
	}
	return s.add(f)
}

func (s *Schema) add(f Field) error {
	if s.index == nil {
		s.index = make(map[string]int)
		s.recordSize = 1
	}
	if f.IsZero() {
		return fmt.Errorf("%w: empty field", ErrDuplicateField)
	}
	key := strings.ToUpper(f.name)
	if _, ok := s.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateField, f.name)
	}
	if s.recordSize+f.length > maxRecordSize {
		return fmt.Errorf("%w: record size exceeds %d bytes with field %s", ErrOutOfRange, maxRecordSize, f.name)
	}
	s.index[key] = len(s.fields)
	s.fields = append(s.fields, f)
	s.offsets = append(s.offsets, s.recordSize)
	s.recordSize += f.length
	if f.typ == Memo {
		s.hasMemo = true
	}
	return nil
}

// Lock freezes the schema. Calling it again has no effect.
func (s *Schema) Lock() { s.locked = true }

func (s *Schema) Locked() bool { return s.locked }

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) Field(i int) Field { return s.fields[i] }

func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Offset returns the byte offset of field i in a record, counting the
// deletion flag at offset 0.
func (s *Schema) Offset(i int) int { return s.offsets[i] }

// IndexOf returns the position of the named field, or -1.
func (s *Schema) IndexOf(name string) int {
	if i, ok := s.index[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return i
	}
	return -1
}

// RecordSize is the deletion flag plus the sum of field lengths.
func (s *Schema) RecordSize() int {
	if s.recordSize == 0 {
		return 1
	}
	return s.recordSize
}

func (s *Schema) HasMemo() bool { return s.hasMemo }

// TestDialect reports whether every field can be stored in dialect d.
func (s *Schema) TestDialect(d Dialect) error {
	if d == DBase2 && len(s.fields) > maxDBase2Fields {
		return fmt.Errorf("%w: %s allows at most %d fields, schema has %d",
			ErrUnsupportedType, d, maxDBase2Fields, len(s.fields))
	}
	for _, f := range s.fields {
		if err := f.TestDialect(d); err != nil {
			return err
		}
	}
	return nil
}

// resolveDialect returns the lowest writable dialect holding every field.
func (s *Schema) resolveDialect() Dialect {
	for _, f := range s.fields {
		if f.typ == Float {
			return DBase4
		}
	}
	return DBase3
}

// Fingerprint hashes the field layout. Two schemas with the same fields in
// the same order share a fingerprint.
func (s *Schema) Fingerprint() uint64 {
	d := xxhash.New()
	for _, f := range s.fields {
		_, _ = d.WriteString(strings.ToUpper(f.name))
		_, _ = d.Write([]byte{0, byte(f.typ)})
		_, _ = d.WriteString(strconv.Itoa(f.length))
		_, _ = d.Write([]byte{'.'})
		_, _ = d.WriteString(strconv.Itoa(f.precision))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
