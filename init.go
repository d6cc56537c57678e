package godbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// open parses the table header and field list. openMemo is called when the
// signature announces a memo file.
func (s *Store) open(openMemo func() (Stream, error)) error {
	size, err := streamSize(s.dbf)
	if err != nil {
		return err
	}
	if err := s.initHeader(); err != nil {
		return err
	}
	dialect, hasMemo, ok := parseSignature(s.header.Version)
	if !ok {
		return newFormatError("unsupported signature 0x%02X", s.header.Version)
	}
	s.dialect = dialect
	if s.header.NumRecords > maxRecordCount {
		return newFormatError("record count %d too large", s.header.NumRecords)
	}
	if s.header.RecordLength == 0 {
		return newFormatError("record length is zero")
	}
	end, err := s.initFields(size)
	if err != nil {
		return err
	}
	if int(s.header.RecordLength) != s.schema.RecordSize() {
		return newFormatError("record length %d does not match field lengths %d",
			s.header.RecordLength, s.schema.RecordSize())
	}
	need := int64(s.header.HeaderLength) + int64(s.header.RecordLength)*int64(s.header.NumRecords)
	if size < need {
		return newFormatError("file is truncated: %d bytes, need %d", size, need)
	}
	if end > int64(s.header.HeaderLength) {
		return newFormatError("field list ends at %d past data offset %d", end, s.header.HeaderLength)
	}
	s.record = make([]byte, s.schema.RecordSize())
	if hasMemo {
		memo, err := openMemo()
		if err != nil {
			return err
		}
		s.memo = memo
		if err := s.initMemo(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) initHeader() error {
	r := io.NewSectionReader(s.dbf, 0, headerSize)
	if err := binary.Read(r, binary.LittleEndian, &s.header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return newFormatError("truncated header")
		}
		return err
	}
	return nil
}

// initFields reads descriptors up to the terminator byte and returns the
// offset just past it.
func (s *Store) initFields(size int64) (int64, error) {
	schema := &Schema{}
	pos := int64(headerSize)
	var mark [1]byte
	for {
		if pos >= size {
			return 0, newFormatError("truncated field list")
		}
		if err := readAt(s.dbf, mark[:], pos); err != nil {
			return 0, fmt.Errorf("read field list: %w", err)
		}
		if mark[0] == TERMINATOR {
			pos++
			break
		}
		var d fieldDescriptor
		r := io.NewSectionReader(s.dbf, pos, descriptorSize)
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, newFormatError("truncated field descriptor %d", schema.Len())
			}
			return 0, err
		}
		name := d.Name[:]
		if i := bytes.IndexByte(name, NUL); i >= 0 {
			name = name[:i]
		}
		f := fieldFromDisk(strings.TrimSpace(string(name)), FieldType(d.Type), d.length(), d.precision())
		if err := schema.add(f); err != nil {
			return 0, newFormatError("field %d: %v", schema.Len(), err)
		}
		pos += descriptorSize
	}
	schema.Lock()
	s.schema = schema
	return pos, nil
}

func (s *Store) initMemo() error {
	size, err := streamSize(s.memo)
	if err != nil {
		return err
	}
	var b [4]byte
	if err := readAt(s.memo, b[:], 0); err != nil {
		return newCorruptMemo("memo header: %v", err)
	}
	blocks := binary.LittleEndian.Uint32(b[:])
	if blocks < 1 || blocks > memoMaxBlocks {
		return newCorruptMemo("memo block count %d out of range", blocks)
	}
	if size < int64(blocks-1)*memoBlockSize+2 {
		return newCorruptMemo("memo file is truncated: %d bytes for %d blocks", size, blocks)
	}
	s.memoBlocks = blocks
	return nil
}

// prepareCreate resolves the dialect a new table for schema is written in
// and checks that the schema can be stored in it. Nothing is written.
func (s *Store) prepareCreate(schema *Schema) error {
	dialect := s.cfg.dialect
	if dialect == DialectAuto {
		dialect = schema.resolveDialect()
	}
	if dialect == DBase2 {
		return fmt.Errorf("%w: %s tables cannot be written", ErrUnsupportedType, dialect)
	}
	if err := schema.TestDialect(dialect); err != nil {
		return err
	}
	if n := headerLengthFor(schema); n > 0xFFFF {
		return fmt.Errorf("%w: header of %d bytes", ErrOutOfRange, n)
	}
	s.dialect = dialect
	return nil
}

func headerLengthFor(schema *Schema) int {
	return headerSize + descriptorSize*schema.Len() + 1
}

// create locks schema and writes the header of an empty table, and the
// memo header when the schema has memo fields. prepareCreate must have
// accepted schema.
func (s *Store) create(schema *Schema) error {
	schema.Lock()
	s.schema = schema
	s.record = make([]byte, schema.RecordSize())

	headerLength := headerLengthFor(schema)
	y, m, d := s.cfg.now().Date()
	s.header = dbfHeader{
		Version:         signatureFor(s.dialect, schema.HasMemo()),
		LastUpdateYear:  byte(y - 1900),
		LastUpdateMonth: byte(m),
		LastUpdateDay:   byte(d),
		HeaderLength:    uint16(headerLength),
		RecordLength:    uint16(schema.RecordSize()),
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerLength+1))
	if err := binary.Write(buf, binary.LittleEndian, &s.header); err != nil {
		return err
	}
	for _, f := range schema.fields {
		desc := newFieldDescriptor(f)
		if err := binary.Write(buf, binary.LittleEndian, &desc); err != nil {
			return err
		}
	}
	buf.WriteByte(TERMINATOR)
	buf.WriteByte(EOF)
	if _, err := s.dbf.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if schema.HasMemo() {
		s.memoBlocks = memoFirstBlock
		block := make([]byte, memoBlockSize)
		binary.LittleEndian.PutUint32(block, s.memoBlocks)
		if _, err := s.memo.WriteAt(block, 0); err != nil {
			return fmt.Errorf("write memo header: %w", err)
		}
	}
	return nil
}

func streamSize(st Stream) (int64, error) {
	return st.Seek(0, io.SeekEnd)
}

// readAt fills p from off. A full read that also reports io.EOF, as
// io.ReaderAt allows at the end of the input, succeeds.
func readAt(st Stream, p []byte, off int64) error {
	n, err := st.ReadAt(p, off)
	if n == len(p) && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
