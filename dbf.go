// Package godbf reads and writes dBase DBF tables and their DBT memo files,
// and copies records between tables with per-field copy plans.
//
// A Store owns one table file and, when the table has memo fields, its memo
// file. It holds a single current record selected by a cursor. Field setters
// change the record in memory only; the record is written back by Flush, by
// Seek/Advance/Append before they move the cursor, and by Close.
//
// A Store is not safe for concurrent use.
package godbf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ulysses-Xu/go-xbase/internal/options"
)

// Stream is the random access storage behind a table or memo file.
// *os.File satisfies it.
type Stream interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
}

// Store is an open DBF table.
type Store struct {
	cfg      *config
	dbf      Stream
	memo     Stream
	closers  []io.Closer
	encoding *Encoding
	schema   *Schema
	header   dbfHeader
	dialect  Dialect
	closed   bool

	// current record
	record   []byte
	position int

	recordModified bool
	tableModified  bool
	appending      bool

	memoBlocks uint32
	memoLens   map[int]int
}

// MemoPath returns the memo file path paired with a table path.
func MemoPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext != "" && strings.ToUpper(ext) == ext {
		return base + ".DBT"
	}
	return base + ".dbt"
}

// Open opens an existing table file. The memo file is opened as well when
// the table header announces one.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	flag := os.O_RDWR
	if cfg.readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	s, err := newStore(cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.dbf = f
	s.closers = append(s.closers, f)
	err = s.open(func() (Stream, error) {
		m, err := os.OpenFile(MemoPath(path), flag, 0)
		if err != nil {
			return nil, fmt.Errorf("open memo file: %w", err)
		}
		s.closers = append(s.closers, m)
		return m, nil
	})
	if err != nil {
		s.release()
		return nil, err
	}
	debugf("opened %s: %d records, %d fields", path, s.RecordCount(), s.schema.Len())
	return s, nil
}

// OpenStream opens a table held in caller supplied streams. memo may be nil
// for tables without memo fields. The streams are not closed by Close.
func OpenStream(dbf, memo Stream, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	s.dbf = dbf
	err = s.open(func() (Stream, error) {
		if memo == nil {
			return nil, fmt.Errorf("%w: table declares a memo file", ErrMissingMemo)
		}
		return memo, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create writes a new empty table for schema at path, truncating any
// existing file. A memo file is created next to it when the schema has memo
// fields. The schema is locked. A schema the dialect cannot hold is rejected
// before any file is touched.
func Create(path string, schema *Schema, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.readOnly {
		return nil, fmt.Errorf("%w: cannot create a read-only table", ErrInvalidState)
	}
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.prepareCreate(schema); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	s.dbf = f
	s.closers = append(s.closers, f)
	if schema.HasMemo() {
		m, err := os.OpenFile(MemoPath(path), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			s.release()
			return nil, err
		}
		s.memo = m
		s.closers = append(s.closers, m)
	}
	if err := s.create(schema); err != nil {
		s.release()
		return nil, err
	}
	debugf("created %s as %s with %d fields", path, s.dialect, schema.Len())
	return s, nil
}

// CreateStream writes a new empty table into caller supplied streams. memo
// is required when the schema has memo fields.
func CreateStream(dbf, memo Stream, schema *Schema, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.readOnly {
		return nil, fmt.Errorf("%w: cannot create a read-only table", ErrInvalidState)
	}
	if schema.HasMemo() && memo == nil {
		return nil, fmt.Errorf("%w: schema has memo fields", ErrMissingMemo)
	}
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.prepareCreate(schema); err != nil {
		return nil, err
	}
	s.dbf = dbf
	if schema.HasMemo() {
		s.memo = memo
	}
	if err := s.create(schema); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(cfg *config) (*Store, error) {
	enc, err := LookupEncoding(cfg.encoding)
	if err != nil {
		return nil, err
	}
	return &Store{cfg: cfg, encoding: enc, memoLens: make(map[int]int)}, nil
}

func (s *Store) Schema() *Schema { return s.schema }
func (s *Store) Encoding() *Encoding { return s.encoding }
func (s *Store) Dialect() Dialect { return s.dialect }
func (s *Store) ReadOnly() bool { return s.cfg.readOnly }
func (s *Store) HasMemoFile() bool { return s.memo != nil }
func (s *Store) RecordCount() int { return int(s.header.NumRecords) }
func (s *Store) Position() int { return s.position }
func (s *Store) SkipDeleted() bool { return s.cfg.skipDeleted }
func (s *Store) SetSkipDeleted(b bool) { s.cfg.skipDeleted = b }

// Modified returns the last update date stored in the header.
func (s *Store) Modified() (year, month, day int) {
	return 1900 + int(s.header.LastUpdateYear), int(s.header.LastUpdateMonth), int(s.header.LastUpdateDay)
}

func (s *Store) dataOffset() int64 { return int64(s.header.HeaderLength) }

func (s *Store) recordOffset(n int) int64 {
	return s.dataOffset() + int64(n-1)*int64(s.schema.RecordSize())
}

// Seek makes record n current. n must lie in [0, RecordCount]; 0 selects no
// record. Moving to a different record first writes back the current one if
// it was modified or appended, exactly as Flush would for the record.
func (s *Store) Seek(n int) error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidState)
	}
	if n < 0 || n > s.RecordCount() {
		return fmt.Errorf("%w: record %d of %d", ErrOutOfRange, n, s.RecordCount())
	}
	if n == s.position {
		return nil
	}
	if err := s.flushRecord(); err != nil {
		return err
	}
	clear(s.memoLens)
	if n == 0 {
		clear(s.record)
		s.position = 0
		return nil
	}
	if err := readAt(s.dbf, s.record, s.recordOffset(n)); err != nil {
		s.position = 0
		return fmt.Errorf("read record %d: %w", n, err)
	}
	s.position = n
	return nil
}

// Advance moves to the next record, passing over deleted ones unless
// skipping is disabled. It returns false when there is no further record;
// the cursor is then left on the last record visited.
func (s *Store) Advance() (bool, error) {
	for n := s.position + 1; n <= s.RecordCount(); n++ {
		if err := s.Seek(n); err != nil {
			return false, err
		}
		if !s.cfg.skipDeleted || s.record[0] != DELETED {
			return true, nil
		}
	}
	return false, nil
}

// Rewind moves the cursor before the first record.
func (s *Store) Rewind() error { return s.Seek(0) }

// Deleted reports whether the current record carries the deletion marker.
func (s *Store) Deleted() bool {
	return s.position > 0 && s.record[0] == DELETED
}

// SetDeleted sets or clears the deletion marker of the current record.
func (s *Store) SetDeleted(deleted bool) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if deleted {
		s.record[0] = DELETED
	} else {
		s.record[0] = SPACE
	}
	s.touch()
	return nil
}

// Append adds a blank record at the end of the table and makes it current.
// The record reaches the file on the next Flush or cursor move.
func (s *Store) Append() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidState)
	}
	if s.cfg.readOnly {
		return fmt.Errorf("%w: store is read-only", ErrInvalidState)
	}
	if s.RecordCount() >= maxRecordCount {
		return fmt.Errorf("%w: table is full", ErrOutOfRange)
	}
	if err := s.flushRecord(); err != nil {
		return err
	}
	clear(s.memoLens)
	for i := range s.record {
		s.record[i] = SPACE
	}
	s.header.NumRecords++
	s.position = s.RecordCount()
	s.appending = true
	s.recordModified = true
	s.tableModified = true
	return nil
}

// discardAppend drops a record added by Append that has not reached the
// file yet and leaves the cursor on no record. Memo blocks already written
// for it stay allocated.
func (s *Store) discardAppend() {
	if !s.appending || s.position != s.RecordCount() {
		return
	}
	s.header.NumRecords--
	s.position = 0
	s.appending = false
	s.recordModified = false
	clear(s.record)
	clear(s.memoLens)
}

// Flush writes the current record if it changed and then the header and
// memo header if the table changed. Flushing an unchanged store writes
// nothing.
func (s *Store) Flush() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidState)
	}
	if err := s.flushRecord(); err != nil {
		return err
	}
	return s.flushHeader()
}

// Close flushes pending changes and releases the files opened by the store.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	var errs []error
	if !s.cfg.readOnly {
		errs = append(errs, s.Flush())
	}
	s.closed = true
	errs = append(errs, s.release())
	return errors.Join(errs...)
}

func (s *Store) release() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Store) checkWritable() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidState)
	}
	if s.cfg.readOnly {
		return fmt.Errorf("%w: store is read-only", ErrInvalidState)
	}
	if s.position == 0 {
		return fmt.Errorf("%w: no current record", ErrInvalidState)
	}
	return nil
}

func (s *Store) checkRecord() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidState)
	}
	if s.position == 0 {
		return fmt.Errorf("%w: no current record", ErrInvalidState)
	}
	return nil
}

func (s *Store) touch() {
	s.recordModified = true
	s.tableModified = true
}

// field returns the descriptor and record slice of field i.
func (s *Store) field(i int) (Field, []byte, error) {
	if i < 0 || i >= s.schema.Len() {
		return Field{}, nil, fmt.Errorf("%w: field index %d of %d", ErrOutOfRange, i, s.schema.Len())
	}
	f := s.schema.fields[i]
	off := s.schema.offsets[i]
	return f, s.record[off : off+f.length], nil
}

// Index returns the position of the named field.
func (s *Store) Index(name string) (int, error) {
	i := s.schema.IndexOf(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: no field named %q", ErrOutOfRange, name)
	}
	return i, nil
}
