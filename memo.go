package godbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// memoPointer parses the block number stored in a memo field. Zero means
// the field has no value.
func memoPointer(raw []byte) (int, error) {
	text := trim(raw)
	if len(text) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(string(text))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid memo block number %q", text)
	}
	return n, nil
}

func isZeroPointer(f Field, raw []byte) bool {
	if f.typ != Memo {
		return false
	}
	n, err := memoPointer(raw)
	return err == nil && n == 0
}

// memoValue reads the memo bytes referenced by field i.
func (s *Store) memoValue(i int, raw []byte) ([]byte, error) {
	f := s.schema.fields[i]
	block, err := memoPointer(raw)
	if err != nil {
		return nil, s.valueError(f, raw, err)
	}
	if block == 0 {
		s.memoLens[i] = 0
		return nil, nil
	}
	if s.memo == nil {
		return nil, fmt.Errorf("%w: field %s", ErrMissingMemo, f.name)
	}
	b, _, err := s.scanMemo(block)
	if err != nil {
		return nil, err
	}
	s.memoLens[i] = len(b)
	return b, nil
}

// scanMemo reads from the start of block up to the terminator. It returns
// the value and the number of blocks the value and terminator occupy.
func (s *Store) scanMemo(block int) ([]byte, int, error) {
	if block < memoFirstBlock || block >= int(s.memoBlocks) {
		return nil, 0, newCorruptMemo("block %d outside [%d, %d)", block, memoFirstBlock, s.memoBlocks)
	}
	size, err := streamSize(s.memo)
	if err != nil {
		return nil, 0, err
	}
	off := int64(block) * memoBlockSize
	if off >= size {
		return nil, 0, newCorruptMemo("block %d beyond end of memo file", block)
	}
	var out []byte
	chunk := make([]byte, memoBlockSize)
	for len(out) < memoMaxScan {
		n, err := s.memo.ReadAt(chunk, off)
		if i := bytes.IndexByte(chunk[:n], EOF); i >= 0 {
			out = append(out, chunk[:i]...)
			return out, (len(out) + memoBlockSize) / memoBlockSize, nil
		}
		out = append(out, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, 0, newCorruptMemo("block %d: end of file before terminator", block)
			}
			return nil, 0, err
		}
		off += int64(n)
	}
	return nil, 0, newCorruptMemo("block %d: no terminator within %d bytes", block, memoMaxScan)
}

// memoBlocksFor is the number of blocks holding n bytes plus the terminator.
func memoBlocksFor(n int) int {
	return (n + 1 + memoBlockSize - 1) / memoBlockSize
}

// writeMemo stores data for a field currently pointing at block old (0 for
// none) and returns the block the value now starts at. The old chain is
// overwritten when it is long enough, otherwise the value goes to new
// blocks at the end of the file.
func (s *Store) writeMemo(old int, data []byte) (int, error) {
	if len(data)+1 > memoMaxScan {
		return 0, fmt.Errorf("%w: memo value of %d bytes exceeds %d", ErrOutOfRange, len(data), memoMaxScan-1)
	}
	need := memoBlocksFor(len(data))
	if old != 0 {
		_, have, err := s.scanMemo(old)
		if err != nil {
			debugf("memo block %d not reusable: %v", old, err)
		} else if have >= need {
			if err := s.writeMemoBlocks(old, data, have); err != nil {
				return 0, err
			}
			debugf("memo value of %d bytes reused block %d", len(data), old)
			return old, nil
		}
	}
	block := int(s.memoBlocks)
	if block+need > memoMaxBlocks {
		return 0, fmt.Errorf("%w: memo file is full", ErrOutOfRange)
	}
	if err := s.writeMemoBlocks(block, data, need); err != nil {
		return 0, err
	}
	s.memoBlocks += uint32(need)
	s.tableModified = true
	debugf("memo value of %d bytes allocated %d blocks at %d", len(data), need, block)
	return block, nil
}

// writeMemoBlocks writes data, the terminator and zero padding over blocks
// whole blocks starting at block.
func (s *Store) writeMemoBlocks(block int, data []byte, blocks int) error {
	buf := make([]byte, blocks*memoBlockSize)
	copy(buf, data)
	buf[len(data)] = EOF
	if _, err := s.memo.WriteAt(buf, int64(block)*memoBlockSize); err != nil {
		return fmt.Errorf("write memo block %d: %w", block, err)
	}
	return nil
}

func (s *Store) flushMemoHeader() error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], s.memoBlocks)
	if _, err := s.memo.WriteAt(b[:], 0); err != nil {
		return fmt.Errorf("write memo header: %w", err)
	}
	return nil
}
