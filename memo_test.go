package godbf

import (
	"encoding/binary"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func memoBytes(t *testing.T, path string) []byte {
	b, err := os.ReadFile(MemoPath(path))
	require.NoError(t, err)
	return b
}

func TestMemoReusesLargeEnoughChain(t *testing.T) {
	path, s := createExample(t)
	long := strings.Repeat("x", 600)
	appendExampleRow(t, s, "A", "1", true, long)
	require.EqualValues(t, 3*memoBlockSize, fileSize(t, MemoPath(path)))
	require.EqualValues(t, 3, s.memoBlocks)

	require.NoError(t, s.SetString(3, "short"))
	require.EqualValues(t, 3*memoBlockSize, fileSize(t, MemoPath(path)))
	raw, err := s.GetRaw(3)
	require.NoError(t, err)
	require.Equal(t, "         1", string(raw))

	note, err := s.GetString(3)
	require.NoError(t, err)
	require.Equal(t, "short", note)
	n, err := s.GetLength(3)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, s.Close())

	memo := memoBytes(t, path)
	require.EqualValues(t, 3, binary.LittleEndian.Uint32(memo))
	require.Equal(t, "short", string(memo[memoBlockSize:memoBlockSize+5]))
	require.Equal(t, byte(EOF), memo[memoBlockSize+5])
	require.Equal(t, make([]byte, 2*memoBlockSize-6), memo[memoBlockSize+6:])
}

func TestMemoGrowsAtEndOfFile(t *testing.T) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "hello world")
	require.EqualValues(t, 2*memoBlockSize, fileSize(t, MemoPath(path)))

	long := strings.Repeat("0123456789", 60)
	require.NoError(t, s.SetString(3, long))
	require.EqualValues(t, 4*memoBlockSize, fileSize(t, MemoPath(path)))
	raw, err := s.GetRaw(3)
	require.NoError(t, err)
	require.Equal(t, "         2", string(raw))

	old, blocks, err := s.scanMemo(1)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(old))
	require.Equal(t, 1, blocks)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.EqualValues(t, 4, s.memoBlocks)
	require.NoError(t, s.Seek(1))
	note, err := s.GetString(3)
	require.NoError(t, err)
	require.Equal(t, long, note)
}

func TestMemoSizeLimit(t *testing.T) {
	_, s := createExample(t)
	defer s.Close()
	require.NoError(t, s.Append())

	err := s.SetString(3, strings.Repeat("a", memoMaxScan))
	require.ErrorIs(t, err, ErrOutOfRange)

	largest := strings.Repeat("b", memoMaxScan-1)
	require.NoError(t, s.SetString(3, largest))
	note, err := s.GetString(3)
	require.NoError(t, err)
	require.Equal(t, largest, note)
}

func TestMemoEmptyValue(t *testing.T) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "")
	require.NoError(t, s.Close())
	require.EqualValues(t, memoBlockSize, fileSize(t, MemoPath(path)))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Seek(1))
	note, err := s.GetString(3)
	require.NoError(t, err)
	require.Empty(t, note)
	isNull, err := s.IsNull(3)
	require.NoError(t, err)
	require.True(t, isNull)
}

func TestMemoMissingTerminator(t *testing.T) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "hello world")
	require.NoError(t, s.Close())
	patchFile(t, MemoPath(path), memoBlockSize+11, []byte{'!'})

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Seek(1))
	_, err = s.GetString(3)
	require.ErrorIs(t, err, ErrCorruptMemo)
	require.ErrorIs(t, err, ErrFormat)
}

func TestMemoBadPointer(t *testing.T) {
	_, s := createExample(t)
	defer s.Close()
	appendExampleRow(t, s, "A", "1", true, "hello world")

	_, raw, err := s.field(3)
	require.NoError(t, err)
	fill(raw, []byte("99"), true)
	clear(s.memoLens)
	_, err = s.GetString(3)
	require.ErrorIs(t, err, ErrCorruptMemo)

	fill(raw, []byte("abc"), true)
	_, err = s.GetString(3)
	require.ErrorIs(t, err, ErrValueFormat)
}

func TestMemoStreamRequired(t *testing.T) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "hello")
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = OpenStream(f, nil)
	require.ErrorIs(t, err, ErrMissingMemo)

	_, err = CreateStream(f, nil, exampleSchema(t))
	require.ErrorIs(t, err, ErrMissingMemo)
}

func TestMemoLengthCache(t *testing.T) {
	path, s := createExample(t)
	appendExampleRow(t, s, "A", "1", true, "twelve bytes")
	appendExampleRow(t, s, "B", "1", true, "")
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Seek(1))
	n, err := s.GetLength(3)
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.Equal(t, map[int]int{3: 12}, s.memoLens)

	require.NoError(t, s.Seek(2))
	require.Empty(t, s.memoLens)
	n, err = s.GetLength(3)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemoBlocksFor(t *testing.T) {
	require.Equal(t, 1, memoBlocksFor(0))
	require.Equal(t, 1, memoBlocksFor(511))
	require.Equal(t, 2, memoBlocksFor(512))
	require.Equal(t, 2, memoBlocksFor(1023))
	require.Equal(t, 3, memoBlocksFor(1024))
}
