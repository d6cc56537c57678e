package godbf

import (
	"context"
	"fmt"
)

// Progress receives row level progress of long running operations.
type Progress interface {
	// SetBound announces the number of rows that will be processed.
	SetBound(n int)
	// Advance is called once per processed row.
	Advance()
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}

// MaxLengths scans every record once and returns, per field, the largest
// used length in bytes of character and memo fields. Other fields report 0.
// Character columns stop being measured once they reach their width.
//
// Cancellation is checked between records. A canceled scan returns the
// lengths seen so far together with an error wrapping ErrCanceled. The
// cursor position is restored afterwards.
func (s *Store) MaxLengths(ctx context.Context, progress Progress) ([]int, error) {
	fields := s.schema.fields
	lengths := make([]int, len(fields))
	open := make([]int, 0, len(fields))
	for i, f := range fields {
		if f.isTextual() {
			open = append(open, i)
		}
	}
	if len(open) == 0 {
		return lengths, nil
	}

	start := s.position
	if err := s.Seek(0); err != nil {
		return nil, err
	}
	if progress != nil {
		progress.SetBound(s.RecordCount())
	}
	err := s.scanLengths(ctx, progress, lengths, open)
	if serr := s.Seek(start); err == nil {
		err = serr
	}
	return lengths, err
}

func (s *Store) scanLengths(ctx context.Context, progress Progress, lengths, open []int) error {
	for len(open) > 0 {
		if err := canceled(ctx); err != nil {
			return err
		}
		ok, err := s.Advance()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		kept := open[:0]
		for _, i := range open {
			n, err := s.GetLength(i)
			if err != nil {
				return err
			}
			if n > lengths[i] {
				lengths[i] = n
			}
			f := s.schema.fields[i]
			if f.typ == Memo || lengths[i] < f.length {
				kept = append(kept, i)
			}
		}
		open = kept
		if progress != nil {
			progress.Advance()
		}
	}
	return nil
}
