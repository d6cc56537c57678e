package godbf

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Ulysses-Xu/go-xbase/internal/plancache"
)

// Span is a byte range copied from a source record to a destination record.
type Span struct {
	Src, Dst, Len int
}

// FillSpan is a destination byte range set to blanks.
type FillSpan struct {
	Dst, Len int
}

// FieldPair maps a source field index to a destination field index.
type FieldPair struct {
	Src, Dst int
}

// CopyPlan is the prepared per-row work of a Copier. It is immutable and
// may be shared between copiers with the same schemas, encodings and
// mappings.
type CopyPlan struct {
	// Direct ranges are copied byte for byte.
	Direct []Span
	// Transcode ranges are mapped through the code page table.
	Transcode []Span
	// Fill ranges pad widened destination fields.
	Fill []FillSpan
	// Values are copied through GetValue and SetValue.
	Values []FieldPair

	transcoder *Transcoder
	spaces     []byte
}

// PlanCache shares prepared plans between copiers, across goroutines.
type PlanCache = plancache.Cache[*CopyPlan]

func NewPlanCache() *PlanCache {
	return plancache.New[*CopyPlan]()
}

// Copier transfers records from one store to another through a field
// mapping. Fields whose layouts allow it are copied as raw bytes; all others
// are converted value by value.
type Copier struct {
	// Progress, when set, is told the source record count and each copied row.
	Progress Progress
	// OnRow, when set, runs after each row is copied and before it is
	// marked modified. It may change the destination record.
	OnRow func(src, dst *Store) error
	// Cache, when set, is consulted and filled by Prepare.
	Cache *PlanCache

	src, dst *Store
	mappings []FieldPair
	mapped   []bool
	plan     *CopyPlan
}

// NewCopier returns a copier from src into dst. dst must be writable.
func NewCopier(src, dst *Store) (*Copier, error) {
	if src == dst {
		return nil, fmt.Errorf("%w: source and destination are the same store", ErrInvalidState)
	}
	if dst.ReadOnly() {
		return nil, fmt.Errorf("%w: destination is read-only", ErrInvalidState)
	}
	return &Copier{
		src:    src,
		dst:    dst,
		mapped: make([]bool, dst.schema.Len()),
	}, nil
}

// AddField maps source field srcIndex onto destination field dstIndex.
func (c *Copier) AddField(srcIndex, dstIndex int) error {
	if c.plan != nil {
		return fmt.Errorf("%w: copier is already prepared", ErrInvalidState)
	}
	if srcIndex < 0 || srcIndex >= c.src.schema.Len() {
		return fmt.Errorf("%w: source field index %d", ErrOutOfRange, srcIndex)
	}
	if dstIndex < 0 || dstIndex >= c.dst.schema.Len() {
		return fmt.Errorf("%w: destination field index %d", ErrOutOfRange, dstIndex)
	}
	if c.mapped[dstIndex] {
		return fmt.Errorf("%w: destination field %s is already mapped",
			ErrDuplicateField, c.dst.schema.fields[dstIndex].name)
	}
	c.mapped[dstIndex] = true
	c.mappings = append(c.mappings, FieldPair{Src: srcIndex, Dst: dstIndex})
	return nil
}

func (c *Copier) AddFieldByName(srcName, dstName string) error {
	i, err := c.src.Index(srcName)
	if err != nil {
		return err
	}
	j, err := c.dst.Index(dstName)
	if err != nil {
		return err
	}
	return c.AddField(i, j)
}

// AddAllMatchingNames maps every source field onto the destination field of
// the same name, except the names listed. Destination fields already mapped
// are left alone, as are source memo fields when the source has no memo
// file. It returns the number of mappings added.
func (c *Copier) AddAllMatchingNames(except ...string) (int, error) {
	if c.plan != nil {
		return 0, fmt.Errorf("%w: copier is already prepared", ErrInvalidState)
	}
	added := 0
	for i, f := range c.src.schema.fields {
		if slices.ContainsFunc(except, func(n string) bool { return strings.EqualFold(n, f.name) }) {
			continue
		}
		j := c.dst.schema.IndexOf(f.name)
		if j < 0 || c.mapped[j] {
			continue
		}
		if f.typ == Memo && !c.src.HasMemoFile() {
			continue
		}
		if err := c.AddField(i, j); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Mappings returns the registered field pairs in order.
func (c *Copier) Mappings() []FieldPair {
	return slices.Clone(c.mappings)
}

// Plan returns the prepared plan, or nil before Prepare.
func (c *Copier) Plan() *CopyPlan { return c.plan }

// Prepare classifies the mappings into a CopyPlan. The mapping set cannot
// change afterwards. Calling Prepare again has no effect.
func (c *Copier) Prepare() error {
	if c.plan != nil {
		return nil
	}
	var key uint64
	if c.Cache != nil {
		key = c.planKey()
		if plan, ok := c.Cache.Get(key); ok {
			c.plan = plan
			return nil
		}
	}
	plan, err := buildPlan(c.src, c.dst, c.mappings)
	if err != nil {
		return err
	}
	if c.Cache != nil {
		plan = c.Cache.GetOrSet(key, plan)
	}
	c.plan = plan
	debugf("copy plan: %d direct, %d transcode, %d fill, %d value",
		len(plan.Direct), len(plan.Transcode), len(plan.Fill), len(plan.Values))
	return nil
}

func (c *Copier) planKey() uint64 {
	k := plancache.NewKey().
		Uint64(c.src.schema.Fingerprint()).
		Uint64(c.dst.schema.Fingerprint()).
		String(c.src.encoding.Name()).
		String(c.dst.encoding.Name())
	if c.src.HasMemoFile() {
		k.String("memo")
	}
	for _, m := range c.mappings {
		k.Uint64(uint64(m.Src)).Uint64(uint64(m.Dst))
	}
	return k.Sum()
}

func buildPlan(src, dst *Store, mappings []FieldPair) (*CopyPlan, error) {
	plan := &CopyPlan{}
	sameEncoding := src.encoding.sameAs(dst.encoding)
	if !sameEncoding && CanTranscode(src.encoding, dst.encoding) {
		t, err := NewTranscoder(src.encoding, dst.encoding)
		if err != nil {
			return nil, err
		}
		plan.transcoder = t
	}

	for _, m := range mappings {
		sf, df := src.schema.fields[m.Src], dst.schema.fields[m.Dst]
		so, do := src.schema.offsets[m.Src], dst.schema.offsets[m.Dst]
		if sf.typ != df.typ {
			plan.Values = append(plan.Values, m)
			continue
		}
		switch sf.typ {
		case Date, Logical:
			if sf.length != df.length {
				plan.Values = append(plan.Values, m)
				continue
			}
			plan.Direct = append(plan.Direct, Span{Src: so, Dst: do, Len: sf.length})
		case Character:
			n := min(sf.length, df.length)
			switch {
			case sameEncoding:
				plan.Direct = append(plan.Direct, Span{Src: so, Dst: do, Len: n})
			case plan.transcoder != nil:
				plan.Transcode = append(plan.Transcode, Span{Src: so, Dst: do, Len: n})
			default:
				plan.Values = append(plan.Values, m)
				continue
			}
			if df.length > n {
				plan.Fill = append(plan.Fill, FillSpan{Dst: do + n, Len: df.length - n})
			}
		case Numeric:
			if sf.precision != df.precision || sf.length > df.length {
				plan.Values = append(plan.Values, m)
				continue
			}
			pad := df.length - sf.length
			if pad > 0 {
				plan.Fill = append(plan.Fill, FillSpan{Dst: do, Len: pad})
			}
			plan.Direct = append(plan.Direct, Span{Src: so, Dst: do + pad, Len: sf.length})
		case Float:
			if sf.precision != df.precision || sf.length != df.length {
				plan.Values = append(plan.Values, m)
				continue
			}
			plan.Direct = append(plan.Direct, Span{Src: so, Dst: do, Len: sf.length})
		default:
			plan.Values = append(plan.Values, m)
		}
	}

	plan.Direct = mergeSpans(plan.Direct)
	plan.Transcode = mergeSpans(plan.Transcode)
	plan.Fill = mergeFills(plan.Fill)
	widest := 0
	for _, f := range plan.Fill {
		widest = max(widest, f.Len)
	}
	plan.spaces = bytes.Repeat([]byte{SPACE}, widest)
	return plan, nil
}

// mergeSpans sorts spans by source offset and joins neighbours that are
// contiguous on both sides.
func mergeSpans(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	slices.SortFunc(spans, func(a, b Span) int { return a.Src - b.Src })
	out := spans[:1]
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if last.Src+last.Len == sp.Src && last.Dst+last.Len == sp.Dst {
			last.Len += sp.Len
			continue
		}
		out = append(out, sp)
	}
	return out
}

func mergeFills(fills []FillSpan) []FillSpan {
	if len(fills) < 2 {
		return fills
	}
	slices.SortFunc(fills, func(a, b FillSpan) int { return a.Dst - b.Dst })
	out := fills[:1]
	for _, f := range fills[1:] {
		last := &out[len(out)-1]
		if last.Dst+last.Len == f.Dst {
			last.Len += f.Len
			continue
		}
		out = append(out, f)
	}
	return out
}

// CopyAll appends one destination record per source record, visiting the
// source from the start with Advance, and flushes the destination at the
// end. The source cursor is restored afterwards, also on error.
// Cancellation is checked between rows. It returns the number of rows
// copied.
func (c *Copier) CopyAll(ctx context.Context) (n int, err error) {
	if err := c.Prepare(); err != nil {
		return 0, err
	}
	start := c.src.Position()
	defer func() {
		if serr := c.src.Seek(start); err == nil {
			err = serr
		}
	}()
	if err := c.src.Seek(0); err != nil {
		return 0, err
	}
	if c.Progress != nil {
		c.Progress.SetBound(c.src.RecordCount())
	}
	for {
		if err := canceled(ctx); err != nil {
			return n, err
		}
		ok, err := c.src.Advance()
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		if err := c.dst.Append(); err != nil {
			return n, err
		}
		if err := c.copyRow(); err != nil {
			return n, err
		}
		if c.OnRow != nil {
			if err := c.OnRow(c.src, c.dst); err != nil {
				return n, err
			}
		}
		c.dst.touch()
		n++
		if c.Progress != nil {
			c.Progress.Advance()
		}
	}
	return n, c.dst.Flush()
}

// copyRow applies the plan to the current source and destination records.
func (c *Copier) copyRow() error {
	p := c.plan
	sb, db := c.src.record, c.dst.record
	db[0] = sb[0]
	for _, sp := range p.Direct {
		copy(db[sp.Dst:sp.Dst+sp.Len], sb[sp.Src:sp.Src+sp.Len])
	}
	for _, sp := range p.Transcode {
		p.transcoder.Transcode(sb, sp.Src, db, sp.Dst, sp.Len)
	}
	for _, f := range p.Fill {
		copy(db[f.Dst:f.Dst+f.Len], p.spaces)
	}
	for _, m := range p.Values {
		v, err := c.src.GetValue(m.Src)
		if err != nil {
			return err
		}
		if err := c.dst.SetValue(m.Dst, v); err != nil {
			return fmt.Errorf("copy %s to %s: %w",
				c.src.schema.fields[m.Src].name, c.dst.schema.fields[m.Dst].name, err)
		}
	}
	return nil
}
