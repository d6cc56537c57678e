package godbf

import (
	"log"
	"time"

	"github.com/Ulysses-Xu/go-xbase/internal/options"
)

// Debug enables tracing of file level operations through the standard logger.
var Debug = false

func debugf(format string, args ...any) {
	if Debug {
		log.Printf("godbf: "+format, args...)
	}
}

type config struct {
	encoding    string
	readOnly    bool
	dialect     Dialect
	skipDeleted bool
	now         func() time.Time
}

func defaultConfig() *config {
	return &config{
		encoding:    DefaultEncoding,
		skipDeleted: true,
		now:         time.Now,
	}
}

// Option configures a Store.
type Option = options.Option[*config]

// WithEncoding sets the code page used for character and memo fields.
func WithEncoding(name string) Option {
	return options.NoError(func(c *config) { c.encoding = name })
}

// WithReadOnly opens the table without write access. Setters fail with
// ErrInvalidState.
func WithReadOnly() Option {
	return options.NoError(func(c *config) { c.readOnly = true })
}

// WithDialect selects the dialect a new table is written as. It has no effect
// when opening an existing file.
func WithDialect(d Dialect) Option {
	return options.NoError(func(c *config) { c.dialect = d })
}

// WithSkipDeleted controls whether Advance passes over deleted records.
// The default is true.
func WithSkipDeleted(skip bool) Option {
	return options.NoError(func(c *config) { c.skipDeleted = skip })
}

// WithClock replaces the time source used for the last update date.
func WithClock(now func() time.Time) Option {
	return options.NoError(func(c *config) {
		if now != nil {
			c.now = now
		}
	})
}
