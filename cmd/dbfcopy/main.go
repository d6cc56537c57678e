// Command dbfcopy copies the records of one DBF table into another, mapping
// fields by name.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	godbf "github.com/Ulysses-Xu/go-xbase"
)

type progress struct {
	total, done int
}

func (p *progress) SetBound(n int) { p.total = n }

func (p *progress) Advance() {
	p.done++
	if p.done%10000 == 0 {
		log.Printf("%d/%d records", p.done, p.total)
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("dbfcopy: ")

	src := flag.String("src", "", "source table")
	dst := flag.String("dst", "", "destination table")
	create := flag.Bool("create", false, "create the destination with the source layout")
	srcEncoding := flag.String("encoding", godbf.DefaultEncoding, "code page of the source")
	dstEncoding := flag.String("dst-encoding", "", "code page of the destination, defaults to -encoding")
	except := flag.String("except", "", "comma separated field names not to copy")
	debug := flag.Bool("debug", false, "trace file operations")
	flag.Parse()

	if *src == "" || *dst == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *dstEncoding == "" {
		*dstEncoding = *srcEncoding
	}
	godbf.Debug = *debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := run(ctx, *src, *dst, *srcEncoding, *dstEncoding, *except, *create)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("copied %d records", n)
}

func run(ctx context.Context, srcPath, dstPath, srcEncoding, dstEncoding, except string, create bool) (n int, err error) {
	src, err := godbf.Open(srcPath, godbf.WithReadOnly(), godbf.WithEncoding(srcEncoding))
	if err != nil {
		return 0, err
	}
	defer src.Close()

	var dst *godbf.Store
	if create {
		schema, err := godbf.NewSchema(src.Schema().Fields()...)
		if err != nil {
			return 0, err
		}
		dst, err = godbf.Create(dstPath, schema, godbf.WithEncoding(dstEncoding), godbf.WithDialect(src.Dialect()))
		if err != nil {
			return 0, err
		}
	} else {
		dst, err = godbf.Open(dstPath, godbf.WithEncoding(dstEncoding))
		if err != nil {
			return 0, err
		}
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
	}()

	c, err := godbf.NewCopier(src, dst)
	if err != nil {
		return 0, err
	}
	var skip []string
	if except != "" {
		skip = strings.Split(except, ",")
	}
	if _, err := c.AddAllMatchingNames(skip...); err != nil {
		return 0, err
	}
	c.Progress = &progress{}
	return c.CopyAll(ctx)
}
