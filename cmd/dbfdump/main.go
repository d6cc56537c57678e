// Command dbfdump writes the records of a DBF table as JSON lines.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	godbf "github.com/Ulysses-Xu/go-xbase"
	"github.com/Ulysses-Xu/go-xbase/internal/compress"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dbfdump: ")

	in := flag.String("in", "", "table file to read")
	out := flag.String("out", "", "output file, standard output when empty")
	encoding := flag.String("encoding", godbf.DefaultEncoding, "code page of the table")
	columns := flag.String("columns", "", "comma separated list of columns to dump")
	algo := flag.String("compress", "none", "output compression: none, s2, zstd or lz4")
	stats := flag.Bool("stats", false, "print the schema and used column widths instead of records")
	lenient := flag.Bool("lenient", false, "report undecodable cells on stderr instead of failing")
	debug := flag.Bool("debug", false, "trace file operations")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	godbf.Debug = *debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *in, *out, *encoding, *columns, *algo, *stats, *lenient); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, in, out, encoding, columns, algo string, stats, lenient bool) error {
	typ, err := compress.Parse(algo)
	if err != nil {
		return err
	}
	store, err := godbf.Open(in, godbf.WithReadOnly(), godbf.WithEncoding(encoding))
	if err != nil {
		return err
	}
	defer store.Close()

	var dst io.Writer = os.Stdout
	if out != "" {
		if !strings.HasSuffix(out, typ.Ext()) {
			out += typ.Ext()
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	bw := bufio.NewWriter(dst)
	w, err := compress.NewWriter(bw, typ)
	if err != nil {
		return err
	}

	if stats {
		err = writeStats(ctx, w, store)
	} else {
		err = writeRecords(ctx, w, store, columns, lenient)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	return err
}

func writeStats(ctx context.Context, w io.Writer, store *godbf.Store) error {
	lengths, err := store.MaxLengths(ctx, nil)
	if errors.Is(err, godbf.ErrCanceled) {
		log.Print("interrupted, widths are partial")
	} else if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s, %d records\n", store.Dialect(), store.RecordCount())
	for i, f := range store.Schema().Fields() {
		fmt.Fprintf(w, "%-10s %c %5d %2d  used %d\n", f.Name(), byte(f.Type()), f.Length(), f.Precision(), lengths[i])
	}
	return nil
}

func writeRecords(ctx context.Context, w io.Writer, store *godbf.Store, columns string, lenient bool) error {
	opts := godbf.ReadTableOptions{}
	if columns != "" {
		opts.Columns = strings.Split(columns, ",")
	}
	var errs godbf.ErrorList
	if lenient {
		opts.Errors = &errs
	}
	table, err := store.ReadTable(ctx, opts)
	if err != nil {
		return err
	}
	for _, msg := range errs {
		log.Print(msg)
	}
	enc := json.NewEncoder(w)
	for _, row := range table.Rows {
		obj := make(map[string]any, len(row))
		for c, v := range row {
			obj[table.Columns[c].Name] = v.Interface()
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}
