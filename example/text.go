// text.go -- read from variety of text files and populate a DBWriter
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/opencoff/go-mmph"
)

// a record from the input; the reader sends a final record with 'err'
// set if the input couldn't be read to the end.
type record struct {
	key []byte
	val []byte
	err error
}

// AddTextFile adds contents from text file 'fn' where key and value are separated
// by one of the characters in 'delim'. Duplicates, Empty lines or lines with no value
// are skipped. This function just opens the file and calls AddTextStream()
// Returns number of records added.
func AddTextFile(w *mmph.DBWriter, fn string, delim string, gz bool) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	if len(delim) == 0 {
		delim = " \t"
	}

	defer fd.Close()

	return AddTextStream(w, fd, delim, gz)
}

// AddTextStream adds contents from text stream 'fd' where key and value are separated
// by one of the characters in 'delim'. Empty lines and comments are skipped.
// Returns number of records added.
func AddTextStream(w *mmph.DBWriter, fd io.Reader, delim string, gz bool) (uint64, error) {
	rd, err := inputReader(fd, gz)
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	sc := bufio.NewScanner(bufio.NewReader(rd))
	ch := make(chan *record, 10)

	// do I/O asynchronously
	go func(sc *bufio.Scanner, ch chan *record) {
		for sc.Scan() {
			s := strings.TrimSpace(sc.Text())
			if len(s) == 0 || s[0] == '#' {
				continue
			}

			var k, v string

			// if we have no delimiters - we treat the value as "boolean"
			i := strings.IndexAny(s, delim)
			if i > 0 {
				k = s[:i]
				v = strings.TrimLeft(s[i:], delim)
			} else {
				k = s
			}

			// ignore items that are too large
			if len(v) >= 4294967295 {
				continue
			}

			ch <- &record{key: []byte(k), val: []byte(v)}
		}

		if err := sc.Err(); err != nil {
			ch <- &record{err: err}
		}
		close(ch)
	}(sc, ch)

	return addFromChan(w, ch)
}

// AddCSVFile adds contents from CSV file 'fn'. If 'kwfield' and 'valfield' are
// non-negative, they indicate the field# of the key and value respectively; the
// default value for 'kwfield' & 'valfield' is 0 and 1 respectively.
// If 'comma' is not 0, the default CSV delimiter is ','.
// If 'comment' is not 0, then lines beginning with that rune are discarded.
// Records where the 'kwfield' and 'valfield' can't be evaluated are discarded.
// Returns number of records added.
func AddCSVFile(w *mmph.DBWriter, fn string, comma, comment rune, kwfield, valfield int, gz bool) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	defer fd.Close()

	return AddCSVStream(w, fd, comma, comment, kwfield, valfield, gz)
}

// AddCSVStream is AddCSVFile() for an already open stream.
func AddCSVStream(w *mmph.DBWriter, fd io.Reader, comma, comment rune, kwfield, valfield int, gz bool) (uint64, error) {
	if kwfield < 0 {
		kwfield = 0
	}

	if valfield < 0 {
		valfield = 1
	}

	var max int = valfield
	if kwfield > valfield {
		max = kwfield
	}

	max += 1

	rd, err := inputReader(fd, gz)
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	ch := make(chan *record, 10)
	cr := csv.NewReader(rd)
	cr.Comma = comma
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	go func(cr *csv.Reader, ch chan *record) {
		for {
			v, err := cr.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- &record{err: err}
				break
			}

			if len(v) < max {
				continue
			}

			ch <- &record{key: []byte(v[kwfield]), val: []byte(v[valfield])}
		}
		close(ch)
	}(cr, ch)

	return addFromChan(w, ch)
}

// read records from the chan and write them to disk. Duplicate keys are
// skipped.
func addFromChan(w *mmph.DBWriter, ch chan *record) (uint64, error) {
	var n uint64
	var err error
	for r := range ch {
		if err != nil {
			// drain so the reader goroutine can finish
			continue
		}

		if r.err != nil {
			err = fmt.Errorf("input: %w", r.err)
			continue
		}

		switch e := w.Add(r.key, r.val); e {
		case nil:
			n++
		case mmph.ErrExists:
		default:
			err = e
		}
	}

	return n, err
}

// the caller closes the returned reader; closing a plain input is a no-op
// since the file belongs to the caller.
func inputReader(fd io.Reader, gz bool) (io.ReadCloser, error) {
	if !gz {
		return io.NopCloser(fd), nil
	}
	return gzip.NewReader(fd)
}
