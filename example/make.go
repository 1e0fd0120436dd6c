// make.go -- 'make' command implementation
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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opencoff/go-mmph"
	flag "github.com/opencoff/pflag"
)

type makeCommand struct{}

func init() {
	m := makeCommand{}
	registerCommand("make", &m)
}

func (m *makeCommand) run(args []string, opt *Option) (err error) {
	var tname string
	var gz bool
	var db *mmph.DBWriter

	defer func(e *error) {
		if *e != nil && db != nil {
			db.Abort()
		}
	}(&err)

	fs := flag.NewFlagSet("make", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.StringVarP(&tname, "transform", "t", "utf8", "Encode keys with transform `T`")
	fs.BoolVarP(&gz, "gzip", "z", false, "Inputs (and stdin) are gzip compressed")
	fs.Usage = func() {
		fmt.Printf(`Usage: make [options] DB [INPUT...]

where:
   DB	    is the name of the output database file
   INPUT    is one or more optional input files; stdin is read if
            no inputs are given

The input file(s) must have a name suffix of one of the following:
   .txt	    A key,value per-line delimited by white space 
   .txt     one key per line (no embedded whitespace)
   .csv	    A comma-separated key,value file
A further .gz suffix marks a gzip compressed file.

The transform turns keys into bits; it is one of:
   utf8, iso, utf16, hutucker

options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("make: insufficient args")
	}

	kind, err := mmph.ParseTransformKind(tname)
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}

	fn := args[0]
	args = args[1:]

	db, err = mmph.NewDBWriter(fn, kind)
	if err != nil {
		return fmt.Errorf("make: can't create DB %s: %w", fn, err)
	}

	var tot uint64
	if len(args) > 0 {
		var n uint64
		for _, f := range args {
			z := gz || strings.HasSuffix(f, ".gz")
			nm := strings.TrimSuffix(f, ".gz")

			switch {
			case strings.HasSuffix(nm, ".txt"):
				n, err = AddTextFile(db, f, " \t", z)

			case strings.HasSuffix(nm, ".csv"):
				n, err = AddCSVFile(db, f, ',', '#', 0, 1, z)

			default:
				return fmt.Errorf("make: don't know how to add %s", f)
			}

			if err != nil {
				return fmt.Errorf("make: can't add %s: %w", f, err)
			}

			opt.Printf("+ %s: %d records\n", f, n)
			tot += n
		}
	} else {
		var n uint64

		n, err = AddTextStream(db, os.Stdin, " \t", gz)
		if err != nil {
			return fmt.Errorf("make: can't add text from stdin: %w", err)
		}

		opt.Printf("+ <STDIN>: %d records\n", n)
		tot += n
	}

	start := time.Now()
	err = db.Freeze()
	if err != nil {
		return fmt.Errorf("make: can't write db %s: %s", fn, err)
	}
	delta := time.Since(start)
	speed := float64(tot) / delta.Seconds()
	opt.Printf("%d keys, %s (%3.1f keys/sec)\n", tot, delta.Truncate(time.Millisecond).String(), speed)

	return nil
}
