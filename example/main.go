// main.go -- build, inspect and benchmark hollow trie constant DBs
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

// mmphdb is an example of using DBWriter() and DBReader.
// One can construct the on-disk ordered DB using a variety of input:
//   - white space delimited text file: first field is key, second field is value
//   - Comma Separated text file (CSV): first field is key, second field is value
//   - either of the above, gzip'd
//
// The 'gen' and 'bench' commands work on files of sorted 64-bit integers
// and measure the space and lookup speed of a bare hollow trie.

package main

import (
	"fmt"
	"os"
	"strings"

	flag "github.com/opencoff/pflag"
)

func main() {
	var opt Option

	usage := fmt.Sprintf(
		`%s - make an ordered constant DB from one or more inputs

Usage: %s [global-options] CMD CMD-ARGS...

CMD is an operation to be performed and CMD-ARGS are operation specific 
arguments. The list of supported operations are:

  make [options] DB [INPUTS...]   -- Make a new db from the inputs
  dump [options] DB               -- Dump a db in key order
  fsck [options] DB               -- Verify the integrity of the DB
  query DB KEY...                 -- Print the rank and value of keys
  gen [options] N FILE            -- Write N sorted random 64-bit ints
  bench [options] FILE            -- Time a hollow trie over a 'gen' file

Known commands: %s

Options:
`, os.Args[0], os.Args[0], strings.Join(commandNames(), ", "))

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(os.Stdout)
	fs.BoolVarP(&opt.verbose, "verbose", "V", false, "Show verbose output")
	fs.Usage = func() {
		fmt.Printf(usage)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		die("%s", err)
	}

	args := fs.Args()
	if len(args) < 2 {
		fmt.Printf(usage)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err := runCommand(fs.Args(), &opt)
	if err != nil {
		die("%s", err)
	}
}

// die with error
func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", os.Args[0], f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); s[n-1] != '\n' {
		s += "\n"
	}

	os.Stderr.WriteString(s)
	os.Stderr.Sync()
}

// vim: ft=go:sw=4:ts=4:noexpandtab:tw=78:
