// query.go -- 'query' command implementation
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

	"github.com/opencoff/go-mmph"
	flag "github.com/opencoff/pflag"
)

type queryCommand struct{}

func init() {
	m := queryCommand{}
	registerCommand("query", &m)
}

func (m *queryCommand) run(args []string, opt *Option) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: query DB KEY [KEY...]

Print the rank and the value of each KEY in 'DB'.
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("query: insufficient args")
	}

	db, err := mmph.NewDBReader(args[0], 1000)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	defer db.Close()

	var missing int
	for _, k := range args[1:] {
		r, err := db.Rank([]byte(k))
		if err != nil {
			warn("%s: %s", k, err)
			missing++
			continue
		}

		v, err := db.Find([]byte(k))
		if err != nil {
			warn("%s: %s", k, err)
			missing++
			continue
		}
		fmt.Printf("%s\t%d\t%s\n", k, r, v)
	}

	if missing > 0 {
		return fmt.Errorf("query: %d of %d keys not found", missing, len(args)-1)
	}
	return nil
}
