// fsck.go -- 'fsck' command implementation
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
	"bytes"
	"fmt"
	"os"

	"github.com/opencoff/go-mmph"
	flag "github.com/opencoff/pflag"
)

type fsckCommand struct{}

func init() {
	m := fsckCommand{}
	registerCommand("fsck", &m)
}

// Opening the DB verifies the strong checksum; walking it verifies every
// record checksum, the key order and that each key ranks to its position.
func (m *fsckCommand) run(args []string, opt *Option) (err error) {
	var db *mmph.DBReader

	fs := flag.NewFlagSet("fsck", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: fsck [options] DB

where  'DB' is the name of the db

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("fsck: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("fsck: insufficient args")
	}

	fn := args[0]
	db, err = mmph.NewDBReader(fn, 1000)
	if err != nil {
		return fmt.Errorf("fsck: %w", err)
	}

	defer db.Close()

	opt.Printf(db.Desc())

	var i int64
	err = db.IterFunc(func(k []byte, v []byte) error {
		r, err := db.Rank(k)
		if err != nil {
			return fmt.Errorf("key '%s': %w", k, err)
		}
		if r != i {
			return fmt.Errorf("key '%s': rank %d, exp %d", k, r, i)
		}

		val, err := db.Find(k)
		if err != nil {
			return fmt.Errorf("key '%s': %w", k, err)
		}
		if !bytes.Equal(val, v) {
			return fmt.Errorf("key '%s': value mismatch", k)
		}
		i++
		return nil
	})
	if err != nil {
		return fmt.Errorf("fsck: %s: %w", fn, err)
	}

	fmt.Printf("%s: %d keys OK\n", fn, i)
	return nil
}
