// gen.go -- 'gen' command: write sorted random 64-bit integers
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
	"encoding/binary"
	"fmt"
	"os"
	"slices"
	"strconv"

	flag "github.com/opencoff/pflag"
	"github.com/zeebo/xxh3"
)

type genCommand struct{}

func init() {
	m := genCommand{}
	registerCommand("gen", &m)
}

func (m *genCommand) run(args []string, opt *Option) error {
	var seed uint64

	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Uint64VarP(&seed, "seed", "s", 0, "Derive the integers from seed `S`")
	fs.Usage = func() {
		fmt.Printf(`Usage: gen [options] N FILE

Write N distinct random 64-bit integers, sorted, to FILE as 8 byte
big-endian words. The same seed always gives the same integers.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("gen: %w", err)
	}

	args = fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("gen: insufficient args")
	}

	n, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("gen: %s: %w", args[0], err)
	}

	v := genInts(n, seed)

	var b [8]byte
	fd, err := os.OpenFile(args[1], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}

	wr := bufio.NewWriter(fd)
	for _, x := range v {
		binary.BigEndian.PutUint64(b[:], x)
		wr.Write(b[:])
	}

	if err = wr.Flush(); err != nil {
		fd.Close()
		return fmt.Errorf("gen: %s: %w", args[1], err)
	}
	if err = fd.Close(); err != nil {
		return fmt.Errorf("gen: %s: %w", args[1], err)
	}

	opt.Printf("%s: %d integers\n", args[1], len(v))
	return nil
}

// genInts returns 'n' distinct sorted integers derived from 'seed'. The
// hash of a counter may collide; the counter keeps going until there are
// enough distinct values.
func genInts(n, seed uint64) []uint64 {
	var b [8]byte

	v := make([]uint64, 0, n)
	for c := uint64(0); uint64(len(v)) < n; {
		for uint64(len(v)) < n {
			binary.BigEndian.PutUint64(b[:], c)
			v = append(v, xxh3.HashSeed(b[:], seed))
			c++
		}

		slices.Sort(v)
		v = slices.Compact(v)
	}
	return v
}
