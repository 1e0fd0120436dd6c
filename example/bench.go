// bench.go -- 'bench' command: space and lookup speed of a hollow trie
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
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/opencoff/go-mmph"
	flag "github.com/opencoff/pflag"
	"github.com/spaolacci/murmur3"
	"golang.org/x/sync/errgroup"
)

type benchCommand struct{}

func init() {
	m := benchCommand{}
	registerCommand("bench", &m)
}

func (m *benchCommand) run(args []string, opt *Option) error {
	var workers, lookups int

	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Use `W` concurrent lookup workers")
	fs.IntVarP(&lookups, "lookups", "n", 1000000, "Do `N` lookups in all")
	fs.Usage = func() {
		fmt.Printf(`Usage: bench [options] FILE

Build a hollow trie over the sorted 64-bit integers in FILE (see 'gen'),
report its size and time lookups of every integer.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("bench: insufficient args")
	}
	if workers <= 0 {
		workers = 1
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	keys := make([]uint64, len(buf)/8)
	for i := range keys {
		keys[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	if len(keys) == 0 {
		return fmt.Errorf("bench: %s: no keys", args[0])
	}

	start := time.Now()
	ht, err := mmph.NewHollowTrie(keys, mmph.Uint64())
	if err != nil {
		return fmt.Errorf("bench: %s: %w", args[0], err)
	}
	delta := time.Since(start)

	st := ht.Stats()
	fmt.Printf("%s: %d keys, built in %s\n", args[0], ht.Len(), delta.Truncate(time.Millisecond))
	fmt.Printf("  %d bits (%4.2f bits/key, forecast %4.2f)\n", st.TotalBits, st.BitsPerKey, st.ForecastBitsPerKey)
	if opt.verbose {
		ht.DumpMeta(os.Stdout)
	}

	// baseline: hashing the same number of keys
	var b [8]byte
	var sink uint64
	start = time.Now()
	for i := 0; i < lookups; i++ {
		binary.BigEndian.PutUint64(b[:], keys[i%len(keys)])
		sink += murmur3.Sum64WithSeed(b[:], 0x1234)
	}
	hdelta := time.Since(start)

	var g errgroup.Group

	per := (lookups + workers - 1) / workers
	start = time.Now()
	for w := 0; w < workers; w++ {
		lo := w * per
		hi := min(lo+per, lookups)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				j := i % len(keys)
				if r := ht.Rank(keys[j]); r != int64(j) {
					return fmt.Errorf("key %#x: rank %d, exp %d", keys[j], r, j)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	rdelta := time.Since(start)

	opt.Printf("  murmur3 baseline checksum %#x\n", sink)
	fmt.Printf("  %d lookups, %d workers: %s (%4.1f ns/lookup; murmur3 %4.1f ns/key)\n",
		lookups, workers, rdelta.Truncate(time.Microsecond),
		nsPer(rdelta, lookups), nsPer(hdelta, lookups))
	return nil
}

func nsPer(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Nanoseconds()) / float64(n)
}
