// utils.go -- utility functions
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

package mmph

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"os"
)

// set to true for verbose debug
const debug bool = false

func randbytes(n int) []byte {
	b := make([]byte, n)

	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		panic("can't read crypto/rand")
	}
	return b
}

func rand32() uint32 {
	var b [4]byte

	_, err := io.ReadFull(rand.Reader, b[:])
	if err != nil {
		panic("can't read crypto/rand")
	}

	return binary.BigEndian.Uint32(b[:])
}

// ceil(log2(x)); 0 for x <= 1
func ceilLog2(x uint64) int {
	if x <= 1 {
		return 0
	}
	return bits.Len64(x - 1)
}

// read 'width' bits (LSB first) starting at bit 'pos' of 'v'
func getBits(v []uint64, pos uint64, width uint) uint64 {
	if width == 0 {
		return 0
	}

	w := pos / 64
	off := pos % 64
	x := v[w] >> off
	if off+uint64(width) > 64 {
		x |= v[w+1] << (64 - off)
	}
	if width < 64 {
		x &= (uint64(1) << width) - 1
	}
	return x
}

// human readable size
func humansize(n uint64) string {
	const (
		_kB uint64 = 1 << 10
		_MB uint64 = 1 << 20
		_GB uint64 = 1 << 30
	)

	switch {
	case n >= _GB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(_GB))
	case n >= _MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(_MB))
	case n >= _kB:
		return fmt.Sprintf("%.2f kB", float64(n)/float64(_kB))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// write all bytes
func writeAll(w io.Writer, buf []byte) (int, error) {
	n, err := w.Write(buf)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return n, shortWrite(n, len(buf))
	}
	return n, nil
}

func printf(f string, v ...interface{}) {
	if !debug {
		return
	}

	s := fmt.Sprintf(f, v...)
	if n := len(s); s[n-1] != '\n' {
		s += "\n"
	}

	os.Stdout.WriteString(s)
	os.Stdout.Sync()
}
