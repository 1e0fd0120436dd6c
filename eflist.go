// eflist.go -- compact list of non-negative integers
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
	"fmt"
	"io"
	"math/bits"

	"github.com/hillbig/rsdic"
)

// efList stores a list of arbitrary non-negative integers. Each value x is
// written as the binary digits of x+1 without the leading one; the
// digits of all values are concatenated in 'payload'. The start offset of
// every value (plus a final end offset) is a monotone sequence which is
// kept in Elias-Fano form:
//
//   - the low 'l' bits of each offset packed in 'low'
//   - the high part as a unary coded bitmap: offset i sets bit
//     (offset >> l) + i. rsdic resolves select queries on it.
//
// Small values cost a couple of bits each and large values don't inflate
// the others.
type efList struct {
	n       uint64
	payload []uint64
	low     []uint64
	l       uint
	high    *rsdic.RSDic
}

// newEFList builds a compact list holding 'vals'
func newEFList(vals []uint64) *efList {
	e := &efList{
		n: uint64(len(vals)),
	}

	pay := NewBitVector(uint64(len(vals)) * 4)
	offs := make([]uint64, 0, len(vals)+1)
	for _, x := range vals {
		offs = append(offs, pay.Len())

		// x+1 overflows only for the max uint64; no skip gets there.
		y := x + 1
		w := uint(bits.Len64(y)) - 1
		pay.appendLow(y, w)
	}
	offs = append(offs, pay.Len())
	e.payload = pay.Words()

	// Elias-Fano over the n+1 offsets; universe is the payload length
	m := uint64(len(offs))
	u := pay.Len() + 1
	if u > m {
		e.l = uint(bits.Len64(u/m)) - 1
	}

	lowbv := NewBitVector(m * uint64(e.l))
	e.high = rsdic.New()

	var prev uint64
	for _, o := range offs {
		lowbv.appendLow(o, e.l)
		h := o >> e.l
		for ; prev < h; prev++ {
			e.high.PushBack(false)
		}
		e.high.PushBack(true)
	}
	e.low = lowbv.Words()

	return e
}

// Len returns the number of values in the list
func (e *efList) Len() uint64 {
	return e.n
}

// Get returns the i'th value
func (e *efList) Get(i uint64) uint64 {
	if i >= e.n {
		panic(fmt.Sprintf("eflist: index %d out of range [0, %d)", i, e.n))
	}

	start := e.offset(i)
	end := e.offset(i + 1)
	w := uint(end - start)
	x := getBits(e.payload, start, w)
	return ((uint64(1) << w) | x) - 1
}

// NumBits returns the space used by the list
func (e *efList) NumBits() uint64 {
	n := uint64(len(e.payload)+len(e.low)) * 64
	return n + uint64(e.high.AllocSize())*8
}

// DumpMeta writes a one line description to 'w'
func (e *efList) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "  eflist: %d values, %d low bits, %d payload words, %s\n",
		e.n, e.l, len(e.payload), humansize(e.NumBits()/8))
}

// i'th entry of the monotone offset sequence
func (e *efList) offset(i uint64) uint64 {
	h := e.high.Select(i, true) - i
	return (h << e.l) | getBits(e.low, i*uint64(e.l), e.l)
}
