// bitvector_test.go -- test suite for bitvector
//
// (c) Sudhi Herle 2018
//
// License GPLv2
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mmph

import (
	"bytes"
	"runtime"
	"sync"
	"testing"
)

// build a bitvector from a string of '0' and '1'
func bvFromString(s string) *BitVector {
	bv := NewBitVector(uint64(len(s)))
	for i := 0; i < len(s); i++ {
		bv.Append(s[i] == '1')
	}
	return bv
}

func TestBV(t *testing.T) {
	assert := newAsserter(t)

	bv := NewBitVector(100)
	for i := uint64(0); i < 100; i++ {
		bv.Append(1 == (i & 1))
	}
	assert(bv.Len() == 100, "size mismatch; exp 100, saw %d", bv.Len())
	assert(bv.Count() == 50, "count mismatch; exp 50, saw %d", bv.Count())

	for i := uint64(0); i < bv.Len(); i++ {
		if 1 == (i & 1) {
			assert(bv.Get(i), "%d not set", i)
		} else {
			assert(!bv.Get(i), "%d is set", i)
		}
	}
}

func TestBVAppendUint(t *testing.T) {
	assert := newAsserter(t)

	bv := NewBitVector(0)
	bv.AppendUint(0xa, 4)
	bv.AppendUint(0x3, 2)
	bv.AppendUint(0, 0)
	assert(bv.String() == "101011", "exp 101011, saw %s", bv.String())

	// straddle a word boundary
	bv = NewBitVector(0)
	bv.AppendUint(0, 60)
	bv.AppendUint(0xff, 8)
	assert(bv.Len() == 68, "exp 68 bits, saw %d", bv.Len())
	for i := uint64(0); i < 68; i++ {
		assert(bv.Get(i) == (i >= 60), "bit %d wrong", i)
	}

	bv = NewBitVector(0)
	bv.AppendUint(1<<63|1, 64)
	assert(bv.Get(0) && bv.Get(63) && bv.Count() == 2, "64 bit append wrong: %s", bv.String())
}

func TestBVAppendVector(t *testing.T) {
	assert := newAsserter(t)
	r := newTestRand(t)

	for n := 0; n < 200; n++ {
		a := NewBitVector(0)
		b := NewBitVector(0)
		var exp []byte

		na := r.Intn(150)
		nb := r.Intn(150)
		for i := 0; i < na; i++ {
			x := r.Intn(2) == 1
			a.Append(x)
			exp = append(exp, "01"[b2i(x)])
		}
		for i := 0; i < nb; i++ {
			x := r.Intn(2) == 1
			b.Append(x)
			exp = append(exp, "01"[b2i(x)])
		}

		a.AppendVector(b)
		assert(a.String() == string(exp), "append mismatch:\nexp %s\nsaw %s", exp, a.String())

		// bits past the end stay clear
		if rem := a.Len() % 64; rem > 0 {
			w := a.Words()
			assert(w[len(w)-1]>>rem == 0, "stray bits past %d", a.Len())
		}
	}
}

func TestBVCompare(t *testing.T) {
	assert := newAsserter(t)

	tests := []struct {
		a, b string
		lcp  uint64
		cmp  int
	}{
		{"", "", 0, 0},
		{"", "0", 0, -1},
		{"1", "", 0, 1},
		{"0101", "0101", 4, 0},
		{"0101", "01011", 4, -1},
		{"0110", "0101", 2, 1},
		{"0100", "0101", 3, -1},
	}

	for _, tc := range tests {
		a := bvFromString(tc.a)
		b := bvFromString(tc.b)

		assert(a.LCP(b) == tc.lcp, "lcp(%s, %s): exp %d, saw %d", tc.a, tc.b, tc.lcp, a.LCP(b))
		assert(b.LCP(a) == tc.lcp, "lcp(%s, %s): exp %d, saw %d", tc.b, tc.a, tc.lcp, b.LCP(a))
		assert(a.Compare(b) == tc.cmp, "cmp(%s, %s): exp %d, saw %d", tc.a, tc.b, tc.cmp, a.Compare(b))
		assert(b.Compare(a) == -tc.cmp, "cmp(%s, %s): exp %d, saw %d", tc.b, tc.a, -tc.cmp, b.Compare(a))
	}

	// long vectors that differ past the first word
	a := NewBitVector(0)
	a.AppendUint(0, 64)
	a.AppendUint(0x5, 3)
	b := a.Clone()
	b.Append(true)
	c := NewBitVector(0)
	c.AppendUint(0, 64)
	c.AppendUint(0x6, 3)

	assert(a.LCP(b) == 67, "lcp exp 67, saw %d", a.LCP(b))
	assert(a.LCP(c) == 65, "lcp exp 65, saw %d", a.LCP(c))
	assert(a.Compare(c) < 0, "exp a < c")
}

// Test concurrent readers
func TestBVConcurrent(t *testing.T) {
	assert := newAsserter(t)
	ncpu := runtime.NumCPU() * 2

	bv := NewBitVector(1000)
	for i := uint64(0); i < 1000; i++ {
		bv.Append(1 == (i & 1))
	}

	errs := make([]uint64, ncpu)
	var w sync.WaitGroup
	w.Add(ncpu)
	for i := 0; i < ncpu; i++ {
		go func(i int, a *BitVector) {
			defer w.Done()

			for j := uint64(0); j < a.Len(); j++ {
				if a.Get(j) != (1 == (j & 1)) {
					errs[i]++
				}
			}
		}(i, bv)
	}

	w.Wait()

	for i, e := range errs {
		assert(e == 0, "reader %d saw %d wrong bits", i, e)
	}
}

func TestBVMarshal(t *testing.T) {
	assert := newAsserter(t)

	var b bytes.Buffer

	bv := NewBitVector(100)
	for i := uint64(0); i < 100; i++ {
		bv.Append(1 == (i & 1))
	}

	bv.MarshalBinary(&b)
	expsz := 8 * (1 + uint64(len(bv.Words())))
	assert(uint64(b.Len()) == expsz, "marshal size incorrect; exp %d, saw %d", expsz, b.Len())

	bn, n, err := unmarshalBitVector(b.Bytes())
	assert(err == nil, "unmarshal failed: %s", err)
	assert(bn.Len() == bv.Len(), "unmarshal size error; exp %d, saw %d", bv.Len(), bn.Len())
	assert(n == uint64(b.Len()), "unmarshal: not enough bytes consumed; exp %d, saw %d", b.Len(), n)
	assert(bn.Compare(bv) == 0, "unmarshal: bits differ")

	_, _, err = unmarshalBitVector(b.Bytes()[:b.Len()-1])
	assert(err == ErrTooSmall, "short buffer: exp ErrTooSmall, saw %v", err)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
