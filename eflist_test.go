// eflist_test.go -- test suite for the compact integer list
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
	"math"
	"testing"
)

func testEFList(t *testing.T, vals []uint64) *efList {
	assert := newAsserter(t)

	e := newEFList(vals)
	assert(e.Len() == uint64(len(vals)), "len: exp %d, saw %d", len(vals), e.Len())
	for i, v := range vals {
		x := e.Get(uint64(i))
		assert(x == v, "%d: exp %d, saw %d", i, v, x)
	}
	return e
}

func TestEFListSmall(t *testing.T) {
	testEFList(t, []uint64{0})
	testEFList(t, []uint64{0, 0, 0})
	testEFList(t, []uint64{0, 1, 2})
	testEFList(t, []uint64{1, 0, 1, 0})
	testEFList(t, []uint64{7, 8, 6, 0, 255, 256})
	testEFList(t, []uint64{})
}

func TestEFListLarge(t *testing.T) {
	testEFList(t, []uint64{1 << 40, 0, 1<<62 + 3, 1, math.MaxUint64 - 1})
}

func TestEFListRandom(t *testing.T) {
	assert := newAsserter(t)
	r := newTestRand(t)

	vals := make([]uint64, 50000)
	for i := range vals {
		// mostly small with the odd large value, like trie skips
		if r.Intn(100) == 0 {
			vals[i] = uint64(r.Int63n(1 << 30))
		} else {
			vals[i] = uint64(r.Intn(16))
		}
	}

	e := testEFList(t, vals)

	// a few bits per value, nowhere near 64
	bpv := float64(e.NumBits()) / float64(len(vals))
	assert(bpv < 16, "%4.2f bits/value is too much", bpv)
}
