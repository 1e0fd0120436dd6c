// bp.go -- balanced parentheses navigation over a static bitvector
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
	"math"

	"github.com/openacid/low/bitmap"
)

// The excess at a position is the number of open minus the number of
// close parentheses up to and including that position. The parenthesis
// closing the open one at 'p' is the first position after 'p' where the
// excess drops below excess(p).
//
// Excess at any word boundary comes from the rank index. To avoid
// walking every bit between an open parenthesis and its mate, we keep the
// minimum excess reached inside every word and inside every block of 8^k
// words (relative to the start of the word/block); a block whose minimum
// can't reach the target is skipped whole.

// fan-out of the min-excess hierarchy, as a shift
const _BPFanShift = 3

// bpIndex is the default BalancedParens implementation.
type bpIndex struct {
	bv    *BitVector
	words []uint64

	// rank index from openacid/low/bitmap
	rank []int32

	// min relative excess inside each word
	wmin []int8

	// levels[k] holds the min relative excess of each block of
	// 8^(k+1) words
	levels [][]int32
}

// newBPIndex builds a navigation index over 'bv'; 'bv' must not be
// modified afterwards.
func newBPIndex(bv *BitVector) *bpIndex {
	words := bv.Words()
	_, rank := bitmap.IndexSelect32R64(words)

	b := &bpIndex{
		bv:    bv,
		words: words,
		rank:  rank,
		wmin:  make([]int8, len(words)),
	}

	mins := make([]int32, len(words))
	delta := make([]int32, len(words))
	for i, x := range words {
		m, d := wordExcess(x)
		b.wmin[i] = int8(m)
		mins[i] = m
		delta[i] = d
	}

	fan := 1 << _BPFanShift
	for len(mins) > 1 {
		n := (len(mins) + fan - 1) / fan
		m := make([]int32, n)
		d := make([]int32, n)

		for j := range m {
			var off int32
			var mn int32 = math.MaxInt32

			end := min((j+1)*fan, len(mins))
			for c := j * fan; c < end; c++ {
				if v := off + mins[c]; v < mn {
					mn = v
				}
				off += delta[c]
			}
			m[j] = mn
			d[j] = off
		}

		b.levels = append(b.levels, m)
		mins, delta = m, d
	}

	return b
}

// BitAt returns true if 'p' is an open parenthesis
func (b *bpIndex) BitAt(p uint64) bool {
	return b.bv.Get(p)
}

// Len returns the length of the underlying sequence
func (b *bpIndex) Len() uint64 {
	return b.bv.Len()
}

// NumBits returns the bits used by the sequence and its indices
func (b *bpIndex) NumBits() uint64 {
	n := uint64(len(b.words)) * 64
	n += uint64(len(b.rank)) * 32
	n += uint64(len(b.wmin)) * 8
	for _, l := range b.levels {
		n += uint64(len(l)) * 32
	}
	return n
}

// FindClose returns the position of the close parenthesis matching the
// open parenthesis at 'p'.
func (b *bpIndex) FindClose(p uint64) uint64 {
	r, bit := bitmap.Rank64(b.words, b.rank, int32(p))
	if bit == 0 {
		panic(fmt.Sprintf("bp: findclose at %d: not an open parenthesis", p))
	}

	cur := 2*int64(r) - int64(p) + 1
	target := cur - 1

	// rest of the word holding 'p'
	w := p / 64
	x := b.words[w]
	for i := p%64 + 1; i < 64; i++ {
		if 1 == (1 & (x >> i)) {
			cur++
		} else {
			cur--
		}
		if cur == target {
			return w*64 + i
		}
	}

	nw := uint64(len(b.words))
	for w++; w < nw; {
		if cur+int64(b.wmin[w]) <= target {
			return b.scanWord(w, cur, target)
		}

		// widest aligned block starting at 'w' that stays above target
		k := 0
		for k < len(b.levels) {
			shift := uint((k + 1) * _BPFanShift)
			if w&((uint64(1)<<shift)-1) != 0 {
				break
			}
			if cur+int64(b.levels[k][w>>shift]) <= target {
				break
			}
			k++
		}

		w += uint64(1) << uint(k*_BPFanShift)
		if w >= nw {
			break
		}
		cur = b.excessBefore(w * 64)
	}

	panic(fmt.Sprintf("bp: findclose at %d: unbalanced sequence", p))
}

// find the target excess inside word 'w'; 'cur' is the excess just before it
func (b *bpIndex) scanWord(w uint64, cur, target int64) uint64 {
	x := b.words[w]
	for i := uint64(0); i < 64; i++ {
		if 1 == (1 & (x >> i)) {
			cur++
		} else {
			cur--
		}
		if cur == target {
			return w*64 + i
		}
	}
	panic(fmt.Sprintf("bp: word %d: min excess index is wrong", w))
}

// excess of the bits in [0, pos)
func (b *bpIndex) excessBefore(pos uint64) int64 {
	r, _ := bitmap.Rank64(b.words, b.rank, int32(pos))
	return 2*int64(r) - int64(pos)
}

// min prefix excess and total excess of a word
func wordExcess(x uint64) (int32, int32) {
	var cur int32
	var mn int32 = math.MaxInt32

	for i := 0; i < 64; i++ {
		if 1 == (1 & (x >> i)) {
			cur++
		} else {
			cur--
		}
		if cur < mn {
			mn = cur
		}
	}
	return mn, cur
}

// validParens returns true if 'bv' is a non-empty balanced parentheses
// sequence wrapped in a single outer pair.
func validParens(bv *BitVector) bool {
	n := bv.Len()
	if n < 2 || n%2 != 0 || bv.Count() != n/2 {
		return false
	}

	var cur int64
	for i, x := range bv.Words() {
		base := uint64(i) * 64
		k := min(uint64(64), n-base)
		if k == 64 && (x == math.MaxUint64) {
			cur += 64
			continue
		}
		for j := uint64(0); j < k; j++ {
			if 1 == (1 & (x >> j)) {
				cur++
			} else {
				cur--
			}
			// only the last parenthesis may close the outer pair
			if cur == 0 && base+j != n-1 {
				return false
			}
		}
	}
	return cur == 0 && bv.Get(0)
}
