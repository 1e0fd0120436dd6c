// hutucker.go -- order preserving optimal prefix code for strings
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
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// The alphabet is a terminator symbol (0) followed by the 256 byte
// values (b+1). The terminator sorts before every byte, so the code of
// a string followed by the terminator preserves string order and no
// encoded string is a prefix of another.
const (
	_HuTuckerSymbols   = 257
	_HuTuckerTableSize = 2 * _HuTuckerSymbols
)

// huTucker is an alphabetic (order preserving) minimum redundancy code,
// built with the Garsia-Wachs algorithm.
type huTucker struct {
	lens  [_HuTuckerSymbols]uint16
	codes [_HuTuckerSymbols]*BitVector
}

// HuTucker returns a transform whose code is trained on the byte
// frequencies of 'keys'. Every symbol gets a code, so keys that weren't
// seen during training can still be encoded.
func HuTucker(keys []string) StringTransform {
	var freq [_HuTuckerSymbols]uint64

	for _, k := range keys {
		for i := 0; i < len(k); i++ {
			freq[int(k[i])+1]++
		}
	}
	freq[0] = uint64(len(keys))

	// unseen symbols still need (long) codes
	for i := range freq {
		freq[i]++
	}

	lens := garsiaWachs(freq[:])

	var l [_HuTuckerSymbols]uint16
	for i, d := range lens {
		l[i] = uint16(d)
	}

	h, err := huTuckerFromLengths(l)
	if err != nil {
		panic(fmt.Sprintf("hutucker: %s", err))
	}
	return h
}

// assign codes left to right from the leaf depths of an alphabetic tree
func huTuckerFromLengths(lens [_HuTuckerSymbols]uint16) (*huTucker, error) {
	h := &huTucker{
		lens: lens,
	}

	// working code, one byte per bit, most significant first
	var c []byte
	for i, l := range lens {
		if l == 0 {
			return nil, fmt.Errorf("hutucker: symbol %d has no code: %w", i, ErrCorrupt)
		}

		if i > 0 {
			// c+1; the next leaf in order can't overflow
			j := len(c) - 1
			for ; j >= 0 && c[j] == 1; j-- {
				c[j] = 0
			}
			if j < 0 {
				return nil, fmt.Errorf("hutucker: code lengths overflow at symbol %d: %w", i, ErrCorrupt)
			}
			c[j] = 1
		}

		n := int(l)
		switch {
		case n > len(c):
			c = append(c, make([]byte, n-len(c))...)
		case n < len(c):
			for _, z := range c[n:] {
				if z != 0 {
					return nil, fmt.Errorf("hutucker: code lengths not alphabetic at symbol %d: %w", i, ErrCorrupt)
				}
			}
			c = c[:n]
		}

		bv := NewBitVector(uint64(n))
		for _, z := range c {
			bv.Append(z == 1)
		}
		h.codes[i] = bv
	}

	// the last code must be all ones for a complete tree
	for _, z := range c {
		if z != 1 {
			return nil, fmt.Errorf("hutucker: incomplete code: %w", ErrCorrupt)
		}
	}
	return h, nil
}

func (h *huTucker) ToBitVector(s string) *BitVector {
	bv := NewBitVector(uint64(len(s)+1) * 8)
	for i := 0; i < len(s); i++ {
		bv.AppendVector(h.codes[int(s[i])+1])
	}
	bv.AppendVector(h.codes[0])
	return bv
}

// NumBits counts the codes and their lengths
func (h *huTucker) NumBits() uint64 {
	var n uint64
	for _, l := range h.lens {
		n += uint64(l) + 16
	}
	return n
}

func (h *huTucker) Kind() TransformKind {
	return TransformHuTucker
}

func (h *huTucker) MarshalBinary(w io.Writer) (int, error) {
	var x [8 + _HuTuckerTableSize]byte

	x[0] = byte(TransformHuTucker)
	for i, l := range h.lens {
		binary.LittleEndian.PutUint16(x[8+(2*i):], l)
	}
	return writeAll(w, x[:])
}

// gwNode is a node of the Garsia-Wachs combination tree
type gwNode struct {
	w           uint64
	left, right int
}

// garsiaWachs returns the leaf depths of an optimal alphabetic tree for
// the weights 'freq'.
func garsiaWachs(freq []uint64) []int {
	n := len(freq)
	nodes := make([]gwNode, 0, 2*n)
	seq := make([]int, 0, n)
	for i, f := range freq {
		nodes = append(nodes, gwNode{w: f, left: -1, right: -1})
		seq = append(seq, i)
	}

	wt := func(i int) uint64 {
		if i >= len(seq) {
			return math.MaxUint64
		}
		return nodes[seq[i]].w
	}

	for len(seq) > 1 {
		// leftmost triple x, y, z with x <= z; a virtual infinite weight
		// sits past the end
		j := 1
		for ; j < len(seq)-1; j++ {
			if wt(j-1) <= wt(j+1) {
				break
			}
		}

		x := len(nodes)
		nodes = append(nodes, gwNode{
			w:     nodes[seq[j-1]].w + nodes[seq[j]].w,
			left:  seq[j-1],
			right: seq[j],
		})
		seq = append(seq[:j-1], seq[j+1:]...)

		// move left past every lighter node
		k := j - 2
		for k >= 0 && nodes[seq[k]].w < nodes[x].w {
			k--
		}
		seq = append(seq, 0)
		copy(seq[k+2:], seq[k+1:])
		seq[k+1] = x
	}

	depth := make([]int, n)
	var walk func(i, d int)
	walk = func(i, d int) {
		nd := &nodes[i]
		if nd.left < 0 {
			depth[i] = d
			return
		}
		walk(nd.left, d+1)
		walk(nd.right, d+1)
	}
	walk(seq[0], 0)
	return depth
}
