// bitvector.go -- variable length bit vectors for trie keys and shapes
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
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"strings"
)

// BitVector is a growable sequence of bits. Bit 'i' lives in word i/64 at
// position i%64. Bits past Len() are always zero; LCP() and Compare()
// depend on it.
//
// A BitVector is built by appending and is read-only afterwards; concurrent
// readers need no locking.
type BitVector struct {
	v []uint64
	n uint64
}

// NewBitVector returns an empty bitvector with room for at least 'sz' bits.
func NewBitVector(sz uint64) *BitVector {
	return &BitVector{
		v: make([]uint64, 0, nwords(sz)),
	}
}

// bitVectorFromWords wraps 'v' as a bitvector of 'n' bits. Stray bits past
// 'n' are cleared.
func bitVectorFromWords(v []uint64, n uint64) *BitVector {
	b := &BitVector{
		v: v[:nwords(n)],
		n: n,
	}
	if r := n % 64; r > 0 {
		b.v[len(b.v)-1] &= (uint64(1) << r) - 1
	}
	return b
}

// Len returns the number of bits in this bitvector
func (b *BitVector) Len() uint64 {
	return b.n
}

// Words returns the underlying words; callers must not modify them.
func (b *BitVector) Words() []uint64 {
	return b.v
}

// Get returns true if bit 'i' is set
func (b *BitVector) Get(i uint64) bool {
	return 1 == (1 & (b.v[i/64] >> (i % 64)))
}

// Append adds a single bit at the end
func (b *BitVector) Append(bit bool) {
	if b.n%64 == 0 {
		b.v = append(b.v, 0)
	}
	if bit {
		b.v[b.n/64] |= uint64(1) << (b.n % 64)
	}
	b.n++
}

// AppendUint appends the low 'width' bits of 'x', most significant bit
// first. This is the order that makes lexicographic bit order agree with
// numeric order.
func (b *BitVector) AppendUint(x uint64, width uint) {
	if width == 0 {
		return
	}
	if width > 64 {
		panic(fmt.Sprintf("bitvector: width %d too large", width))
	}

	r := bits.Reverse64(x << (64 - width))
	b.appendLow(r, width)
}

// AppendVector appends all the bits of 'o'
func (b *BitVector) AppendVector(o *BitVector) {
	if o.n == 0 {
		return
	}

	off := b.n % 64
	w := b.n / 64
	b.grow(b.n + o.n)

	src := o.v[:nwords(o.n)]
	if off == 0 {
		copy(b.v[w:], src)
	} else {
		for i, x := range src {
			j := int(w) + i
			b.v[j] |= x << off
			if j+1 < len(b.v) {
				b.v[j+1] |= x >> (64 - off)
			}
		}
	}
	b.n += o.n
}

// append the low 'width' bits of 'x' in LSB first order
func (b *BitVector) appendLow(x uint64, width uint) {
	if width == 0 {
		return
	}
	if width < 64 {
		x &= (uint64(1) << width) - 1
	}

	off := b.n % 64
	w := b.n / 64
	b.grow(b.n + uint64(width))

	b.v[w] |= x << off
	if off+uint64(width) > 64 {
		b.v[w+1] |= x >> (64 - off)
	}
	b.n += uint64(width)
}

// make sure we have enough words to hold 'n' bits
func (b *BitVector) grow(n uint64) {
	for uint64(len(b.v)) < nwords(n) {
		b.v = append(b.v, 0)
	}
}

// LCP returns the length of the longest common prefix of 'b' and 'o'.
func (b *BitVector) LCP(o *BitVector) uint64 {
	m := b.n
	if o.n < m {
		m = o.n
	}

	nw := nwords(m)
	for i := uint64(0); i < nw; i++ {
		if x := b.v[i] ^ o.v[i]; x != 0 {
			p := i*64 + uint64(bits.TrailingZeros64(x))
			if p > m {
				p = m
			}
			return p
		}
	}
	return m
}

// Compare orders two bitvectors lexicographically; a proper prefix sorts
// before its extensions. It returns -1, 0 or +1.
func (b *BitVector) Compare(o *BitVector) int {
	p := b.LCP(o)
	switch {
	case p == b.n && p == o.n:
		return 0
	case p == b.n:
		return -1
	case p == o.n:
		return 1
	case b.Get(p):
		return 1
	default:
		return -1
	}
}

// Count returns the number of set bits
func (b *BitVector) Count() uint64 {
	var p uint64
	for _, w := range b.v {
		p += uint64(bits.OnesCount64(w))
	}
	return p
}

// Clone returns a deep copy
func (b *BitVector) Clone() *BitVector {
	v := make([]uint64, len(b.v))
	copy(v, b.v)
	return &BitVector{v: v, n: b.n}
}

// String renders the bits as '0' and '1' characters.
func (b *BitVector) String() string {
	var s strings.Builder

	s.Grow(int(b.n))
	for i := uint64(0); i < b.n; i++ {
		if b.Get(i) {
			s.WriteByte('1')
		} else {
			s.WriteByte('0')
		}
	}
	return s.String()
}

// MarshalBinary writes the bitvector in a portable format to writer 'w':
// the bit length followed by the words, all little-endian.
func (b *BitVector) MarshalBinary(w io.Writer) (int, error) {
	nw := nwords(b.n)
	buf := make([]byte, 8+(8*nw))

	le := binary.LittleEndian
	le.PutUint64(buf[:8], b.n)
	for i, x := range b.v[:nw] {
		le.PutUint64(buf[8+(8*i):], x)
	}
	return writeAll(w, buf)
}

// unmarshalBitVector reads a previously encoded bitvector and reconstructs
// the in-memory version. It returns the number of bytes consumed.
func unmarshalBitVector(buf []byte) (*BitVector, uint64, error) {
	if len(buf) < 8 {
		return nil, 0, ErrTooSmall
	}

	le := binary.LittleEndian
	n := le.Uint64(buf[:8])
	if n > (1 << 40) {
		return nil, 0, fmt.Errorf("bitvector: length %d is invalid: %w", n, ErrCorrupt)
	}

	nw := nwords(n)
	buf = buf[8:]
	if uint64(len(buf)) < nw*8 {
		return nil, 0, ErrTooSmall
	}

	v := make([]uint64, nw)
	for i := range v {
		v[i] = le.Uint64(buf[8*i:])
	}
	return bitVectorFromWords(v, n), 8 + (nw * 8), nil
}

// number of 64-bit words needed to hold 'n' bits
func nwords(n uint64) uint64 {
	return (n + 63) / 64
}
