// hollowtrie.go - monotone minimal perfect hashing with a hollow trie
//
// A hollow trie is a compacted binary trie over the (prefix-free) bit
// vectors of the keys that remembers only how many bits each internal
// node skips; the key bits themselves are thrown away. The shape is stored
// as balanced parentheses and the skips in a compact integer list, which
// gets close to the minimum space a monotone hash can use.
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
	"bytes"
	"fmt"
	"io"
	"math"
)

// Option configures the succinct structures of a hollow trie
type Option func(*config)

type config struct {
	parens func(*BitVector) BalancedParens
	ints   func([]uint64) IntList
}

func defaultConfig() *config {
	return &config{
		parens: func(bv *BitVector) BalancedParens {
			return newBPIndex(bv)
		},
		ints: func(v []uint64) IntList {
			return newEFList(v)
		},
	}
}

// WithParens sets the constructor of the balanced parentheses index
// built over the trie shape.
func WithParens(fp func(*BitVector) BalancedParens) Option {
	return func(c *config) {
		c.parens = fp
	}
}

// WithIntList sets the constructor of the list holding the skips.
func WithIntList(fp func([]uint64) IntList) Option {
	return func(c *config) {
		c.ints = fp
	}
}

// HollowTrie is a frozen monotone minimal perfect hash function. It is
// read-only; Rank() is safe for concurrent use.
type HollowTrie[K any] struct {
	t Transform[K]

	// shape of the trie: a fake outer pair around the parentheses of
	// every internal node in preorder
	shape  *BitVector
	parens BalancedParens

	// skips of internal nodes in preorder
	skips IntList

	size  uint64
	stats Stats
}

// Stats describes the space used by a hollow trie
type Stats struct {
	Keys      uint64
	Nodes     uint64
	MaxSkip   uint64
	SkipWidth int
	AvgSkip   float64

	ShapeBits     uint64
	SkipBits      uint64
	TransformBits uint64
	TotalBits     uint64

	// expected cost per key from the average skip, and the real one
	ForecastBitsPerKey float64
	BitsPerKey         float64
}

// NewHollowTrie builds a hollow trie over 'keys'; the bit vectors of the
// keys under 't' must be sorted, distinct and prefix-free.
func NewHollowTrie[K any](keys []K, t Transform[K], opts ...Option) (*HollowTrie[K], error) {
	b := NewBuilder(t, opts...)
	for _, k := range keys {
		if err := b.Add(k); err != nil {
			return nil, err
		}
	}
	return b.freeze()
}

// build the query structures over a finished shape and skip sequence
func newHollowTrie[K any](size uint64, shape *BitVector, skips []uint64, t Transform[K], cfg *config) *HollowTrie[K] {
	h := &HollowTrie[K]{
		t:    t,
		size: size,
	}

	if size > 1 {
		h.shape = shape
		h.parens = cfg.parens(shape)
		h.skips = cfg.ints(skips)
	}
	h.stats = h.computeStats(skips)

	printf("hollowtrie: %d keys, %d nodes, max skip %d (%d bits), %.3f bits/key",
		h.stats.Keys, h.stats.Nodes, h.stats.MaxSkip, h.stats.SkipWidth, h.stats.BitsPerKey)
	return h
}

// Len returns the number of keys
func (h *HollowTrie[K]) Len() int {
	return int(h.size)
}

// Rank returns the position of 'key' in the sorted key set. For keys that
// were not in the set the result is any value in [0, Len()) or NotFound;
// a valid rank does not prove membership.
func (h *HollowTrie[K]) Rank(key K) int64 {
	if h.size <= 1 {
		return int64(h.size) - 1
	}
	return h.walk(h.t.ToBitVector(key))
}

// RankBits is Rank() for a key that is already a bit vector
func (h *HollowTrie[K]) RankBits(bv *BitVector) int64 {
	if h.size <= 1 {
		return int64(h.size) - 1
	}
	return h.walk(bv)
}

// Descend the trie. 'p' is the open parenthesis of the current node, 's'
// the key bit being looked at, 'r' the preorder index of the current node
// (its skip) and 'index' the number of leaves left of the current node.
func (h *HollowTrie[K]) walk(bv *BitVector) int64 {
	var s, r uint64
	var index int64

	p := uint64(1)
	n := bv.Len()
	for {
		s += h.skips.Get(r)
		if s >= n {
			return NotFound
		}

		if bv.Get(s) {
			// the left subtree spans [p, q); it has (q-p)/2 internal
			// nodes and as many leaves as this node's left side has
			q := h.parens.FindClose(p) + 1
			d := (q - p) / 2
			r += d
			index += int64(d)
			if !h.parens.BitAt(q) {
				return index
			}
			p = q
		} else {
			p++
			if !h.parens.BitAt(p) {
				return index
			}
			r++
		}

		s++
	}
}

// NumBits returns the bits used by the shape, the skips and the transform
func (h *HollowTrie[K]) NumBits() uint64 {
	return h.stats.TotalBits
}

// Stats returns the space statistics of the trie
func (h *HollowTrie[K]) Stats() Stats {
	return h.stats
}

func (h *HollowTrie[K]) computeStats(skips []uint64) Stats {
	st := Stats{
		Keys:          h.size,
		Nodes:         uint64(len(skips)),
		TransformBits: h.t.NumBits(),
	}

	if h.size > 1 {
		st.ShapeBits = h.parens.NumBits()
		st.SkipBits = h.skips.NumBits()
	}
	st.TotalBits = st.ShapeBits + st.SkipBits + st.TransformBits

	var sum uint64
	for _, s := range skips {
		sum += s
		if s > st.MaxSkip {
			st.MaxSkip = s
		}
	}
	st.SkipWidth = ceilLog2(st.MaxSkip)

	if len(skips) > 0 {
		st.AvgSkip = float64(sum) / float64(len(skips))
	}
	if st.AvgSkip > 0 {
		l := math.Log2(st.AvgSkip)
		st.ForecastBitsPerKey = 4 + l
		if l > -1 {
			st.ForecastBitsPerKey += math.Log2(1 + l)
		}
	}
	if h.size > 0 {
		st.BitsPerKey = float64(st.TotalBits) / float64(h.size)
	}
	return st
}

// DumpMeta dumps the metadata of the hollow trie
func (h *HollowTrie[K]) DumpMeta(w io.Writer) {
	var b bytes.Buffer

	st := &h.stats
	fmt.Fprintf(&b, "  HollowTrie: %d keys, %d internal nodes\n", st.Keys, st.Nodes)
	fmt.Fprintf(&b, "    skips: max %d (%d bits wide), avg %4.2f\n", st.MaxSkip, st.SkipWidth, st.AvgSkip)
	fmt.Fprintf(&b, "    shape %d bits, skips %d bits, transform %d bits; total %s\n",
		st.ShapeBits, st.SkipBits, st.TransformBits, humansize(st.TotalBits/8))
	fmt.Fprintf(&b, "    bits/key: forecast %4.2f, actual %4.2f\n", st.ForecastBitsPerKey, st.BitsPerKey)

	if e, ok := h.skips.(*efList); ok {
		e.DumpMeta(&b)
	}
	w.Write(b.Bytes())
}

// Builder incrementally builds a hollow trie from keys arriving in
// sorted order. Every key is inserted as it arrives; Freeze() only
// serializes what is left.
//
// The trie is kept as a list of nodes on the rightmost path (the spine);
// the spine is the only part a later key can still change. Whenever a key
// splits the spine, the part below the split is flattened into the new
// node's finished shape and skips and is never looked at again.
type Builder[K any] struct {
	t   Transform[K]
	cfg *config

	prev *BitVector

	// node arena; the spine and the free list hold arena indices
	nodes []htNode
	free  []int32
	spine []int32

	size     uint64
	numNodes uint64

	err    error
	frozen bool
}

// htNode is an internal node on the spine
type htNode struct {
	skip int64

	// parentheses and skips of the subtrees already finished to the
	// left of this node, in preorder
	repr  *BitVector
	skips []uint64
}

// NewBuilder returns a builder for a hollow trie over keys transformed
// by 't'.
func NewBuilder[K any](t Transform[K], opts ...Option) *Builder[K] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	b := &Builder[K]{
		t:     t,
		cfg:   cfg,
		nodes: make([]htNode, 0, 64),
		spine: make([]int32, 0, 64),
	}
	return b
}

// Add adds the next key
func (b *Builder[K]) Add(key K) error {
	if b.frozen {
		return ErrFrozen
	}
	if b.err != nil {
		return b.err
	}
	return b.addBits(b.t.ToBitVector(key))
}

// AddBits adds the next key as a bit vector; 'bv' is copied.
func (b *Builder[K]) AddBits(bv *BitVector) error {
	if b.frozen {
		return ErrFrozen
	}
	if b.err != nil {
		return b.err
	}
	return b.addBits(bv.Clone())
}

// Len returns the number of keys added so far
func (b *Builder[K]) Len() int {
	return int(b.size)
}

func (b *Builder[K]) addBits(curr *BitVector) error {
	if b.prev == nil {
		b.prev = curr
		b.size = 1
		return nil
	}

	switch b.prev.Compare(curr) {
	case 0:
		return b.fail(ErrDuplicateKey)
	case 1:
		return b.fail(ErrUnsortedInput)
	}

	prefix := curr.LCP(b.prev)
	if prefix == b.prev.Len() {
		return b.fail(ErrNotPrefixFree)
	}

	b.insert(int64(prefix))
	b.prev = curr
	b.size++
	return nil
}

// the build is over once a key is rejected
func (b *Builder[K]) fail(err error) error {
	b.err = fmt.Errorf("hollowtrie: key %d: %w", b.size, err)
	b.nodes = nil
	b.spine = nil
	b.free = nil
	return b.err
}

// insert a key that shares 'prefix' bits with the previous key
func (b *Builder[K]) insert(prefix int64) {
	b.numNodes++
	for i, id := range b.spine {
		skip := b.nodes[id].skip
		if prefix >= skip {
			prefix -= skip + 1
			continue
		}

		// split: the new node sits above spine[i] and everything to its
		// right becomes its left subtree
		b.nodes[id].skip -= prefix + 1
		nn := b.alloc(prefix)
		b.flatten(nn, b.spine[i:])
		b.spine = append(b.spine[:i], nn)
		return
	}

	b.spine = append(b.spine, b.alloc(prefix))
}

// move the chain 'ch' into the finished shape and skips of node 'nn'
func (b *Builder[K]) flatten(nn int32, ch []int32) {
	var nbits uint64
	var nskips int
	for _, id := range ch {
		nbits += b.nodes[id].repr.Len() + 2
		nskips += len(b.nodes[id].skips) + 1
	}

	dst := &b.nodes[nn]
	dst.repr = NewBitVector(nbits)
	dst.skips = make([]uint64, 0, nskips)

	for _, id := range ch {
		src := &b.nodes[id]

		dst.repr.Append(true)
		dst.repr.AppendVector(src.repr)
		dst.repr.Append(false)

		dst.skips = append(dst.skips, uint64(src.skip))
		dst.skips = append(dst.skips, src.skips...)

		b.release(id)
	}
}

func (b *Builder[K]) alloc(skip int64) int32 {
	nd := htNode{
		skip: skip,
		repr: &BitVector{},
	}

	if n := len(b.free); n > 0 {
		id := b.free[n-1]
		b.free = b.free[:n-1]
		b.nodes[id] = nd
		return id
	}

	b.nodes = append(b.nodes, nd)
	return int32(len(b.nodes) - 1)
}

func (b *Builder[K]) release(id int32) {
	b.nodes[id] = htNode{}
	b.free = append(b.free, id)
}

// Freeze serializes the trie and builds its query structures. The
// returned MMPHF is a *HollowTrie[K].
func (b *Builder[K]) Freeze() (MMPHF[K], error) {
	return b.freeze()
}

func (b *Builder[K]) freeze() (*HollowTrie[K], error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	if b.err != nil {
		return nil, b.err
	}
	b.frozen = true

	if b.size <= 1 {
		return newHollowTrie(b.size, nil, nil, b.t, b.cfg), nil
	}

	shape := NewBitVector(2*b.numNodes + 2)
	skips := make([]uint64, 0, b.numNodes)

	// fake open parenthesis
	shape.Append(true)
	for _, id := range b.spine {
		nd := &b.nodes[id]
		shape.Append(true)
		shape.AppendVector(nd.repr)
		shape.Append(false)

		skips = append(skips, uint64(nd.skip))
		skips = append(skips, nd.skips...)
	}
	shape.Append(false)

	if shape.Len() != 2*b.numNodes+2 || uint64(len(skips)) != b.numNodes {
		panic(fmt.Sprintf("hollowtrie: shape has %d bits and %d skips for %d nodes",
			shape.Len(), len(skips), b.numNodes))
	}

	b.nodes = nil
	b.spine = nil
	b.free = nil
	b.prev = nil

	return newHollowTrie(b.size, shape, skips, b.t, b.cfg), nil
}
