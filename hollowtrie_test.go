// hollowtrie_test.go -- test suite for the hollow trie
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
	"encoding/binary"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

func makeTrie[K any](t *testing.T, keys []K, tr Transform[K], opts ...Option) *HollowTrie[K] {
	assert := newAsserter(t)

	b := NewBuilder(tr, opts...)
	for i, k := range keys {
		err := b.Add(k)
		assert(err == nil, "can't add key %d <%v>: %s", i, k, err)
	}
	assert(b.Len() == len(keys), "builder len: exp %d, saw %d", len(keys), b.Len())

	mp, err := b.Freeze()
	assert(err == nil, "can't freeze: %s", err)
	return mp.(*HollowTrie[K])
}

func verifyRanks[K any](t *testing.T, h *HollowTrie[K], keys []K) {
	assert := newAsserter(t)

	assert(h.Len() == len(keys), "len: exp %d, saw %d", len(keys), h.Len())
	for i, k := range keys {
		r := h.Rank(k)
		assert(r == int64(i), "key %d <%v>: saw rank %d", i, k, r)
	}
}

func TestHollowTrieSimple(t *testing.T) {
	assert := newAsserter(t)

	keys := []string{"ab", "abc", "b"}
	h := makeTrie(t, keys, Transform[string](UTF8()))
	verifyRanks(t, h, keys)

	// "ab\0" and "abc\0" part at bit 17, "b\0" parts from both at bit 6
	assert(h.shape.String() == "111000", "shape: saw %s", h.shape.String())
	assert(h.skips.Len() == 2, "exp 2 skips, saw %d", h.skips.Len())
	assert(h.skips.Get(0) == 6 && h.skips.Get(1) == 10, "skips: saw %d, %d", h.skips.Get(0), h.skips.Get(1))

	st := h.Stats()
	assert(st.Keys == 3 && st.Nodes == 2, "stats: %d keys, %d nodes", st.Keys, st.Nodes)
	assert(st.MaxSkip == 10, "max skip: exp 10, saw %d", st.MaxSkip)
	assert(st.SkipWidth == 4, "skip width: exp 4, saw %d", st.SkipWidth)

	// bits run out before a leaf is reached
	assert(h.Rank("") == NotFound, "empty key: exp NotFound, saw %d", h.Rank(""))

	var b bytes.Buffer
	h.DumpMeta(&b)
	assert(strings.Contains(b.String(), "3 keys"), "dumpmeta: %s", b.String())
}

func TestHollowTrieErrors(t *testing.T) {
	assert := newAsserter(t)

	tests := []struct {
		keys []string
		tr   StringTransform
		err  error
	}{
		{[]string{"b", "ab", "abc"}, UTF8(), ErrUnsortedInput},
		{[]string{"ab", "abc", "b", "a"}, UTF8(), ErrUnsortedInput},
		{[]string{"ab", "ab"}, UTF8(), ErrDuplicateKey},
		{[]string{"ab", "abc"}, RawUTF8(), ErrNotPrefixFree},
		{[]string{"A", "Ł"}, ISO(), ErrDuplicateKey},
	}

	for _, tc := range tests {
		b := NewBuilder[string](tc.tr)

		var err error
		for _, k := range tc.keys {
			if err = b.Add(k); err != nil {
				break
			}
		}
		assert(errors.Is(err, tc.err), "%v: exp %s, saw %v", tc.keys, tc.err, err)

		// the builder stays failed
		err2 := b.Add("zzz")
		assert(errors.Is(err2, tc.err), "%v: add after failure: saw %v", tc.keys, err2)

		_, err2 = b.Freeze()
		assert(errors.Is(err2, tc.err), "%v: freeze after failure: saw %v", tc.keys, err2)

		_, err2 = NewHollowTrie(tc.keys, Transform[string](tc.tr))
		assert(errors.Is(err2, tc.err), "%v: new: saw %v", tc.keys, err2)
	}
}

func TestHollowTrieFrozen(t *testing.T) {
	assert := newAsserter(t)

	b := NewBuilder(Uint64())
	for _, k := range []uint64{1, 5, 9} {
		assert(b.Add(k) == nil, "add %d failed", k)
	}

	m, err := b.Freeze()
	assert(err == nil, "freeze: %s", err)

	h, ok := m.(*HollowTrie[uint64])
	assert(ok, "freeze: exp *HollowTrie, saw %T", m)
	assert(h.Rank(5) == 1, "rank 5: saw %d", h.Rank(5))

	_, err = b.Freeze()
	assert(err == ErrFrozen, "second freeze: exp ErrFrozen, saw %v", err)
	assert(b.Add(10) == ErrFrozen, "add after freeze: exp ErrFrozen")
	assert(b.AddBits(Uint64().ToBitVector(11)) == ErrFrozen, "addbits after freeze: exp ErrFrozen")
	assert(!strings.Contains(err.Error(), "DB"), "builder error names the DB: %s", err)
}

// counts constructor calls and reports fixed sizes
type fixedParens struct {
	*bpIndex
	bits uint64
}

func (f *fixedParens) NumBits() uint64 { return f.bits }

type fixedInts struct {
	*efList
	bits uint64
}

func (f *fixedInts) NumBits() uint64 { return f.bits }

type fixedTransform struct {
	Transform[string]
	bits uint64
}

func (f *fixedTransform) NumBits() uint64 { return f.bits }

func instrumented(np, ni *int) []Option {
	return []Option{
		WithParens(func(bv *BitVector) BalancedParens {
			*np++
			return &fixedParens{newBPIndex(bv), 1000}
		}),
		WithIntList(func(v []uint64) IntList {
			*ni++
			return &fixedInts{newEFList(v), 77}
		}),
	}
}

func TestHollowTrieDegenerate(t *testing.T) {
	assert := newAsserter(t)

	var np, ni int
	tr := &fixedTransform{UTF8(), 5}

	h := makeTrie[string](t, nil, tr, instrumented(&np, &ni)...)
	assert(h.Len() == 0, "empty: len %d", h.Len())
	assert(h.Rank("anything") == -1, "empty: exp -1, saw %d", h.Rank("anything"))
	assert(h.RankBits(NewBitVector(0)) == -1, "empty: exp -1 for bits")
	assert(h.NumBits() == 5, "empty: exp 5 bits, saw %d", h.NumBits())

	h = makeTrie(t, []string{"solo"}, Transform[string](tr), instrumented(&np, &ni)...)
	assert(h.Len() == 1, "single: len %d", h.Len())
	assert(h.Rank("solo") == 0, "single: exp 0, saw %d", h.Rank("solo"))
	assert(h.Rank("other") == 0, "single: exp 0, saw %d", h.Rank("other"))
	assert(h.NumBits() == 5, "single: exp 5 bits, saw %d", h.NumBits())

	assert(np == 0 && ni == 0, "degenerate tries built %d parens and %d int lists", np, ni)
}

func TestHollowTrieNumBits(t *testing.T) {
	assert := newAsserter(t)

	var np, ni int
	keys := sortedWords()
	tr := &fixedTransform{UTF8(), 5}

	h := makeTrie(t, keys, Transform[string](tr), instrumented(&np, &ni)...)
	verifyRanks(t, h, keys)

	assert(np == 1 && ni == 1, "exp one of each collaborator, saw %d, %d", np, ni)
	assert(h.NumBits() == 1000+77+5, "numbits: exp 1082, saw %d", h.NumBits())

	st := h.Stats()
	assert(st.ShapeBits == 1000 && st.SkipBits == 77 && st.TransformBits == 5,
		"components: %d, %d, %d", st.ShapeBits, st.SkipBits, st.TransformBits)

	// the default collaborators add up the same way
	d := makeTrie(t, keys, Transform[string](UTF8()))
	exp := d.parens.NumBits() + d.skips.NumBits()
	assert(d.NumBits() == exp, "default numbits: exp %d, saw %d", exp, d.NumBits())
}

func TestHollowTrieIdempotent(t *testing.T) {
	assert := newAsserter(t)

	keys := sortedWords()
	h := makeTrie(t, keys, Transform[string](UTF8()))

	probes := append([]string{"", "zebra", "ab\x00", "mizzen"}, keys...)
	for _, k := range probes {
		r := h.Rank(k)
		assert(r >= NotFound && r < int64(len(keys)), "'%s': rank %d out of range", k, r)
		for i := 0; i < 4; i++ {
			assert(h.Rank(k) == r, "'%s': rank changed", k)
		}
	}
}

func TestHollowTrieTransforms(t *testing.T) {
	keys := sortedWords()

	for _, tr := range []StringTransform{UTF8(), ISO(), UTF16(), HuTucker(keys)} {
		h := makeTrie(t, keys, Transform[string](tr))
		verifyRanks(t, h, keys)
	}
}

// keys over a tiny alphabet share long prefixes and split the spine a lot
func TestHollowTrieRandomStrings(t *testing.T) {
	r := newTestRand(t)

	for _, n := range []int{2, 3, 10, 100, 5000} {
		m := make(map[string]bool)
		for len(m) < n {
			var b []byte
			l := 1 + r.Intn(12)
			for j := 0; j < l; j++ {
				b = append(b, "ab"[r.Intn(2)])
			}
			m[string(b)] = true
		}

		keys := make([]string, 0, n)
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		h := makeTrie(t, keys, Transform[string](UTF8()))
		verifyRanks(t, h, keys)

		hu := makeTrie(t, keys, Transform[string](HuTucker(keys)))
		verifyRanks(t, hu, keys)
	}
}

func TestHollowTrieUint64(t *testing.T) {
	assert := newAsserter(t)
	r := newTestRand(t)

	const n = 100000

	keys := sortedUint64s(r, n)
	h, err := NewHollowTrie(keys, Uint64())
	assert(err == nil, "build failed: %s", err)
	assert(h.Len() == n, "len: exp %d, saw %d", n, h.Len())

	assert(h.Rank(keys[0]) == 0, "first key: saw %d", h.Rank(keys[0]))
	assert(h.Rank(keys[n-1]) == n-1, "last key: saw %d", h.Rank(keys[n-1]))
	for i := 0; i < 20; i++ {
		j := r.Intn(n)
		assert(h.Rank(keys[j]) == int64(j), "key %d: saw %d", j, h.Rank(keys[j]))
	}
	verifyRanks(t, h, keys)

	// a few bits per key; the keys are 64 bits each
	st := h.Stats()
	assert(st.Nodes == n-1, "nodes: exp %d, saw %d", n-1, st.Nodes)
	assert(st.BitsPerKey < 32, "%4.2f bits/key", st.BitsPerKey)
	t.Logf("%d keys: %4.2f bits/key (forecast %4.2f)", n, st.BitsPerKey, st.ForecastBitsPerKey)

	// integers are all the same length; a rank is always returned
	for i := 0; i < 1000; i++ {
		x := h.Rank(r.Uint64())
		assert(x >= 0 && x < n, "non-member rank %d out of range", x)
	}
}

func TestHollowTrieAddBits(t *testing.T) {
	assert := newAsserter(t)

	keys := []uint64{3, 7, 8, 1 << 40}
	b := NewBuilder(Uint64())

	bv := NewBitVector(64)
	for _, k := range keys {
		bv = Uint64().ToBitVector(k)
		assert(b.AddBits(bv) == nil, "addbits %d failed", k)
	}

	// the builder keeps its own copy
	bv.Append(true)

	mp, err := b.Freeze()
	assert(err == nil, "freeze: %s", err)
	h := mp.(*HollowTrie[uint64])
	verifyRanks(t, h, keys)

	for i, k := range keys {
		x := h.RankBits(Uint64().ToBitVector(k))
		assert(x == int64(i), "rankbits %d: exp %d, saw %d", k, i, x)
	}
}

func TestHollowTrieMarshal(t *testing.T) {
	assert := newAsserter(t)

	keys := sortedWords()
	for _, n := range []int{0, 1, 2, len(keys)} {
		h := makeTrie(t, keys[:n], Transform[string](UTF8()))

		var buf bytes.Buffer
		nw, err := h.MarshalBinary(&buf)
		assert(err == nil, "%d: marshal failed: %s", n, err)
		assert(nw == buf.Len(), "%d: exp %d bytes, saw %d", n, buf.Len(), nw)

		// trailing data is not ours
		buf.Write([]byte("trailer"))

		x, m, err := unmarshalHollowTrie(buf.Bytes(), Transform[string](UTF8()))
		assert(err == nil, "%d: unmarshal failed: %s", n, err)
		assert(m == nw, "%d: consumed %d, exp %d", n, m, nw)
		assert(x.NumBits() == h.NumBits(), "%d: numbits %d vs %d", n, x.NumBits(), h.NumBits())
		verifyRanks(t, x, keys[:n])
	}
}

func TestHollowTrieCorrupt(t *testing.T) {
	assert := newAsserter(t)

	keys := sortedWords()
	h := makeTrie(t, keys, Transform[string](UTF8()))

	var buf bytes.Buffer
	_, err := h.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)
	good := buf.Bytes()

	_, err = UnmarshalHollowTrie(good[:20], Transform[string](UTF8()))
	assert(errors.Is(err, ErrTooSmall), "short header: saw %v", err)

	_, err = UnmarshalHollowTrie(good[:len(good)-3], Transform[string](UTF8()))
	assert(errors.Is(err, ErrTooSmall), "short trailer: saw %v", err)

	bad := bytes.Clone(good)
	bad[40] ^= 0x10
	_, err = UnmarshalHollowTrie(bad, Transform[string](UTF8()))
	assert(errors.Is(err, ErrChecksum), "flipped bit: saw %v", err)

	bad = bytes.Clone(good)
	bad[0] = 99
	_, err = UnmarshalHollowTrie(bad, Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "bad version: saw %v", err)

	// internally inconsistent but correctly checksummed
	reseal := func(b []byte) []byte {
		n := len(b) - 8
		binary.LittleEndian.PutUint64(b[n:], xxhash.Sum64(b[:n]))
		return b
	}

	bad = bytes.Clone(good)
	binary.LittleEndian.PutUint64(bad[8:], uint64(len(keys)+1))
	_, err = UnmarshalHollowTrie(reseal(bad), Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "wrong size: saw %v", err)

	bad = bytes.Clone(good)
	binary.LittleEndian.PutUint64(bad[16:], uint64(len(keys)))
	_, err = UnmarshalHollowTrie(reseal(bad), Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "wrong skip count: saw %v", err)

	// the shape bitvector starts at 24 with its length in bits
	bad = bytes.Clone(good)
	binary.LittleEndian.PutUint64(bad[24:], 2*uint64(len(keys))+2)
	_, err = UnmarshalHollowTrie(reseal(bad), Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "wrong shape length: saw %v", err)

	bad = bytes.Clone(good)
	binary.LittleEndian.PutUint64(bad[24:], 1<<50)
	_, err = UnmarshalHollowTrie(reseal(bad), Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "huge shape length: saw %v", err)

	// the shape is written exactly as a bitvector
	sv, sn, err := unmarshalBitVector(good[24:])
	assert(err == nil, "shape: %s", err)
	assert(sv.Compare(h.shape) == 0, "shape bits differ")
	assert(sn == 8+8*nwords(h.shape.Len()), "shape: consumed %d bytes", sn)

	// flip the outer open parenthesis
	bad = bytes.Clone(good)
	bad[32] &^= 1
	_, err = UnmarshalHollowTrie(reseal(bad), Transform[string](UTF8()))
	assert(errors.Is(err, ErrCorrupt), "unbalanced shape: saw %v", err)
}

func TestHollowTrieConcurrent(t *testing.T) {
	assert := newAsserter(t)
	r := newTestRand(t)

	keys := sortedUint64s(r, 20000)
	h, err := NewHollowTrie(keys, Uint64())
	assert(err == nil, "build failed: %s", err)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i, k := range keys {
				if x := h.Rank(k); x != int64(i) {
					return errors.New("rank mismatch")
				}
			}
			return nil
		})
	}

	err = g.Wait()
	assert(err == nil, "concurrent rank: %s", err)
}
