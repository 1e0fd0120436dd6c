// hollowtrie_marshal.go -- Marshal/Unmarshal for the hollow trie
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
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

const _HollowTrieVersion = 1

// MarshalBinary encodes the hollow trie into a binary form suitable for
// durable storage. The succinct indices aren't written; they are rebuilt
// from the shape and the skips when the trie is read back.
//
// Layout (all ints little-endian):
//
//	8 byte header: version, 7 reserved bytes
//	uint64 size
//	uint64 number of skips
//	shape bitvector: uint64 length in bits, then the words
//	skips as uvarints
//	uint64 xxhash of everything above
func (h *HollowTrie[K]) MarshalBinary(w io.Writer) (int, error) {
	shape := h.shape
	var nskips uint64
	if h.size > 1 {
		nskips = h.skips.Len()
	} else {
		shape = NewBitVector(0)
	}

	// header + shape + worst case skips + checksum
	var b bytes.Buffer
	b.Grow(24 + 8 + int(8*nwords(shape.Len())) + int(binary.MaxVarintLen64*nskips) + 8)

	le := binary.LittleEndian
	var x [8]byte

	b.Write([]byte{_HollowTrieVersion, 0, 0, 0, 0, 0, 0, 0})
	le.PutUint64(x[:], h.size)
	b.Write(x[:])
	le.PutUint64(x[:], nskips)
	b.Write(x[:])

	if _, err := shape.MarshalBinary(&b); err != nil {
		return 0, err
	}

	var v [binary.MaxVarintLen64]byte
	for i := uint64(0); i < nskips; i++ {
		n := binary.PutUvarint(v[:], h.skips.Get(i))
		b.Write(v[:n])
	}

	le.PutUint64(x[:], xxhash.Sum64(b.Bytes()))
	b.Write(x[:])

	return writeAll(w, b.Bytes())
}

// UnmarshalHollowTrie reads a marshaled hollow trie from 'buf' and
// rebuilds it; 't' must be the transform the trie was built with. The
// trie is fully copied out of 'buf'.
func UnmarshalHollowTrie[K any](buf []byte, t Transform[K], opts ...Option) (*HollowTrie[K], error) {
	h, _, err := unmarshalHollowTrie(buf, t, opts...)
	return h, err
}

// unmarshal and return the number of bytes consumed
func unmarshalHollowTrie[K any](buf []byte, t Transform[K], opts ...Option) (*HollowTrie[K], int, error) {
	if len(buf) < 32+8 {
		return nil, 0, ErrTooSmall
	}

	le := binary.LittleEndian
	if buf[0] != _HollowTrieVersion {
		return nil, 0, fmt.Errorf("hollowtrie: unknown version %d: %w", buf[0], ErrCorrupt)
	}

	size := le.Uint64(buf[8:16])
	nskips := le.Uint64(buf[16:24])

	if size <= 1 {
		if nskips != 0 {
			return nil, 0, fmt.Errorf("hollowtrie: %d keys with %d skips: %w", size, nskips, ErrCorrupt)
		}
	} else if nskips != size-1 {
		return nil, 0, fmt.Errorf("hollowtrie: %d skips for %d keys: %w", nskips, size, ErrCorrupt)
	}

	shape, n, err := unmarshalBitVector(buf[24:])
	if err != nil {
		return nil, 0, fmt.Errorf("hollowtrie: shape: %w", err)
	}

	shapeLen := shape.Len()
	switch {
	case size <= 1 && shapeLen != 0:
		return nil, 0, fmt.Errorf("hollowtrie: %d keys with %d shape bits: %w", size, shapeLen, ErrCorrupt)
	case size > 1 && shapeLen != 2*nskips+2:
		return nil, 0, fmt.Errorf("hollowtrie: shape has %d bits for %d nodes: %w", shapeLen, nskips, ErrCorrupt)
	}

	// the skips take at least a byte each
	off := 24 + int(n)
	if rem := uint64(len(buf) - off); rem < 8 || rem-8 < nskips {
		return nil, 0, ErrTooSmall
	}

	skips := make([]uint64, nskips)
	for i := range skips {
		v, n := binary.Uvarint(buf[off:])
		if n == 0 {
			return nil, 0, ErrTooSmall
		}
		if n < 0 {
			return nil, 0, fmt.Errorf("hollowtrie: skip %d: bad varint: %w", i, ErrCorrupt)
		}
		skips[i] = v
		off += n
	}

	if len(buf)-off < 8 {
		return nil, 0, ErrTooSmall
	}

	csum := le.Uint64(buf[off:])
	if exp := xxhash.Sum64(buf[:off]); exp != csum {
		return nil, 0, fmt.Errorf("hollowtrie: exp %#x, saw %#x: %w", exp, csum, ErrChecksum)
	}
	off += 8

	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	if size <= 1 {
		shape = nil
	} else if !validParens(shape) {
		return nil, 0, fmt.Errorf("hollowtrie: shape is not balanced: %w", ErrCorrupt)
	}

	return newHollowTrie(size, shape, skips, t, cfg), off, nil
}
