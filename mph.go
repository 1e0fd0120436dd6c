// mph.go - Monotone minimal perfect hash function interfaces
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
	"io"
)

// NotFound is returned by Rank() when the walk proves a key cannot be
// one of the original keys.
const NotFound int64 = -1

// MMPHFBuilder is the common interface for constructing a monotone MPH
// from a sorted stream of keys
type MMPHFBuilder[K any] interface {
	// Add the next key; keys must arrive in sorted order
	Add(key K) error

	// Freeze the MPH
	Freeze() (MMPHF[K], error)
}

// MMPHF is a frozen monotone minimal perfect hash function
type MMPHF[K any] interface {
	// Marshal the MPH into io.Writer 'w'
	MarshalBinary(w io.Writer) (int, error)

	// Rank returns the 0 based position of 'key' among the original keys.
	// The result for keys outside the original set is unspecified; when
	// the structure can tell the key is absent, it returns NotFound.
	Rank(key K) int64

	// Dump metadata about the constructed MPH to io.writer 'w'
	DumpMeta(w io.Writer)

	// Return number of entries in the MPH
	Len() int

	// Return the space used by the MPH, in bits
	NumBits() uint64
}

// Transform turns keys into bit vectors. Distinct keys must map to
// distinct vectors and the order of the vectors must be the order in which
// keys are ranked.
type Transform[K any] interface {
	// ToBitVector encodes 'key'
	ToBitVector(key K) *BitVector

	// NumBits returns the space used by the transform's own tables
	NumBits() uint64
}

// BalancedParens is a static navigation index over a balanced parentheses
// sequence where a set bit is an open parenthesis.
type BalancedParens interface {
	// FindClose returns the position of the parenthesis matching the
	// open parenthesis at 'p'
	FindClose(p uint64) uint64

	// BitAt returns true if position 'p' is an open parenthesis
	BitAt(p uint64) bool

	// NumBits returns the space used, in bits, including the sequence
	NumBits() uint64
}

// IntList is a static random access list of non-negative integers
type IntList interface {
	Get(i uint64) uint64
	Len() uint64
	NumBits() uint64
}

var _ MMPHFBuilder[string] = &Builder[string]{}
var _ MMPHF[string] = &HollowTrie[string]{}

var _ BalancedParens = &bpIndex{}
var _ IntList = &efList{}
