// doc.go - top level documentation
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

// Package mmph implements a monotone minimal perfect hash function: for a
// static, sorted set of n keys it maps every key to its rank in [0, n)
// using a couple of bits per key, without storing the keys.
//
// The function is a hollow trie (Belazzougui, Boldi, Pagh, Vigna:
// "Monotone Minimal Perfect Hashing: Searching a Sorted Table with O(1)
// Accesses", SODA 2009). Keys are turned into bit vectors by a Transform
// and inserted into a compacted binary trie of which only the shape (as
// balanced parentheses) and the skip of every internal node are kept.
// Looking up a key that wasn't in the set returns an arbitrary rank or
// NotFound; callers that need membership must verify the answer.
//
// mmph also exposes a convenient way to serialize keys and values OR just
// keys into an on-disk single-file ordered database. Keys are arbitrary
// byte strings; the DB ranks them with a hollow trie, stores a fingerprint
// per rank to reject unknown keys, and can be iterated in key order.
//
// The primary user interfaces of this package are:
//   - NewBuilder() / NewHollowTrie() to build a trie in memory
//   - 'DBWriter' and 'DBReader' for the on-disk DB
package mmph
