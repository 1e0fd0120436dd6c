// errors.go - public errors exposed by mmph
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
	"errors"
)

var (
	// ErrDuplicateKey is returned when two consecutive keys encode to the
	// same bit vector.
	ErrDuplicateKey = errors.New("keys are not distinct")

	// ErrUnsortedInput is returned when a key's bit vector sorts before its
	// predecessor.
	ErrUnsortedInput = errors.New("keys are not lexicographically sorted")

	// ErrNotPrefixFree is returned when a key's bit vector is a proper
	// prefix of its successor.
	ErrNotPrefixFree = errors.New("keys are not prefix-free")

	// ErrFrozen is returned when adding to an already frozen trie builder
	// or DB. It is also returned when freezing either of them twice.
	ErrFrozen = errors.New("already frozen")

	// ErrValueTooLarge is returned if the value-length is larger than 2^32-1 bytes
	ErrValueTooLarge = errors.New("value is larger than 2^32-1 bytes")

	// ErrKeyTooLarge is returned if the key-length is larger than 2^32-1 bytes
	ErrKeyTooLarge = errors.New("key is larger than 2^32-1 bytes")

	// ErrExists is returned if a duplicate key is added to the DB
	ErrExists = errors.New("key exists in DB")

	// ErrNoKey is returned when a key cannot be found in the DB
	ErrNoKey = errors.New("No such key")

	// Header too small for unmarshalling
	ErrTooSmall = errors.New("not enough data to unmarshal")

	// ErrCorrupt is returned when a marshaled trie is internally inconsistent
	ErrCorrupt = errors.New("corrupted hollow trie")

	// ErrChecksum is returned when the checksum of a marshaled trie fails
	ErrChecksum = errors.New("hollow trie checksum mismatch")
)
