// endian.go -- byte swapping and zero-copy slice conversions
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
	"math/bits"
	"unsafe"
)

func swap64(v uint64) uint64 {
	return bits.ReverseBytes64(v)
}

// view a []uint64 as bytes in native byte order; callers make sure the
// values are already little-endian.
func u64sToByteSlice(v []uint64) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

// view a mmap'd byte slice as a []uint64. 'b' must be 8 byte aligned; the
// offset table starts on a page boundary.
func bsToUint64Slice(b []byte) []uint64 {
	if len(b) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}
