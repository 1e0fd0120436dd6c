// endian_be.go -- endian conversion routines for big-endian archs.
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

//go:build ppc64 || mips || mips64 || s390x

package mmph

func toLEUint64(v uint64) uint64 {
	return swap64(v)
}
