// endian_le.go -- endian conversion routines for little-endian archs.
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

//go:build 386 || amd64 || arm || arm64 || ppc64le || mipsle || mips64le || riscv64 || loong64 || wasm

package mmph

func toLEUint64(v uint64) uint64 {
	return v
}
