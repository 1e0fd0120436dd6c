// transform.go -- turn keys into bit vectors
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
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// TransformKind identifies one of the string transforms; it is persisted
// in the DB so a reader can encode queries the way the writer did.
type TransformKind byte

const (
	// bytes of the UTF-8 string, 8 bits each
	TransformRawUTF8 TransformKind = iota + 1

	// as above, followed by a NUL byte
	TransformUTF8

	// low 8 bits of every rune
	TransformRawISO

	// as above, followed by a NUL byte
	TransformISO

	// UTF-16 code units, 16 bits each
	TransformRawUTF16

	// as above, followed by a NUL code unit
	TransformUTF16

	// order preserving Hu-Tucker code trained on the keys
	TransformHuTucker
)

var kindNames = map[TransformKind]string{
	TransformRawUTF8:  "raw-utf8",
	TransformUTF8:     "utf8",
	TransformRawISO:   "raw-iso",
	TransformISO:      "iso",
	TransformRawUTF16: "raw-utf16",
	TransformUTF16:    "utf16",
	TransformHuTucker: "hutucker",
}

func (k TransformKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("transform-%d", byte(k))
}

// ParseTransformKind maps a name ("utf8", "raw-iso", "hutucker", ...) to
// its kind.
func ParseTransformKind(s string) (TransformKind, error) {
	s = strings.ToLower(s)
	for k, nm := range kindNames {
		if nm == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transform '%s'", s)
}

// StringTransform is a Transform over strings that can describe itself
// for persistence.
type StringTransform interface {
	Transform[string]

	Kind() TransformKind

	// MarshalBinary writes the kind and any tables to 'w'
	MarshalBinary(w io.Writer) (int, error)
}

// NewStringTransform returns the transform for 'kind'. Only Hu-Tucker
// looks at 'keys'; it derives its code from their byte frequencies.
func NewStringTransform(kind TransformKind, keys []string) (StringTransform, error) {
	switch kind {
	case TransformRawUTF8, TransformUTF8, TransformRawISO, TransformISO,
		TransformRawUTF16, TransformUTF16:
		return &charTransform{kind: kind}, nil

	case TransformHuTucker:
		return HuTucker(keys), nil

	default:
		return nil, fmt.Errorf("transform: unknown kind %d", kind)
	}
}

// UTF8 encodes the bytes of a string and a terminating NUL. It is
// prefix-free as long as keys don't contain NUL bytes.
func UTF8() StringTransform {
	return &charTransform{kind: TransformUTF8}
}

// RawUTF8 encodes just the bytes of a string; it is not prefix-free.
func RawUTF8() StringTransform {
	return &charTransform{kind: TransformRawUTF8}
}

// ISO encodes the low 8 bits of every rune and a terminating NUL.
func ISO() StringTransform {
	return &charTransform{kind: TransformISO}
}

// RawISO encodes the low 8 bits of every rune; it is not prefix-free.
func RawISO() StringTransform {
	return &charTransform{kind: TransformRawISO}
}

// UTF16 encodes the UTF-16 code units of a string and a terminating NUL unit.
func UTF16() StringTransform {
	return &charTransform{kind: TransformUTF16}
}

// RawUTF16 encodes the UTF-16 code units of a string; it is not prefix-free.
func RawUTF16() StringTransform {
	return &charTransform{kind: TransformRawUTF16}
}

type charTransform struct {
	kind TransformKind
}

func (c *charTransform) ToBitVector(s string) *BitVector {
	var bv *BitVector

	switch c.kind {
	case TransformRawUTF8, TransformUTF8:
		bv = NewBitVector(uint64(len(s)+1) * 8)
		for i := 0; i < len(s); i++ {
			bv.AppendUint(uint64(s[i]), 8)
		}

	case TransformRawISO, TransformISO:
		bv = NewBitVector(uint64(len(s)+1) * 8)
		for _, r := range s {
			bv.AppendUint(uint64(byte(r)), 8)
		}

	case TransformRawUTF16, TransformUTF16:
		u := utf16.Encode([]rune(s))
		bv = NewBitVector(uint64(len(u)+1) * 16)
		for _, x := range u {
			bv.AppendUint(uint64(x), 16)
		}
	}

	switch c.kind {
	case TransformUTF8, TransformISO:
		bv.AppendUint(0, 8)
	case TransformUTF16:
		bv.AppendUint(0, 16)
	}
	return bv
}

func (c *charTransform) NumBits() uint64 {
	return 0
}

func (c *charTransform) Kind() TransformKind {
	return c.kind
}

func (c *charTransform) MarshalBinary(w io.Writer) (int, error) {
	var x [8]byte

	x[0] = byte(c.kind)
	return writeAll(w, x[:])
}

// Uint64 encodes integers as 64 bits, most significant bit first. All
// vectors have the same length, so any set of distinct integers is
// prefix-free and bit order is numeric order.
func Uint64() Transform[uint64] {
	return uint64Transform{}
}

type uint64Transform struct{}

func (uint64Transform) ToBitVector(x uint64) *BitVector {
	bv := NewBitVector(64)
	bv.AppendUint(x, 64)
	return bv
}

func (uint64Transform) NumBits() uint64 {
	return 0
}

// UnmarshalStringTransform decodes a transform written by the
// MarshalBinary method of a StringTransform. It returns the number of
// bytes consumed.
func UnmarshalStringTransform(buf []byte) (StringTransform, int, error) {
	if len(buf) < 8 {
		return nil, 0, ErrTooSmall
	}

	kind := TransformKind(buf[0])
	switch kind {
	case TransformHuTucker:
		if len(buf) < 8+_HuTuckerTableSize {
			return nil, 0, ErrTooSmall
		}

		var lens [_HuTuckerSymbols]uint16
		for i := range lens {
			lens[i] = binary.LittleEndian.Uint16(buf[8+(2*i):])
		}

		h, err := huTuckerFromLengths(lens)
		if err != nil {
			return nil, 0, err
		}
		return h, 8 + _HuTuckerTableSize, nil

	default:
		t, err := NewStringTransform(kind, nil)
		if err != nil {
			return nil, 0, err
		}
		return t, 8, nil
	}
}
