// dbwriter.go -- Ordered constant DB built on top of the hollow trie MMPHF
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
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/dchest/siphash"
	"github.com/opencoff/go-fasthash"
)

// The on-disk DB has the following general structure:
//   - 64 byte file header: big-endian encoding of all multibyte ints
//      * magic    [4]byte
//      * flags    uint32 (indicates if DB is keys-only or keys+vals)
//      * salt     [16]byte random salt for siphash record integrity
//      * nkeys    uint64  Number of keys in the DB
//      * offtbl   uint64  File offset of the offset table (page-aligned)
//
//   - Contiguous series of records in the order they were added; each
//     record is a key/value pair:
//      * cksum    uint64  Siphash checksum of offset, lengths, key, value
//      * klen     uint32  key length
//      * vlen     uint32  value length
//      * key      []byte  key bytes
//      * val      []byte  value bytes
//
//   - Possibly a gap until the next PageSize boundary (4096 bytes)
//   - The offset table: for every rank (key order), the key fingerprint
//     (uint64) and the record offset (uint64). It is memory mapped and all
//     entries are little-endian encoded.
//   - Marshaled string transform
//   - Marshaled hollow trie (8 byte aligned)
//   - 32 bytes of strong checksum (SHA512_256); this checksum is done over
//     the file header, offset-table, transform and hollow trie.

const (
	// Flags
	_DB_KeysOnly = 1 << iota

	_Magic_MMPH = "MMPH"

	// cksum + klen + vlen
	_RecordHeader = 8 + 4 + 4
)

// writer state
type wstate int

const (
	_Aborted = -1
	_Open    = 0
	_Frozen  = 1
)

// DBWriter represents an abstraction to construct a read-only, ordered
// constant database. Keys and values are arbitrary byte sequences
// ([]byte); keys may arrive in any order. Freeze() ranks the keys with a
// hollow trie so that the DB can be iterated in key order and every key
// maps to its rank.
//
// Records are protected by a per-record siphash-2-4 checksum; the DB
// meta-data and the trie are protected by a strong checksum (SHA512-256).
type DBWriter struct {
	fd *os.File

	kind TransformKind

	// keys in the order they were added and their record offsets
	keys []dbKey

	// to detect duplicates
	keymap map[string]struct{}

	// siphash key: just binary encoded salt
	salt []byte

	// running count of current offset within fd where we are writing
	// records
	off uint64

	valSize uint64

	fntmp string // tmp file name
	fn    string // final file holding the DB
	state wstate
}

type dbKey struct {
	key string
	off uint64
}

// NewDBWriter prepares file 'fn' to hold an ordered constant DB whose keys
// are encoded with the string transform 'kind'. Once written, the DB is
// "frozen" and readers will open it using NewDBReader().
func NewDBWriter(fn string, kind TransformKind) (*DBWriter, error) {
	if _, ok := kindNames[kind]; !ok {
		return nil, fmt.Errorf("dbwriter: unknown transform %d", kind)
	}

	tmp := fmt.Sprintf("%s.tmp.%d", fn, rand32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &DBWriter{
		fd:     fd,
		kind:   kind,
		keymap: make(map[string]struct{}),
		salt:   randbytes(16),
		off:    64, // starting offset past the header
		fn:     fn,
		fntmp:  tmp,
	}

	// Leave some space for a header; we will fill this in when we
	// are done Freezing.
	var z [64]byte
	if _, err := writeAll(fd, z[:]); err != nil {
		fd.Close()
		os.Remove(tmp)
		return nil, err
	}

	return w, nil
}

// Len returns the total number of distinct keys in the DB
func (w *DBWriter) Len() int {
	return len(w.keys)
}

// Return the filename of the underlying db
func (w *DBWriter) Filename() string {
	return w.fn
}

// AddKeyVals adds a series of key-value matched pairs to the db. If they are of
// unequal length, only the smaller of the lengths are used. Records with duplicate
// keys are discarded.
// Returns number of records added.
func (w *DBWriter) AddKeyVals(keys [][]byte, vals [][]byte) (int, error) {
	if w.state != _Open {
		return 0, ErrFrozen
	}

	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}

	var z int
	for i := 0; i < n; i++ {
		if ok, err := w.addRecord(keys[i], vals[i]); err != nil {
			return z, err
		} else if ok {
			z++
		}
	}

	return z, nil
}

// Add adds a single key,value pair.
func (w *DBWriter) Add(key []byte, val []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}

	if _, err := w.addRecord(key, val); err != nil {
		return err
	}
	return nil
}

// Abort a construction
func (w *DBWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}

	return w.abort()
}

func (w *DBWriter) abort() error {
	w.state = _Aborted
	if err := w.fd.Close(); err != nil {
		os.Remove(w.fntmp)
		return err
	}
	return os.Remove(w.fntmp)
}

// Freeze ranks the keys, writes the DB and closes it.
func (w *DBWriter) Freeze() (err error) {
	if w.state != _Open {
		return ErrFrozen
	}

	defer func(e *error) {
		// undo the tmpfile
		if *e != nil {
			w.abort()
		}
	}(&err)

	strs := make([]string, len(w.keys))
	for i := range w.keys {
		strs[i] = w.keys[i].key
	}

	t, err := NewStringTransform(w.kind, strs)
	if err != nil {
		return err
	}

	// sort the keys in the order of their bit vectors; that's the order
	// the trie ranks them in.
	bvs := make([]*BitVector, len(strs))
	for i, s := range strs {
		bvs[i] = t.ToBitVector(s)
	}

	idx := make([]int, len(strs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return bvs[idx[a]].Compare(bvs[idx[b]]) < 0
	})

	b := NewBuilder[string](t)
	for _, i := range idx {
		if err = b.AddBits(bvs[i]); err != nil {
			return fmt.Errorf("dbwriter: key '%s': %w", strs[i], err)
		}
	}

	ht, err := b.freeze()
	if err != nil {
		return err
	}

	// calculate strong checksum for all data from this point on.
	h := sha512.New512_256()

	// We align the offset table to pagesize - so we can mmap it when we read it back.
	pgsz := uint64(os.Getpagesize())
	pgsz_m1 := pgsz - 1
	offtbl := w.off + pgsz_m1
	offtbl &= ^pgsz_m1

	if offtbl > w.off {
		zeroes := make([]byte, offtbl-w.off)
		if _, err = writeAll(w.fd, zeroes); err != nil {
			return err
		}
		w.off = offtbl
	}

	// Now offset is at a page boundary.

	var ehdr [64]byte

	// header is encoded in big-endian format
	// 4 byte magic
	// 4 byte flags
	// 16 byte salt
	// 8 byte nkeys
	// 8 byte offtbl
	be := binary.BigEndian
	copy(ehdr[:4], _Magic_MMPH)

	i := 4
	if w.valSize == 0 {
		be.PutUint32(ehdr[i:i+4], uint32(_DB_KeysOnly))
	}
	i += 4

	i += copy(ehdr[i:], w.salt)
	be.PutUint64(ehdr[i:i+8], uint64(ht.Len()))
	i += 8
	be.PutUint64(ehdr[i:i+8], offtbl)

	// add header to checksum
	h.Write(ehdr[:])

	// write to file and checksum together
	tee := newErrWriter(io.MultiWriter(w.fd, h))

	if err = w.marshalOffsets(tee, ht, bvs, idx); err != nil {
		return err
	}

	var nw int
	if nw, err = t.MarshalBinary(tee); err != nil {
		return err
	}
	w.off += uint64(nw)

	// align the offset to next 64 bit boundary
	offtbl = w.off + 7
	offtbl &= ^uint64(7)
	if offtbl > w.off {
		zeroes := make([]byte, offtbl-w.off)
		if _, err = writeAll(tee, zeroes); err != nil {
			return err
		}
		w.off = offtbl
	}

	// Next, we now encode the trie and write to disk.
	if nw, err = ht.MarshalBinary(tee); err != nil {
		return err
	}
	w.off += uint64(nw)

	if err = tee.Error(); err != nil {
		return err
	}

	// Trailer is the checksum of everything
	cksum := h.Sum(nil)
	if _, err = writeAll(w.fd, cksum[:]); err != nil {
		return err
	}

	// Finally, write the header at start of file
	if _, err = w.fd.WriteAt(ehdr[:], 0); err != nil {
		return err
	}

	if err = w.fd.Sync(); err != nil {
		return err
	}

	if err = w.fd.Close(); err != nil {
		return err
	}

	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}
	w.state = _Frozen
	return nil
}

// write the offset table in rank order: fingerprint and record offset
func (w *DBWriter) marshalOffsets(tee io.Writer, ht *HollowTrie[string], bvs []*BitVector, idx []int) error {
	n := uint64(len(idx))
	seed := fingerprintSeed(w.salt)
	offset := make([]uint64, 2*n)

	for r, i := range idx {
		if x := ht.RankBits(bvs[i]); x != int64(r) {
			return fmt.Errorf("dbwriter: panic: key '%s' ranked %d, exp %d", w.keys[i].key, x, r)
		}

		k := &w.keys[i]

		// each entry is 2 64-bit words
		j := r * 2
		offset[j] = toLEUint64(fingerprint(seed, []byte(k.key)))
		offset[j+1] = toLEUint64(k.off)
	}

	bs := u64sToByteSlice(offset)
	if _, err := writeAll(tee, bs); err != nil {
		return err
	}

	w.off += n * (8 + 8)
	return nil
}

// compute checksums and add a record to the file at the current offset.
func (w *DBWriter) addRecord(key []byte, val []byte) (bool, error) {
	if uint64(len(key)) > math.MaxUint32 {
		return false, ErrKeyTooLarge
	}
	if uint64(len(val)) > math.MaxUint32 {
		return false, ErrValueTooLarge
	}

	k := string(key)
	if _, ok := w.keymap[k]; ok {
		return false, ErrExists
	}

	off := w.off
	if err := w.writeRecord(key, val, off); err != nil {
		return false, err
	}

	w.keymap[k] = struct{}{}
	w.keys = append(w.keys, dbKey{key: k, off: off})
	w.valSize += uint64(len(val))
	return true, nil
}

// writeRecord writes a record and checksum at the offset, updates the
// offset in the offset table
func (w *DBWriter) writeRecord(key, val []byte, off uint64) error {
	var hdr [_RecordHeader]byte

	be := binary.BigEndian
	be.PutUint32(hdr[8:12], uint32(len(key)))
	be.PutUint32(hdr[12:16], uint32(len(val)))
	be.PutUint64(hdr[:8], recordChecksum(w.salt, off, hdr[8:], key, val))

	if _, err := writeAll(w.fd, hdr[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, key); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, val); err != nil {
		return err
	}

	w.off += uint64(_RecordHeader + len(key) + len(val))
	return nil
}

// siphash of the record offset, the key and value lengths and the bytes
func recordChecksum(salt []byte, off uint64, lens []byte, key, val []byte) uint64 {
	var o [8]byte

	binary.BigEndian.PutUint64(o[:], off)

	h := siphash.New(salt)
	h.Write(o[:])
	h.Write(lens)
	h.Write(key)
	h.Write(val)
	return h.Sum64()
}

func fingerprintSeed(salt []byte) uint64 {
	return binary.BigEndian.Uint64(salt[:8])
}

func fingerprint(seed uint64, key []byte) uint64 {
	return fasthash.Hash64(seed, key)
}
