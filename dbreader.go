// dbreader.go -- Ordered constant DB built on top of the hollow trie MMPHF
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
	"os"
	"strings"

	"crypto/sha512"
	"crypto/subtle"

	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

// DBReader represents the query interface for a previously constructed
// constant database (built using NewDBWriter()). Keys are ranked by the
// hollow trie; the rank indexes the offset table, and the key
// fingerprint and the record itself weed out keys that aren't in the DB.
//
// DBReader is safe for concurrent use.
type DBReader struct {
	trie *HollowTrie[string]

	cache *arc.ARCCache[string, []byte]

	flags uint32

	// memory mapped fingerprint+offset table, in rank order
	offset []uint64

	nkeys  uint64
	salt   []byte
	seed   uint64
	offtbl uint64

	// original mmap slice
	mm *mmap.Mapping
	fd *os.File
	fn string
}

// NewDBReader reads a previously construct database in file 'fn'
// and prepares it for querying. Value records are opportunistically
// cached after reading from disk.  We retain upto 'cache' number
// of records in memory (default 128).
func NewDBReader(fn string, cache int) (rd *DBReader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			fd.Close()
		}
	}()

	// Number of records to cache
	if cache <= 0 {
		cache = 128
	}

	rd = &DBReader{
		salt: make([]byte, 16),
		fd:   fd,
		fn:   fn,
	}

	var st os.FileInfo

	st, err = fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}

	if st.Size() < (64 + 32) {
		return nil, fmt.Errorf("%s: file too small or corrupted", fn)
	}

	var hdrb [64]byte

	_, err = io.ReadFull(fd, hdrb[:])
	if err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	offtbl, err := rd.decodeHeader(hdrb[:], st.Size())
	if err != nil {
		return nil, err
	}

	err = rd.verifyChecksum(hdrb[:], offtbl, st.Size())
	if err != nil {
		return nil, err
	}

	// All metadata is now verified.
	// sanity check - even though we have verified the strong checksum
	// 64 + 32: 64 bytes of header, 32 bytes of sha trailer
	offsz := rd.nkeys * (8 + 8)
	if uint64(st.Size()) < (offtbl + offsz + 32) {
		return nil, fmt.Errorf("%s: corrupt header1", fn)
	}

	rd.cache, err = arc.NewARC[string, []byte](cache)
	if err != nil {
		return nil, err
	}

	// Now, we are certain that the header, the offset-table and trie bits are
	// all valid and uncorrupted.

	// mmap the offset table
	mmapsz := st.Size() - int64(offtbl) - 32
	mm := mmap.New(fd)

	mapping, err := mm.Map(mmapsz, int64(offtbl), mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes at off %d: %w",
			fn, mmapsz, offtbl, err)
	}

	defer func() {
		if err != nil {
			mapping.Unmap()
		}
	}()

	bs := mapping.Bytes()
	rd.mm = mapping
	rd.offset = bsToUint64Slice(bs[:offsz])

	tr, n, err := UnmarshalStringTransform(bs[offsz:])
	if err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal transform: %w", fn, err)
	}

	// the trie starts at the next 64 bit boundary; offtbl is page aligned
	pos := (offsz + uint64(n) + 7) &^ uint64(7)
	if pos > uint64(len(bs)) {
		return nil, fmt.Errorf("%s: corrupt trie offset %d", fn, pos)
	}

	trie, err := UnmarshalHollowTrie[string](bs[pos:], tr)
	if err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal hollow trie: %w", fn, err)
	}
	if uint64(trie.Len()) != rd.nkeys {
		err = fmt.Errorf("%s: trie has %d keys, exp %d", fn, trie.Len(), rd.nkeys)
		return nil, err
	}

	rd.trie = trie
	return rd, nil
}

// Len returns the number of keys in the DB
func (rd *DBReader) Len() int {
	return int(rd.nkeys)
}

// Close closes the db
func (rd *DBReader) Close() {
	rd.mm.Unmap()
	rd.fd.Close()
	rd.cache.Purge()
	rd.salt = nil
	rd.trie = nil
	rd.offset = nil
	rd.fd = nil
	rd.fn = ""
}

// Lookup looks up 'key' in the table and returns the corresponding value.
// If the key is not found, value is nil and returns false.
func (rd *DBReader) Lookup(key []byte) ([]byte, bool) {
	v, err := rd.Find(key)
	if err != nil {
		return nil, false
	}

	return v, true
}

// Rank returns the position of 'key' in key order; it returns ErrNoKey
// if 'key' isn't in the DB.
func (rd *DBReader) Rank(key []byte) (int64, error) {
	r, _, err := rd.find(key)
	return r, err
}

// Find looks up 'key' in the table and returns the corresponding value.
// It returns an error if the key is not found or the disk i/o failed or
// the record checksum failed.
func (rd *DBReader) Find(key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := rd.cache.Get(k); ok {
		return v, nil
	}

	_, val, err := rd.find(key)
	if err != nil {
		return nil, err
	}

	rd.cache.Add(k, val)
	return val, nil
}

// rank 'key' and prove it is one of ours
func (rd *DBReader) find(key []byte) (int64, []byte, error) {
	r := rd.trie.Rank(string(key))
	if r < 0 || uint64(r) >= rd.nkeys {
		return -1, nil, ErrNoKey
	}

	j := uint64(r) * 2
	if fp := toLEUint64(rd.offset[j]); fp != fingerprint(rd.seed, key) {
		return -1, nil, ErrNoKey
	}

	// keys-only DBs trust the fingerprint
	if (rd.flags & _DB_KeysOnly) > 0 {
		return r, nil, nil
	}

	off := toLEUint64(rd.offset[j+1])
	k, val, err := rd.decodeRecord(off)
	if err != nil {
		return -1, nil, err
	}
	if string(k) != string(key) {
		return -1, nil, ErrNoKey
	}
	return r, val, nil
}

// IterFunc iterates through every record of the db in key order and
// calls 'fp' on each. If the called function returns non-nil,
// it stops the iteration and the error is propogated to the caller.
func (rd *DBReader) IterFunc(fp func(k []byte, v []byte) error) error {
	for i := uint64(0); i < rd.nkeys; i++ {
		off := toLEUint64(rd.offset[(i*2)+1])
		k, v, err := rd.decodeRecord(off)
		if err != nil {
			return fmt.Errorf("iter: rank %d: read-record: %w", i, err)
		}
		if err := fp(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Dump the metadata to io.Writer 'w'
func (rd *DBReader) DumpMeta(w io.Writer) {
	fmt.Fprintf(w, "%s", rd.Desc())

	for i := uint64(0); i < rd.nkeys; i++ {
		j := i * 2
		h := toLEUint64(rd.offset[j])
		o := toLEUint64(rd.offset[j+1])
		fmt.Fprintf(w, "  %3d: %#x, record at %#x\n", i, h, o)
	}
}

// Desc provides a human description of the db
func (rd *DBReader) Desc() string {
	var w strings.Builder

	typ := "<KEYS+VALS>"
	if (rd.flags & _DB_KeysOnly) > 0 {
		typ = "<KEYS>"
	}
	fmt.Fprintf(&w, "MMPH: %s %d keys, transform %s, hash-salt %#x, offtbl at %#x\n",
		typ, rd.nkeys, rd.trie.t.(StringTransform).Kind(), rd.salt, rd.offtbl)
	rd.trie.DumpMeta(&w)
	return w.String()
}

// read the full record at offset 'off', validate its checksum and return
// the key and value.
func (rd *DBReader) decodeRecord(off uint64) ([]byte, []byte, error) {
	var hdr [_RecordHeader]byte

	if _, err := rd.fd.ReadAt(hdr[:], int64(off)); err != nil {
		return nil, nil, err
	}

	be := binary.BigEndian
	csum := be.Uint64(hdr[:8])
	klen := be.Uint32(hdr[8:12])
	vlen := be.Uint32(hdr[12:16])

	if off+uint64(_RecordHeader)+uint64(klen)+uint64(vlen) > rd.offtbl {
		return nil, nil, fmt.Errorf("%s: corrupted record at off %d", rd.fn, off)
	}

	data := make([]byte, uint64(klen)+uint64(vlen))
	if _, err := rd.fd.ReadAt(data, int64(off)+_RecordHeader); err != nil {
		return nil, nil, err
	}

	key := data[:klen]
	val := data[klen:]
	exp := recordChecksum(rd.salt, off, hdr[8:], key, val)
	if csum != exp {
		return nil, nil, fmt.Errorf("%s: corrupted record at off %d (exp %#x, saw %#x)", rd.fn, off, exp, csum)
	}

	// keys-only records have no value
	if vlen == 0 {
		val = nil
	}
	return key, val, nil
}

// Verify checksum of all metadata: offset table, trie bits and the file header.
// We know that offtbl is within the size bounds of the file - see decodeHeader() below.
// sz is the actual file size (includes the header we already read)
func (rd *DBReader) verifyChecksum(hdrb []byte, offtbl uint64, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdrb[:])

	// remsz is the size of the remaining metadata (which begins at offset 'offtbl')
	// 32 bytes of SHA512_256 and the values already recorded.
	remsz := sz - int64(offtbl) - 32

	nw, err := io.Copy(h, io.NewSectionReader(rd.fd, int64(offtbl), remsz))
	if err != nil {
		return fmt.Errorf("%s: metadata i/o error: %w", rd.fn, err)
	}
	if nw != remsz {
		return fmt.Errorf("%s: partial read while verifying checksum, exp %d, saw %d", rd.fn, remsz, nw)
	}

	var expsum [32]byte

	// Read the trailer -- which is the expected checksum
	_, err = rd.fd.ReadAt(expsum[:], sz-32)
	if err != nil {
		return fmt.Errorf("%s: checksum i/o error: %w", rd.fn, err)
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum[:], expsum[:]) != 1 {
		return fmt.Errorf("%s: checksum failure; exp %#x, saw %#x", rd.fn, expsum[:], csum[:])
	}

	return nil
}

// entry condition: b is 64 bytes long.
func (rd *DBReader) decodeHeader(b []byte, sz int64) (uint64, error) {
	if magic := string(b[:4]); magic != _Magic_MMPH {
		return 0, fmt.Errorf("%s: bad file magic <%s>", rd.fn, magic)
	}

	be := binary.BigEndian
	i := 4

	rd.flags = be.Uint32(b[i : i+4])
	i += 4

	copy(rd.salt, b[i:i+16])
	rd.seed = fingerprintSeed(rd.salt)
	i += 16
	rd.nkeys = be.Uint64(b[i : i+8])
	i += 8
	rd.offtbl = be.Uint64(b[i : i+8])

	if rd.offtbl < 64 || rd.offtbl >= uint64(sz-32) {
		return 0, fmt.Errorf("%s: corrupt header0", rd.fn)
	}

	return rd.offtbl, nil
}
