// helpers_test.go - helper routines for tests
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
	"fmt"
	"hash/fnv"
	"math/rand"
	"runtime"
	"sort"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

// deterministic random source per test
func newTestRand(t *testing.T) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(t.Name()))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// 'n' distinct sorted random integers
func sortedUint64s(r *rand.Rand, n int) []uint64 {
	m := make(map[uint64]bool, n)
	for len(m) < n {
		m[r.Uint64()] = true
	}

	v := make([]uint64, 0, n)
	for k := range m {
		v = append(v, k)
	}
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	return v
}

// sorted, de-duplicated copy of the words
func sortedWords() []string {
	m := make(map[string]bool)
	for _, s := range keyw {
		m[s] = true
	}

	v := make([]string, 0, len(m))
	for s := range m {
		v = append(v, s)
	}
	sort.Strings(v)
	return v
}

var keyw = []string{
	"expectoration",
	"mizzenmastman",
	"stockfather",
	"pictorialness",
	"villainous",
	"unquality",
	"sized",
	"Tarahumari",
	"endocrinotherapy",
	"quicksandy",
	"heretics",
	"pediment",
	"spleen's",
	"Shepard's",
	"paralyzed",
	"megahertzes",
	"Richardson's",
	"mechanics's",
	"Springfield",
	"burlesques",
	"a",
	"ab",
	"abc",
	"abd",
	"b",
	"ba",
	"zzz",
	"zzzz",
}
