// Package memtable implements the in-memory sorted write buffer: a
// map from encoded key bytes to encoded value bytes, ordered by key
// bytes, with a live byte-size estimate used to trigger flushes.
//
// The ordering structure is google/btree's generic BTreeG, the same
// backing the teacher's Memtable used for its key ordering -- adapted
// here to carry []byte keys/values directly instead of the teacher's
// separate btree-of-keys-plus-side-map split, since this spec's
// memtable has no JSON record to keep alongside the key.
package memtable

import (
	"bytes"

	"github.com/google/btree"
)

// degree is the btree branching factor; matches the teacher's
// DefaultTreeOrder sizing choice for a small in-memory structure.
const degree = 32

type entry struct {
	key   []byte
	value []byte
}

func less(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Memtable is a sorted mapping from encoded key to encoded value,
// ordered by encoded key bytes.
type Memtable struct {
	tree      *btree.BTreeG[entry]
	bytesUsed int
}

// New returns a fresh, empty memtable.
func New() *Memtable {
	return &Memtable{
		tree: btree.NewG(degree, less),
	}
}

// Put inserts k/v, overwriting any prior value stored for k (I1).
func (m *Memtable) Put(k, v []byte) {
	kc := append([]byte(nil), k...)
	vc := append([]byte(nil), v...)

	if old, ok := m.tree.Get(entry{key: kc}); ok {
		m.bytesUsed -= len(old.key) + len(old.value)
	}
	m.tree.ReplaceOrInsert(entry{key: kc, value: vc})
	m.bytesUsed += len(kc) + len(vc)
}

// Fetch looks up k, reporting whether it is present.
func (m *Memtable) Fetch(k []byte) ([]byte, bool) {
	e, ok := m.tree.Get(entry{key: k})
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Pair is a single (key, value) entry returned by ToList.
type Pair struct {
	Key   []byte
	Value []byte
}

// ToList enumerates every (k, v) pair in ascending key order.
func (m *Memtable) ToList() []Pair {
	pairs := make([]Pair, 0, m.tree.Len())
	m.tree.Ascend(func(e entry) bool {
		pairs = append(pairs, Pair{Key: e.key, Value: e.value})
		return true
	})
	return pairs
}

// Len returns the number of distinct keys currently stored.
func (m *Memtable) Len() int { return m.tree.Len() }

// ByteSize returns the total length of the stored keys and values; the
// btree's own overhead is not counted. It is zero for an empty table
// and monotone in the table's total key+value content.
func (m *Memtable) ByteSize() int { return m.bytesUsed }
