// Package bloom implements a fixed-capacity bloom filter over
// serialized key bytes, with two independent hashers: a fast
// non-cryptographic 64-bit hash (xxhash) and a 128-bit general-purpose
// hash (murmur3). This mirrors the hasher-backed filters already in
// the corpus (bloom_filter.New, internal/bloom.New) rather than
// reaching for a generic k-hash-function bloom library, because this
// filter must compare structurally by (capacity, hashers, bits, size)
// for recovery testing -- a property a black-box bloom type doesn't
// expose.
package bloom

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// DefaultCapacity is the default number of bits in the filter (C).
const DefaultCapacity = 4096

// hasherID names a hasher so two filters built from identical
// insertion sequences compare equal structurally, not by function
// pointer identity.
type hasherID uint8

const (
	hasherXXHash  hasherID = iota // fast non-cryptographic hash
	hasherMurmur3                 // 128-bit general-purpose hash
)

func (h hasherID) hash(key []byte, capacity uint64) uint64 {
	switch h {
	case hasherXXHash:
		return xxhash.Sum64(key) % capacity
	case hasherMurmur3:
		hi, _ := murmur3.Sum128(key)
		return hi % capacity
	default:
		panic("bloom: unknown hasher id")
	}
}

// defaultHashers is H=2: one fast non-cryptographic hash, one 128-bit
// general-purpose hash.
var defaultHashers = []hasherID{hasherXXHash, hasherMurmur3}

// Filter is an integer bit-vector of fixed capacity plus a monotone
// insertion counter. It never yields false negatives; it may yield
// false positives.
type Filter struct {
	capacity uint64
	hashers  []hasherID
	bits     *bitset.BitSet
	size     uint64
}

// New returns an empty filter with the default capacity and hashers.
func New() *Filter {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity returns an empty filter with capacity bits and the
// default two hashers.
func NewWithCapacity(capacity uint64) *Filter {
	return &Filter{
		capacity: capacity,
		hashers:  defaultHashers,
		bits:     bitset.New(uint(capacity)),
	}
}

// Put inserts key into the filter, setting every hasher's position
// and incrementing the insertion counter (including duplicates).
func (f *Filter) Put(key []byte) {
	for _, h := range f.hashers {
		f.bits.Set(uint(h.hash(key, f.capacity)))
	}
	f.size++
}

// Member reports whether key might be in the filter: true iff every
// hasher's position is set.
func (f *Filter) Member(key []byte) bool {
	for _, h := range f.hashers {
		if !f.bits.Test(uint(h.hash(key, f.capacity))) {
			return false
		}
	}
	return true
}

// Size returns the number of insertions performed, counting
// duplicates (not the count of distinct keys).
func (f *Filter) Size() uint64 { return f.size }

// Capacity returns the number of bits in the filter.
func (f *Filter) Capacity() uint64 { return f.capacity }

// Equal reports whether f and other are structurally identical: same
// capacity, same hashers, same bits, same size. Filters built by
// identical insertion sequences on identical configuration compare
// equal; so do filters whose insertions differ only in order.
func (f *Filter) Equal(other *Filter) bool {
	if f.capacity != other.capacity || f.size != other.size {
		return false
	}
	if len(f.hashers) != len(other.hashers) {
		return false
	}
	for i, h := range f.hashers {
		if other.hashers[i] != h {
			return false
		}
	}
	return f.bits.Equal(other.bits)
}
