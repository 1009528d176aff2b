// Package dirty provides a lock-free dirty set over a fixed id space.
//
// The set is an atomic bitmap: one bit per element id, 64 ids per word.
// Mark, IsMarked, and Clear are single atomic operations and safe from any
// goroutine; Collect and Drain scan the bitmap and are intended for the
// single pipeline goroutine that owns a phase.
//
// This is a best-effort coalescing signal, not a linearizable queue:
// duplicate marks collapse to one bit, and a mark landing between
// Drain's collect and clear steps is lost for the current frame and
// recovered on the next.
package dirty

import (
	"math/bits"
	"sync/atomic"
)

const bitsPerWord = 64

// Set tracks which elements need processing for one pipeline phase.
// Ids are 1-based; id N maps to bit N-1. Capacity is fixed at creation;
// ids beyond capacity are silently ignored.
type Set struct {
	words    []atomic.Uint64
	capacity int
}

// NewSet creates a set tracking ids 1..capacity.
func NewSet(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	numWords := (capacity + bitsPerWord - 1) / bitsPerWord
	return &Set{
		words:    make([]atomic.Uint64, numWords),
		capacity: capacity,
	}
}

// Mark sets the bit for id. Safe from any goroutine. Ids outside
// 1..capacity are ignored.
func (s *Set) Mark(id int) {
	if id < 1 || id > s.capacity {
		return
	}
	index := id - 1
	s.words[index/bitsPerWord].Or(1 << (index % bitsPerWord))
}

// IsMarked reports whether the bit for id is set.
func (s *Set) IsMarked(id int) bool {
	if id < 1 || id > s.capacity {
		return false
	}
	index := id - 1
	return s.words[index/bitsPerWord].Load()&(1<<(index%bitsPerWord)) != 0
}

// Clear resets the bit for id.
func (s *Set) Clear(id int) {
	if id < 1 || id > s.capacity {
		return
	}
	index := id - 1
	s.words[index/bitsPerWord].And(^uint64(1 << (index % bitsPerWord)))
}

// Collect returns every marked id exactly once, ascending.
func (s *Set) Collect() []int {
	var marked []int
	for wordIdx := range s.words {
		word := s.words[wordIdx].Load()
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			word &^= 1 << bit
			id := wordIdx*bitsPerWord + bit + 1
			if id <= s.capacity {
				marked = append(marked, id)
			}
		}
	}
	return marked
}

// Drain returns every marked id and clears the whole set. The collect and
// clear are two separate steps: a concurrent Mark landing between them is
// dropped for this drain and picked up by the next one.
func (s *Set) Drain() []int {
	marked := s.Collect()
	s.ClearAll()
	return marked
}

// MarkAll sets every bit in the id space.
func (s *Set) MarkAll() {
	if len(s.words) == 0 {
		return
	}
	for i := range s.words[:len(s.words)-1] {
		s.words[i].Store(^uint64(0))
	}
	// Last word: only bits covering valid ids.
	rem := s.capacity % bitsPerWord
	if rem == 0 {
		s.words[len(s.words)-1].Store(^uint64(0))
	} else {
		s.words[len(s.words)-1].Store((1 << rem) - 1)
	}
}

// ClearAll resets every bit.
func (s *Set) ClearAll() {
	for i := range s.words {
		s.words[i].Store(0)
	}
}

// Count returns the number of marked ids. Approximate while other
// goroutines are marking or clearing.
func (s *Set) Count() int {
	total := 0
	for i := range s.words {
		total += bits.OnesCount64(s.words[i].Load())
	}
	return total
}

// Any reports whether at least one id is marked.
func (s *Set) Any() bool {
	for i := range s.words {
		if s.words[i].Load() != 0 {
			return true
		}
	}
	return false
}

// Capacity returns the highest trackable id.
func (s *Set) Capacity() int {
	return s.capacity
}
