// Package lookup implements C2 Lookup9mer: a fixed-size array indexed by the
// numeric value of an L/2-mer, each slot owning forward and reverse
// burst-trie roots plus a de-duplicated usage count (spec.md section 3).
package lookup

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/trie"
)

// Slot is one Lookup9mer entry.
type Slot struct {
	Count    uint32
	TrieFwd  trie.Root
	TrieRev  trie.Root
	markedFwd bool // scratch state for the current scan position; not serialized
}

// Table is the Lookup9mer array, sized 1<<L.
type Table struct {
	Slots []Slot
	L     int
}

// New allocates a Table of 1<<L slots.
func New(l int) *Table {
	return &Table{Slots: make([]Slot, 1<<uint(l)), L: l}
}

// BeginRead clears the per-base "already counted forward" marker for slot
// kf, to be called once per kmer window before IncrementForward/Reverse.
func (t *Table) BeginRead(kf uint32) {
	t.Slots[kf].markedFwd = false
}

// IncrementForward bumps the forward count for slot kf and marks it,
// matching spec.md section 3's Lookup9mer.count semantics.
func (t *Table) IncrementForward(kf uint32) {
	s := &t.Slots[kf]
	s.Count++
	s.markedFwd = true
}

// IncrementReverse bumps the reverse count for slot kr, but only if the
// forward increment did not already mark this slot for the current base —
// spec.md section 3: "increment reverse count only if the forward
// increment did not already mark the slot this base".
func (t *Table) IncrementReverse(kr uint32) {
	s := &t.Slots[kr]
	if !s.markedFwd {
		s.Count++
	}
}

// WriteCounts writes the 1<<L u32 counts to w, the <ref>.kmer_<p>.dat
// artifact of spec.md section 3.
func (t *Table) WriteCounts(w io.Writer) error {
	buf := make([]byte, 4*len(t.Slots))
	for i, s := range t.Slots {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], s.Count)
	}
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "lookup: write counts")
	}
	return nil
}

// ReadCounts loads the 1<<L u32 counts from r into t.
func (t *Table) ReadCounts(r io.Reader) error {
	buf := make([]byte, 4*len(t.Slots))
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(err, "lookup: read counts")
	}
	for i := range t.Slots {
		t.Slots[i].Count = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return nil
}

// WriteTries serializes, for every slot with a non-zero count, two u32
// sizes followed by the forward then reverse breadth-first trie streams —
// the <ref>.bursttrie_<p>.dat artifact of spec.md section 3.
func (t *Table) WriteTries(w io.Writer) error {
	for i := range t.Slots {
		s := &t.Slots[i]
		if s.Count == 0 {
			continue
		}
		fwdSize := trie.Size(&s.TrieFwd)
		revSize := trie.Size(&s.TrieRev)
		var sizes [8]byte
		binary.LittleEndian.PutUint32(sizes[0:4], uint32(fwdSize))
		binary.LittleEndian.PutUint32(sizes[4:8], uint32(revSize))
		if _, err := w.Write(sizes[:]); err != nil {
			return errors.Wrap(err, "lookup: write trie sizes")
		}
		if _, err := trie.Serialize(w, &s.TrieFwd); err != nil {
			return err
		}
		if _, err := trie.Serialize(w, &s.TrieRev); err != nil {
			return err
		}
	}
	return nil
}

// ReadTries rebuilds the forward/reverse tries for every slot with a
// non-zero count, in slot order, mirroring WriteTries. The two declared
// sizes are consumed but not otherwise used: Deserialize is self-delimiting
// from the flag stream, matching spec.md section 4.2's "allocate one
// contiguous arena of size_fwd+size_rev" note (the arena here is simply the
// set of Go-allocated node objects).
func (t *Table) ReadTries(r io.Reader) error {
	for i := range t.Slots {
		s := &t.Slots[i]
		if s.Count == 0 {
			continue
		}
		var sizes [8]byte
		if _, err := io.ReadFull(r, sizes[:]); err != nil {
			return errors.Wrap(err, "lookup: read trie sizes")
		}
		fwd, err := trie.Deserialize(r)
		if err != nil {
			return err
		}
		rev, err := trie.Deserialize(r)
		if err != nil {
			return err
		}
		s.TrieFwd = *fwd
		s.TrieRev = *rev
	}
	return nil
}

// Unload releases all trie arenas and resets counts, per spec.md section
// 4.2's unload contract.
func (t *Table) Unload() {
	for i := range t.Slots {
		t.Slots[i] = Slot{}
	}
}
