// Package postable implements C3 PositionTable: a dense array indexed by
// MPH-assigned kmer id, giving the (seq, pos) occurrences of that kmer,
// capped at max_pos (spec.md section 3).
package postable

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Pos is one (sequence, position) occurrence.
type Pos struct {
	Seq uint32
	Pos uint32
}

// Table holds, for each kmer id in [0, N), its occurrence list.
type Table struct {
	Entries [][]Pos
	MaxPos  int // 0 means unbounded
}

// New allocates a Table with n ids, capped at maxPos occurrences per id (0
// for unbounded).
func New(n int, maxPos int) *Table {
	return &Table{Entries: make([][]Pos, n), MaxPos: maxPos}
}

// Add appends (seq, pos) to id's occurrence list, subject to the max_pos
// cap; entries beyond the cap are dropped, keeping the first-encountered
// ones as spec.md's testable property 2 requires.
func (t *Table) Add(id uint32, seq, pos uint32) {
	if t.MaxPos > 0 && len(t.Entries[id]) >= t.MaxPos {
		return
	}
	t.Entries[id] = append(t.Entries[id], Pos{Seq: seq, Pos: pos})
}

// Get returns the occurrence list for id.
func (t *Table) Get(id uint32) []Pos {
	if int(id) >= len(t.Entries) {
		return nil
	}
	return t.Entries[id]
}

// Write serializes the table as the <ref>.pos_<p>.dat artifact: a u32
// number_elements, then for each id a u32 n followed by n*(u32 seq, u32
// pos), per spec.md section 3.
func (t *Table) Write(w io.Writer) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(t.Entries)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "postable: write header")
	}
	for _, list := range t.Entries {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(list)))
		if _, err := w.Write(n[:]); err != nil {
			return errors.Wrap(err, "postable: write count")
		}
		if len(list) == 0 {
			continue
		}
		buf := make([]byte, 8*len(list))
		for i, p := range list {
			binary.LittleEndian.PutUint32(buf[i*8:i*8+4], p.Seq)
			binary.LittleEndian.PutUint32(buf[i*8+4:i*8+8], p.Pos)
		}
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "postable: write positions")
		}
	}
	return nil
}

// Read loads a Table previously written by Write. maxPos is carried over
// from the build-time configuration since it is not itself persisted.
func Read(r io.Reader, maxPos int) (*Table, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "postable: read header")
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	t := New(int(n), maxPos)
	for id := 0; id < int(n); id++ {
		var cb [4]byte
		if _, err := io.ReadFull(r, cb[:]); err != nil {
			return nil, errors.Wrap(err, "postable: read count")
		}
		cnt := binary.LittleEndian.Uint32(cb[:])
		if cnt == 0 {
			continue
		}
		buf := make([]byte, 8*cnt)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "postable: read positions")
		}
		list := make([]Pos, cnt)
		for i := range list {
			list[i] = Pos{
				Seq: binary.LittleEndian.Uint32(buf[i*8 : i*8+4]),
				Pos: binary.LittleEndian.Uint32(buf[i*8+4 : i*8+8]),
			}
		}
		t.Entries[id] = list
	}
	return t, nil
}
