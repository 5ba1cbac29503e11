package refindex

import (
	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/lookup"
	"github.com/biotools/rnafilter/postable"
)

// Shard is one loaded reference shard (C4 IndexShard): the Lookup9mer array,
// the PositionTable, and the raw sequence bytes of the shard's span, kept in
// the same 5-letter encoding as read.Read.Isequence so align.SmithWaterman
// can address both sides of an alignment uniformly.
type Shard struct {
	Params kmer.Params
	Lookup *lookup.Table
	Pos    *postable.Table

	// Seqs holds each sequence of the shard, 5-letter encoded
	// (A=0,C=1,G=2,T=3,N=4), indexed by the same seq id PositionTable
	// entries reference.
	Seqs [][]byte
	// SQ carries each sequence's original header id, aligned with Seqs.
	SQ []string
}

// Len implements align.Reference.
func (s *Shard) Len(seq uint32) int {
	if int(seq) >= len(s.Seqs) {
		return 0
	}
	return len(s.Seqs[seq])
}

// Slice implements align.Reference, clamping to the sequence's bounds the
// way the teacher's windowing code already tolerates out-of-range requests.
func (s *Shard) Slice(seq uint32, start, length int) []byte {
	if int(seq) >= len(s.Seqs) {
		return nil
	}
	b := s.Seqs[seq]
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(b) {
		end = len(b)
	}
	if start > end {
		start = end
	}
	return b[start:end]
}

// Unload releases the shard's arenas, per spec.md section 4.2's unload
// contract.
func (s *Shard) Unload() {
	s.Lookup = nil
	s.Pos = nil
	s.Seqs = nil
	s.SQ = nil
}
