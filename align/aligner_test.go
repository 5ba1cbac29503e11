package align

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/postable"
	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/stats"
)

type memRef struct {
	seqs map[uint32][]byte // 0-4 encoded
}

func (m memRef) Len(seq uint32) int { return len(m.seqs[seq]) }
func (m memRef) Slice(seq uint32, start, length int) []byte {
	s := m.seqs[seq]
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}
	return s[start:end]
}

// TestComputeLISAlignmentAcceptsExactMatch exercises the full pipeline on
// spec.md scenario E1: a single reference, a seed window matching at
// position 0, accepted with score 36.
func TestComputeLISAlignmentAcceptsExactMatch(t *testing.T) {
	refSeq := "ACGTACGTACGTACGTACGTACGT"
	encRef := kmer.Encode5([]byte(refSeq))
	rd := &read.Read{
		Isequence: kmer.Encode5([]byte("ACGTACGTACGTACGTAC")),
	}

	pos := postable.New(1, 0)
	pos.Add(0, 0, 0)
	pos.Add(0, 0, 1)

	candidates := []Candidate{{ID: 0, Pos: 0}, {ID: 0, Pos: 1}}

	ref := memRef{seqs: map[uint32][]byte{0: encRef}}
	p := Params{
		SeedHits:     2,
		MinLis:       0,
		NumBestHits:  1,
		NumAlignments: -1,
		Match:       2,
		Mismatch:     -3,
		GapOpen:      5,
		GapExt:       2,
		MinimalScore: 10,
		SeedK:        19,
	}
	rs := stats.New(1)

	ComputeLISAlignment(rd, candidates, pos, ref, p, true, rs)

	require.True(t, rd.IsHit)
	require.Len(t, rd.Alignv, 1)
	require.Equal(t, uint16(36), rd.Alignv[0].Score1)
	require.Equal(t, uint64(1), rs.NumAligned())
}

func TestComputeLISAlignmentBelowSeedHitsNoOp(t *testing.T) {
	rd := &read.Read{Isequence: kmer.Encode5([]byte("ACGTACGTACGTACGTAC"))}
	pos := postable.New(1, 0)
	ref := memRef{seqs: map[uint32][]byte{}}
	p := Params{SeedHits: 2}
	rs := stats.New(1)

	ComputeLISAlignment(rd, []Candidate{{ID: 0, Pos: 0}}, pos, ref, p, true, rs)
	require.False(t, rd.IsHit)
}

func TestBestHitsPolicyKeepsTopN(t *testing.T) {
	rd := &read.Read{}
	p := Params{NumBestHits: 2, MinLis: 0}
	rs := stats.New(2)

	storeBestHits(rd, read.Align{Score1: 10, IndexNum: 0}, p, rs)
	storeBestHits(rd, read.Align{Score1: 20, IndexNum: 0}, p, rs)
	require.Len(t, rd.Alignv, 2)
	storeBestHits(rd, read.Align{Score1: 5, IndexNum: 1}, p, rs)
	require.Len(t, rd.Alignv, 2)
	for _, a := range rd.Alignv {
		require.True(t, a.Score1 >= 10)
	}
	storeBestHits(rd, read.Align{Score1: 30, IndexNum: 1}, p, rs)
	require.Len(t, rd.Alignv, 2)
	var scores []uint16
	for _, a := range rd.Alignv {
		scores = append(scores, a.Score1)
	}
	require.Contains(t, scores, uint16(20))
	require.Contains(t, scores, uint16(30))
}

func TestAcceptIDCov(t *testing.T) {
	rd := &read.Read{}
	p := Params{MinID: 0.97, MinCov: 0.97}
	rs := stats.New(1)
	a := read.Align{ReadBegin1: 0, ReadEnd1: 17, ReadLen: 18}
	cs := CigarStats{Matches: 18}
	id, cov, pass := AcceptIDCov(rd, a, cs, p, rs)
	require.True(t, pass)
	require.InDelta(t, 1.0, id, 1e-9)
	require.InDelta(t, 1.0, cov, 1e-9)
	require.True(t, rd.IsIDCov)
	require.Equal(t, uint64(1), rs.NYidYcov())
}
