package align

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/read"
)

func TestWalkCigarPerfectMatch(t *testing.T) {
	ref := []byte("ACGTACGTACGTACGTAC")
	qry := []byte("ACGTACGTACGTACGTAC")
	cigar := []uint32{read.PackCigar(read.CigarMatch, 18)}
	st := WalkCigar(cigar, ref, qry)
	require.Equal(t, 18, st.Matches)
	require.Equal(t, 0, st.Mismatches)
	require.Equal(t, 0, st.Gaps)
	require.InDelta(t, 1.0, st.Identity(), 1e-9)
}

func TestWalkCigarSubstitution(t *testing.T) {
	ref := []byte("ACGTACGTACGTACGTAC")
	qry := []byte("ACGTACGTACGTACCTAC")
	cigar := []uint32{read.PackCigar(read.CigarMatch, 18)}
	st := WalkCigar(cigar, ref, qry)
	require.Equal(t, 17, st.Matches)
	require.Equal(t, 1, st.Mismatches)
}

func TestCigarConservation(t *testing.T) {
	cigar := []uint32{
		read.PackCigar(read.CigarMatch, 10),
		read.PackCigar(read.CigarIns, 2),
		read.PackCigar(read.CigarMatch, 5),
		read.PackCigar(read.CigarDel, 3),
		read.PackCigar(read.CigarMatch, 4),
	}
	require.Equal(t, 10+5+3+4, RefSpan(cigar))
	require.Equal(t, 10+2+5+4, ReadSpan(cigar))
}

func TestRoundHalfUp3(t *testing.T) {
	require.InDelta(t, 0.971, RoundHalfUp3(0.9705), 1e-9)
	require.InDelta(t, 0.970, RoundHalfUp3(0.9704999), 1e-9)
}

func TestCoverage(t *testing.T) {
	c := Coverage(0, 17, 18)
	require.InDelta(t, 1.0, c, 1e-9)
}
