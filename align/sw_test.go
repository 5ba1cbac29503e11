package align

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/read"
)

func enc(seq string) []byte {
	return kmer.Encode5([]byte(seq))
}

// TestE1PerfectMatch reproduces spec.md scenario E1: an 18nt read matching
// position 0 of a 24nt reference exactly, match=2, giving score 36 and an
// 18M CIGAR.
func TestE1PerfectMatch(t *testing.T) {
	ref := enc("ACGTACGTACGTACGTACGTACGT")
	rd := enc("ACGTACGTACGTACGTAC")
	matrix := read.NewScoringMatrix(2, -3, -3)

	res := SmithWaterman(rd, ref, matrix, 5, 2)
	require.Equal(t, 36, res.Score)
	require.Len(t, res.Cigar, 1)
	op, length := read.UnpackCigar(res.Cigar[0])
	require.Equal(t, read.CigarMatch, op)
	require.Equal(t, uint32(18), length)
}

// TestE2Substitution reproduces spec.md scenario E2: a single substitution
// at position 9 drops the score to 2*17-3=31 under match=2,mismatch=-3.
func TestE2Substitution(t *testing.T) {
	a := "ACGTACGTACGTACGTAC" // 18 nt, matches ref at position 0
	b := []byte(a)
	b[9] = 'T' // position 9 was 'C' in "ACGTACGTAC..." -> mutate to induce one mismatch
	if b[9] == a[9] {
		b[9] = 'G'
	}
	ref := enc("ACGTACGTACGTACGTACGTACGT")
	rd := enc(string(b))
	matrix := read.NewScoringMatrix(2, -3, -3)

	res := SmithWaterman(rd, ref, matrix, 5, 2)
	require.Equal(t, 2*17-3, res.Score)
}

func TestSmithWatermanEmptyInputs(t *testing.T) {
	matrix := read.NewScoringMatrix(2, -3, -3)
	res := SmithWaterman(nil, enc("ACGT"), matrix, 5, 2)
	require.Equal(t, 0, res.Score)
}

func TestSmithWatermanNoAlignment(t *testing.T) {
	matrix := read.NewScoringMatrix(2, -3, -3)
	res := SmithWaterman(enc("AAAAAAAA"), enc("TTTTTTTT"), matrix, 5, 2)
	require.Equal(t, 0, res.Score)
	require.Nil(t, res.Cigar)
}
