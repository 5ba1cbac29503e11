package read

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlip34RoundTrip(t *testing.T) {
	r := &Read{Isequence: []byte{0, 1, 2, 3, 4, 3, 4}}
	r.Flip34()
	require.True(t, r.Is03)
	require.Equal(t, []byte{0, 1, 2, 4, 3, 4, 3}, r.Isequence)
	r.Flip34()
	require.False(t, r.Is03)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 3, 4}, r.Isequence)
}

func TestScoringMatrixNRowCol(t *testing.T) {
	m := NewScoringMatrix(2, -3, -3)
	for i := 0; i < 5; i++ {
		require.Equal(t, int8(-3), m[4][i])
		require.Equal(t, int8(-3), m[i][4])
	}
	require.Equal(t, int8(2), m[0][0])
	require.Equal(t, int8(-3), m[0][1])
}

func TestPackUnpackCigar(t *testing.T) {
	c := PackCigar(CigarMatch, 18)
	op, length := UnpackCigar(c)
	require.Equal(t, CigarMatch, op)
	require.Equal(t, uint32(18), length)
}

func TestRecomputeMinIndex(t *testing.T) {
	r := &Read{Alignv: []Align{{Score1: 30}, {Score1: 10}, {Score1: 20}}}
	r.RecomputeMinIndex()
	require.Equal(t, 1, r.MinIndex)
}

func TestMarshalUnmarshalStateRoundTrip(t *testing.T) {
	r := &Read{
		IsHit:      true,
		IsIDCov:    true,
		CYidYcov:   2,
		MaxSWScore: 5,
		MaxIndex:   1,
		MinIndex:   0,
		Alignv: []Align{
			{RefNum: 3, IndexNum: 1, Part: 0, Strand: true, RefBegin1: 10, RefEnd1: 28, ReadBegin1: 0, ReadEnd1: 18, Score1: 36, ReadLen: 18, Cigar: []uint32{PackCigar(CigarMatch, 18)}},
			{RefNum: 7, IndexNum: 1, Part: 0, Strand: false, RefBegin1: 5, RefEnd1: 22, ReadBegin1: 0, ReadEnd1: 17, Score1: 30, ReadLen: 18, Cigar: []uint32{PackCigar(CigarMatch, 10), PackCigar(CigarIns, 2), PackCigar(CigarMatch, 5)}},
		},
	}
	data := r.MarshalState()

	out := &Read{}
	require.NoError(t, out.UnmarshalState(data))
	require.Equal(t, r.IsHit, out.IsHit)
	require.Equal(t, r.IsIDCov, out.IsIDCov)
	require.Equal(t, r.CYidYcov, out.CYidYcov)
	require.Equal(t, r.MaxSWScore, out.MaxSWScore)
	require.Equal(t, r.MaxIndex, out.MaxIndex)
	require.Equal(t, r.MinIndex, out.MinIndex)
	require.Equal(t, r.Alignv, out.Alignv)
}

func TestUnmarshalStateRejectsTruncatedBuffer(t *testing.T) {
	r := &Read{}
	require.Error(t, r.UnmarshalState(nil))
	require.Error(t, r.UnmarshalState([]byte{0, 0, 0}))
}
