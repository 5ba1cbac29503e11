package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/refindex"
)

func TestNewSAMHeaderBuildsSQEntries(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}, {ID: "chr2", Len: 2000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)
	require.Len(t, h.Refs(), 2)
	require.Equal(t, "chr1", h.Refs()[0].Name())
}

func TestWriteSAMHeaderEmitsSQLines(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteSAMHeader(&buf, h))
	require.Contains(t, buf.String(), "chr1")
	require.Contains(t, buf.String(), "SN:chr1")
}

func TestBuildSAMRecordSoftClipsUnalignedEnds(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)

	rd := &read.Read{Header: "r1", Sequence: "ACGTACGTAC", Quality: "IIIIIIIIII"}
	a := read.Align{
		Strand:     true,
		RefBegin1:  9,
		ReadBegin1: 2,
		ReadEnd1:   7,
		ReadLen:    10,
		Cigar:      []uint32{read.PackCigar(read.CigarMatch, 6)},
	}
	rec, err := BuildSAMRecord(h, rd, a, 0)
	require.NoError(t, err)
	require.Equal(t, "chr1", rec.Ref.Name())
	require.Equal(t, 9, rec.Pos)

	require.Equal(t, 3, len(rec.Cigar))
	require.Equal(t, 2, rec.Cigar[0].Len())
	require.Equal(t, 6, rec.Cigar[1].Len())
	require.Equal(t, 2, rec.Cigar[2].Len())
}

func TestBuildSAMRecordSetsReverseFlagForMinusStrand(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)
	rd := &read.Read{Header: "r1", Sequence: "ACGT", Quality: "IIII"}
	a := read.Align{Strand: false, ReadLen: 4, ReadEnd1: 3, Cigar: []uint32{read.PackCigar(read.CigarMatch, 4)}}
	rec, err := BuildSAMRecord(h, rd, a, 0)
	require.NoError(t, err)
	require.NotZero(t, rec.Flags&16)
}

func TestBuildSAMRecordRejectsOutOfRangeRefIndex(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)
	rd := &read.Read{Header: "r1", Sequence: "ACGT", Quality: "IIII"}
	_, err = BuildSAMRecord(h, rd, read.Align{}, 5)
	require.Error(t, err)
}

func TestWriteSAMRecordEmitsTextualLine(t *testing.T) {
	sq := []refindex.SQEntry{{ID: "chr1", Len: 1000}}
	h, err := NewSAMHeader(sq)
	require.NoError(t, err)
	rd := &read.Read{Header: "r1", Sequence: "ACGT", Quality: "IIII"}
	a := read.Align{ReadLen: 4, ReadEnd1: 3, Cigar: []uint32{read.PackCigar(read.CigarMatch, 4)}}
	rec, err := BuildSAMRecord(h, rd, a, 0)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteSAMRecord(&buf, rec))
	require.Contains(t, buf.String(), "chr1")
}
