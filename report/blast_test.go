package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/align"
	"github.com/biotools/rnafilter/read"
)

func TestBlastOptionsValidateRequiresExactlyOneFormat(t *testing.T) {
	require.Error(t, BlastOptions{}.Validate())
	require.Error(t, BlastOptions{Format0: true, Format1: true}.Validate())
	require.NoError(t, BlastOptions{Format0: true}.Validate())
	require.NoError(t, BlastOptions{Format1: true}.Validate())
}

func TestBlastOptionsValidateRejectsTabularColumnsOnFormat0(t *testing.T) {
	require.Error(t, BlastOptions{Format0: true, Cigar: true}.Validate())
	require.Error(t, BlastOptions{Format0: true, QCov: true}.Validate())
	require.Error(t, BlastOptions{Format0: true, QStrand: true}.Validate())
}

func sampleRecord() BlastRecord {
	return BlastRecord{
		QueryID:   "read1",
		SubjectID: "ref1",
		Align: read.Align{
			Strand:     true,
			RefBegin1:  9,
			RefEnd1:    26,
			ReadBegin1: 0,
			ReadEnd1:   17,
			Cigar:      []uint32{read.PackCigar(read.CigarMatch, 18)},
		},
		Cigar:    align.CigarStats{Matches: 17, Mismatches: 1, Gaps: 0},
		Identity: 0.944,
		Coverage: 1.0,
		EValue:   1e-10,
		BitScore: 34.5,
	}
}

func TestWriteBlastRecordTabularColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	o := BlastOptions{Format1: true, Cigar: true, QCov: true, QStrand: true}
	require.NoError(t, WriteBlastRecord(&buf, o, sampleRecord()))
	fields := strings.Split(strings.TrimRight(buf.String(), "\n"), "\t")
	require.Equal(t, "read1", fields[0])
	require.Equal(t, "ref1", fields[1])
	require.Len(t, fields, 15)
	require.Equal(t, "+", fields[14])
}

func TestWriteBlastRecordTabularOmitsOptionalColumns(t *testing.T) {
	var buf bytes.Buffer
	o := BlastOptions{Format1: true}
	require.NoError(t, WriteBlastRecord(&buf, o, sampleRecord()))
	fields := strings.Split(strings.TrimRight(buf.String(), "\n"), "\t")
	require.Len(t, fields, 12)
}

func TestWriteBlastRecordPairwise(t *testing.T) {
	var buf bytes.Buffer
	o := BlastOptions{Format0: true}
	require.NoError(t, WriteBlastRecord(&buf, o, sampleRecord()))
	require.Contains(t, buf.String(), "Query= read1")
	require.Contains(t, buf.String(), "Subject= ref1")
}

func TestCigarStringRendersOpsAndLengths(t *testing.T) {
	cigar := []uint32{read.PackCigar(read.CigarMatch, 10), read.PackCigar(read.CigarIns, 2), read.PackCigar(read.CigarDel, 3)}
	require.Equal(t, "10M2I3D", cigarString(cigar))
}

func TestStrandStringForwardReverse(t *testing.T) {
	require.Equal(t, "+", strandString(true))
	require.Equal(t, "-", strandString(false))
}
