package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/read"
)

func TestFastxOptionsValidateRejectsPairedInAndOut(t *testing.T) {
	o := FastxOptions{PairedIn: true, PairedOut: true}
	require.Error(t, o.Validate())
}

func TestFastxOptionsValidateRejectsSoutWithPairedIn(t *testing.T) {
	o := FastxOptions{SOut: true, PairedIn: true}
	require.Error(t, o.Validate())
}

func TestFastxOptionsValidateAcceptsPlainSout(t *testing.T) {
	o := FastxOptions{SOut: true}
	require.NoError(t, o.Validate())
}

func TestNumAlignedFilesMatrix(t *testing.T) {
	require.Equal(t, 1, NumAlignedFiles(FastxOptions{}))
	require.Equal(t, 2, NumAlignedFiles(FastxOptions{Out2: true}))
	require.Equal(t, 2, NumAlignedFiles(FastxOptions{SOut: true}))
	require.Equal(t, 4, NumAlignedFiles(FastxOptions{Out2: true, SOut: true}))
}

func TestAlignedBucketUnpairedOnlyWritesHits(t *testing.T) {
	o := FastxOptions{}
	require.Equal(t, 0, AlignedBucket(o, [2]bool{true, false}, 0))
	require.Equal(t, noBucket, AlignedBucket(o, [2]bool{false, false}, 0))
}

func TestAlignedBucketPairedOut2RequiresBothHitsWhenPairedOut(t *testing.T) {
	o := FastxOptions{Paired: true, Out2: true, PairedOut: true}
	require.Equal(t, 0, AlignedBucket(o, [2]bool{true, true}, 0))
	require.Equal(t, 1, AlignedBucket(o, [2]bool{true, true}, 1))
	require.Equal(t, noBucket, AlignedBucket(o, [2]bool{true, false}, 0))
}

func TestAlignedBucketPairedFourFileSplitsOnOwnHit(t *testing.T) {
	o := FastxOptions{Paired: true, Out2: true, SOut: true}
	require.Equal(t, 0, AlignedBucket(o, [2]bool{true, true}, 0))
	require.Equal(t, 1, AlignedBucket(o, [2]bool{true, true}, 1))
	require.Equal(t, 2, AlignedBucket(o, [2]bool{true, false}, 0))
	require.Equal(t, noBucket, AlignedBucket(o, [2]bool{false, true}, 0))
}

func TestOtherBucketDisabledWhenOtherFlagUnset(t *testing.T) {
	o := FastxOptions{Paired: true}
	require.Equal(t, noBucket, OtherBucket(o, [2]bool{false, false}, 0))
}

func TestOtherBucketUnpairedWritesNonHits(t *testing.T) {
	o := FastxOptions{Other: true}
	require.Equal(t, 0, OtherBucket(o, [2]bool{false, false}, 0))
	require.Equal(t, noBucket, OtherBucket(o, [2]bool{true, false}, 0))
}

func TestOtherBucketPairedNeverFiresWhenBothHit(t *testing.T) {
	o := FastxOptions{Paired: true, Other: true, Out2: true}
	require.Equal(t, noBucket, OtherBucket(o, [2]bool{true, true}, 0))
}

func TestFormatRecordFasta(t *testing.T) {
	rd := &read.Read{Header: "r1", Sequence: "ACGT", Format: read.FASTA}
	require.Equal(t, ">r1\nACGT\n", FormatRecord(rd))
}

func TestFormatRecordFastq(t *testing.T) {
	rd := &read.Read{Header: "r1", Sequence: "ACGT", Quality: "IIII", Format: read.FASTQ}
	require.Equal(t, "@r1\nACGT\n+\nIIII\n", FormatRecord(rd))
}
