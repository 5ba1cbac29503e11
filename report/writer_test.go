package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/read"
)

func TestFastxWriterUnpairedWritesAlignedAndOther(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFastxWriter(dir, "aligned_", "other_", "fasta", FastxOptions{Other: true}, 0)
	require.NoError(t, err)

	hit := &read.Read{Header: "h1", Sequence: "ACGT", Format: read.FASTA, IsHit: true}
	miss := &read.Read{Header: "h2", Sequence: "TTTT", Format: read.FASTA, IsHit: false}
	require.NoError(t, fw.WritePair(hit, nil))
	require.NoError(t, fw.WritePair(miss, nil))
	require.NoError(t, fw.Close())

	aligned, err := os.ReadFile(filepath.Join(dir, "aligned__0.fasta"))
	require.NoError(t, err)
	require.Equal(t, ">h1\nACGT\n", string(aligned))

	other, err := os.ReadFile(filepath.Join(dir, "other__0.fasta"))
	require.NoError(t, err)
	require.Equal(t, ">h2\nTTTT\n", string(other))
}

func TestFastxWriterPairedFourFileLayout(t *testing.T) {
	dir := t.TempDir()
	o := FastxOptions{Paired: true, Out2: true, SOut: true}
	fw, err := NewFastxWriter(dir, "aligned_", "other_", "fasta", o, 3)
	require.NoError(t, err)
	require.Len(t, fw.aligned, 4)
	require.NoError(t, fw.Close())

	for _, suffix := range []string{"pf", "pr", "sf", "sr"} {
		_, err := os.Stat(filepath.Join(dir, "aligned_"+suffix+"_3.fasta"))
		require.NoError(t, err)
	}
}

func TestFastxWriterRejectsInvalidOptions(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFastxWriter(dir, "a_", "o_", "fasta", FastxOptions{PairedIn: true, PairedOut: true}, 0)
	require.Error(t, err)
}
