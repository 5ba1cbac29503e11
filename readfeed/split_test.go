package readfeed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSplitFixture(t *testing.T, dir string) (fwd, rev string) {
	t.Helper()
	fwd = filepath.Join(dir, "fwd.fq")
	rev = filepath.Join(dir, "rev.fq")
	fwdContent := ""
	revContent := ""
	for i := 0; i < 10; i++ {
		fwdContent += fmtRecord(i, "AAACCC")
		revContent += fmtRecord(i, "TTTGGG")
	}
	require.NoError(t, os.WriteFile(fwd, []byte(fwdContent), 0o644))
	require.NoError(t, os.WriteFile(rev, []byte(revContent), 0o644))
	return fwd, rev
}

func fmtRecord(i int, seq string) string {
	return "@read" + itoa(i) + "\n" + seq + "\n+\n" + repeatChar('I', len(seq)) + "\n"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func repeatChar(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

func TestShardCountsDistributesSurplus(t *testing.T) {
	counts := shardCounts(10, 3)
	require.Equal(t, []int{4, 3, 3}, counts)
	total := 0
	for _, c := range counts {
		total += c
	}
	require.Equal(t, 10, total)
}

func TestSplitSingleSenseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fwd, _ := writeSplitFixture(t, dir)

	workdir := filepath.Join(dir, "work")
	d, err := Split([]string{fwd}, workdir, 3)
	require.NoError(t, err)
	require.Equal(t, 10, d.NumReadsTotal)
	require.Equal(t, 1, d.NumSenses)
	require.Len(t, d.ShardFiles, 3)

	total := 0
	for _, sm := range d.ShardFiles {
		total += sm.NumReads
		_, err := os.Stat(sm.Path)
		require.NoError(t, err)
	}
	require.Equal(t, 10, total)
}

func TestSplitPairedKeepsMatesAligned(t *testing.T) {
	dir := t.TempDir()
	fwd, rev := writeSplitFixture(t, dir)

	workdir := filepath.Join(dir, "work")
	d, err := Split([]string{fwd, rev}, workdir, 2)
	require.NoError(t, err)
	require.Equal(t, 2, d.NumSenses)
	require.Len(t, d.ShardFiles, 4)

	for k := 0; k < 2; k++ {
		var fwdCount, revCount int
		for _, sm := range d.ShardFiles {
			base := filepath.Base(sm.Path)
			if base == "fwd_"+itoa(k)+".fq" {
				fwdCount = sm.NumReads
			}
			if base == "rev_"+itoa(k)+".fq" {
				revCount = sm.NumReads
			}
		}
		require.Equal(t, fwdCount, revCount)
	}
}

func TestIsReadyDetectsStaleSplit(t *testing.T) {
	dir := t.TempDir()
	fwd, _ := writeSplitFixture(t, dir)
	workdir := filepath.Join(dir, "work")

	ready, _, err := IsReady(workdir, []string{fwd})
	require.NoError(t, err)
	require.False(t, ready)

	_, err = Split([]string{fwd}, workdir, 2)
	require.NoError(t, err)

	ready, d, err := IsReady(workdir, []string{fwd})
	require.NoError(t, err)
	require.True(t, ready)
	require.Equal(t, 10, d.NumReadsTotal)

	require.NoError(t, os.WriteFile(fwd, []byte("@x\nAC\n+\nII\n"), 0o644))
	ready, _, err = IsReady(workdir, []string{fwd})
	require.NoError(t, err)
	require.False(t, ready)
}

func TestCleanRemovesShardFiles(t *testing.T) {
	dir := t.TempDir()
	fwd, _ := writeSplitFixture(t, dir)
	workdir := filepath.Join(dir, "work")

	_, err := Split([]string{fwd}, workdir, 2)
	require.NoError(t, err)
	require.NoError(t, Clean(workdir))

	entries, err := os.ReadDir(filepath.Join(workdir, shardDir))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReaderProducesWireForm(t *testing.T) {
	dir := t.TempDir()
	fwd, _ := writeSplitFixture(t, dir)
	workdir := filepath.Join(dir, "work")

	d, err := Split([]string{fwd}, workdir, 1)
	require.NoError(t, err)
	require.Len(t, d.ShardFiles, 1)

	r, err := NewReader(d.ShardFiles[0].Path, 0)
	require.NoError(t, err)
	defer r.Close()

	wire, filenum, readnum, ok := r.Next()
	require.True(t, ok)
	require.Equal(t, 0, filenum)
	require.Equal(t, 0, readnum)
	require.Contains(t, wire, "0_0\n")
	require.Contains(t, wire, "AAACCC")
}
