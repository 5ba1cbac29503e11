package orchestrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/refindex"
)

func writeTestRefstats(t *testing.T, path string) *refindex.Refstats {
	t.Helper()
	rs := &refindex.Refstats{
		BackgroundFreq: [4]float64{0.25, 0.25, 0.25, 0.25},
		TotalRefLen:    1000,
		SeedL:          18,
		TotalSeqCount:  4,
		SQ:             []refindex.SQEntry{{ID: "seq1", Len: 250}, {ID: "seq2", Len: 750}},
		Lambda:         0.192,
		K:              0.176,
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, rs.WriteStats(f))
	return rs
}

func TestLoadDatabasePopulatesMinimalScore(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "db.stats")
	writeTestRefstats(t, statsPath)

	db, err := LoadDatabase(filepath.Join(dir, "db.fasta"), filepath.Join(dir, "db.idx"), 0, statsPath, 1.0)
	require.NoError(t, err)
	require.Equal(t, uint16(0), db.IndexNum)
	require.Equal(t, uint64(1000), db.Refstats.TotalRefLen)
	require.GreaterOrEqual(t, db.MinimalScore, 0)
}

func TestAlignParamsCarriesDatabaseFields(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "db.stats")
	writeTestRefstats(t, statsPath)

	db, err := LoadDatabase(filepath.Join(dir, "db.fasta"), filepath.Join(dir, "db.idx"), 3, statsPath, 1.0)
	require.NoError(t, err)

	opts := AlignOptions{SeedHits: 2, MinLis: 2, Match: 2, Mismatch: -3, GapOpen: 5, GapExt: 2}
	p := db.alignParams(opts, 7)
	require.Equal(t, uint16(3), p.IndexNum)
	require.Equal(t, uint16(7), p.Part)
	require.Equal(t, db.Refstats.Lambda, p.Lambda)
	require.Equal(t, db.Refstats.K, p.K)
	require.Equal(t, db.MinimalScore, p.MinimalScore)
	require.Equal(t, int(db.Refstats.SeedL)+1, p.SeedK)
}
