package align

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/refindex"
)

func buildTestShard(t *testing.T) *refindex.Shard {
	t.Helper()
	dir := t.TempDir()
	fastaPath := filepath.Join(dir, "ref.fasta")
	require.NoError(t, os.WriteFile(fastaPath, []byte(">seq1\nACGTACGTACGTACGTACGTACGT\n"), 0o644))
	prefix := filepath.Join(dir, "idx")

	bp := refindex.BuildParams{L: 18, Interval: 1, MaxPos: 0, ShardMB: 1000}
	require.NoError(t, refindex.Build(fastaPath, prefix, bp))

	sf, err := os.Open(prefix + ".stats")
	require.NoError(t, err)
	defer sf.Close()
	rs, err := refindex.ReadStats(sf)
	require.NoError(t, err)

	shard, err := refindex.LoadShard(fastaPath, prefix, 0, rs, 0)
	require.NoError(t, err)
	return shard
}

func TestSearchFindsExactMatchCandidates(t *testing.T) {
	shard := buildTestShard(t)
	isequence := kmer.Encode5([]byte("ACGTACGTACGTACGTAC"))

	sp := SearchParams{SkipLengths: [3]int{18, 9, 3}, SeedHits: 2}
	candidates := Search(isequence, shard, sp)
	require.NotEmpty(t, candidates)
}

func TestSearchReverseComplementOptional(t *testing.T) {
	shard := buildTestShard(t)
	isequence := kmer.Encode5([]byte("ACGTACGTACGTACGTAC"))

	sp := SearchParams{SkipLengths: [3]int{18}, SeedHits: 100, SearchReverse: true, FullSearch: true}
	withRev := Search(isequence, shard, sp)
	sp.SearchReverse = false
	withoutRev := Search(isequence, shard, sp)
	require.GreaterOrEqual(t, len(withRev), len(withoutRev))
}
