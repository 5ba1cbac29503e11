package refindex

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/trie"
)

func writeFasta(t *testing.T, dir string, records map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "ref.fasta")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	headers := make([]string, 0, len(records))
	for h := range records {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	for _, h := range headers {
		_, err := f.WriteString(">" + h + "\n" + records[h] + "\n")
		require.NoError(t, err)
	}
	return path
}

func TestBuildAndLoadShardRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFasta(t, dir, map[string]string{
		"seq1": "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT",
		"seq2": "TTGGCCAATTGGCCAATTGGCCAATTGGCCAATTGGCCAA",
	})
	prefix := filepath.Join(dir, "idx")

	bp := BuildParams{L: 18, Interval: 1, MaxPos: 0, ShardMB: 1000}
	require.NoError(t, Build(fasta, prefix, bp))

	_, err := os.Stat(prefix + ".stats")
	require.NoError(t, err)

	sf, err := os.Open(prefix + ".stats")
	require.NoError(t, err)
	defer sf.Close()
	rs, err := ReadStats(sf)
	require.NoError(t, err)
	require.Len(t, rs.Shards, 1)
	require.EqualValues(t, 2, rs.TotalSeqCount)

	shard, err := LoadShard(fasta, prefix, 0, rs, 0)
	require.NoError(t, err)
	require.Len(t, shard.Seqs, 2)
	require.Equal(t, []string{"seq1", "seq2"}, shard.SQ)

	// The full K-mer window starting at position 0 of seq1 must be
	// findable via the forward trie and resolve to a position entry
	// covering (seq=0, pos=0).
	id, ok := trieLookupFirstWindow(t, shard)
	require.True(t, ok)
	occ := shard.Pos.Get(id)
	require.NotEmpty(t, occ)
	require.Equal(t, uint32(0), occ[0].Seq)
}

func TestBuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFasta(t, dir, map[string]string{
		"seq1": "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT",
	})
	prefix := filepath.Join(dir, "idx")
	bp := BuildParams{L: 18, Interval: 1, MaxPos: 0, ShardMB: 1000}
	require.NoError(t, Build(fasta, prefix, bp))

	info1, err := os.Stat(prefix + ".kmer_0.dat")
	require.NoError(t, err)

	require.NoError(t, Build(fasta, prefix, bp))
	info2, err := os.Stat(prefix + ".kmer_0.dat")
	require.NoError(t, err)
	require.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestSequenceTooShortFails(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFasta(t, dir, map[string]string{"short": "ACGT"})
	prefix := filepath.Join(dir, "idx")
	bp := BuildParams{L: 18, Interval: 1, MaxPos: 0, ShardMB: 1000}
	err := Build(fasta, prefix, bp)
	require.Error(t, err)
}

// trieLookupFirstWindow probes the forward trie at slot kf for seq1's
// position-0 window and returns the patched id.
func trieLookupFirstWindow(t *testing.T, shard *Shard) (uint32, bool) {
	t.Helper()
	letters := []byte{'A', 'C', 'G', 'T', 'N'}
	encoded := shard.Seqs[0][:shard.Params.K]
	asciiWindow := make([]byte, len(encoded))
	for i, b := range encoded {
		asciiWindow[i] = letters[b]
	}
	p := shard.Params
	kf := kmer.Encode32(asciiWindow[:p.P])
	suffix := kmer.Encode64(asciiWindow[p.P:])
	return trie.Lookup(&shard.Lookup.Slots[kf].TrieFwd, suffix, p.K-p.P)
}
