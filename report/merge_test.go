package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeConcatenatesShardsInOrder(t *testing.T) {
	dir := t.TempDir()
	for i, body := range []string{"first\n", "second\n", "third\n"} {
		path := shardOutputPath(dir, "aligned_", "f", "fasta", i)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	out, err := Merge(dir, "aligned_", "f", "fasta", 3)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "aligned_f.fasta"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\nthird\n", string(data))
}

func TestMergeRemovesShardFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		path := shardOutputPath(dir, "aligned_", "f", "fasta", i)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	_, err := Merge(dir, "aligned_", "f", "fasta", 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := os.Stat(shardOutputPath(dir, "aligned_", "f", "fasta", i))
		require.True(t, os.IsNotExist(err))
	}
}

func TestMergeWithoutExtensionOmitsDot(t *testing.T) {
	dir := t.TempDir()
	path := shardOutputPath(dir, "otu_", "map", "", 0)
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n"), 0o644))

	out, err := Merge(dir, "otu_", "map", "", 1)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "otu_map"), out)
}
