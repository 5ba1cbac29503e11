package blobio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIsRemote(t *testing.T) {
	require.True(t, IsRemote("s3://bucket/key"))
	require.False(t, IsRemote("/local/path"))
	require.False(t, IsRemote("relative/path"))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket/path/to/object.fasta")
	require.NoError(t, err)
	require.Equal(t, "my-bucket", bucket)
	require.Equal(t, "path/to/object.fasta", key)
}

func TestOpenCreateLocalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")

	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello blobio"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "hello blobio", string(data))
}

func TestOpenMissingLocalFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(errors.Cause(err)))
}
