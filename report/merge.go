package report

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Merge implements the merge() step common to every reporter (spec.md
// section 4.9): it concatenates numSplits shard files, named
// "<prefix><bucket>_<i>.<ext>" for i in [0, numSplits), into the final
// output "<prefix><bucket>.<ext>", in shard-index order, then removes the
// shard files.
func Merge(dir, prefix, bucket, ext string, numSplits int) (string, error) {
	name := prefix + bucket
	if ext != "" {
		name += "." + ext
	}
	finalName := filepath.Join(dir, name)
	out, err := os.Create(finalName)
	if err != nil {
		return "", errors.Wrapf(err, "report: create merged output %s", finalName)
	}
	defer out.Close()

	for i := 0; i < numSplits; i++ {
		shardPath := shardOutputPath(dir, prefix, bucket, ext, i)
		if err := appendShard(out, shardPath); err != nil {
			return "", err
		}
		if err := os.Remove(shardPath); err != nil {
			return "", errors.Wrapf(err, "report: remove shard %s", shardPath)
		}
	}
	return finalName, nil
}

func shardOutputPath(dir, prefix, bucket, ext string, idx int) string {
	name := prefix + bucket + "_" + strconv.Itoa(idx)
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

func appendShard(out *os.File, shardPath string) error {
	in, err := os.Open(shardPath)
	if err != nil {
		return errors.Wrapf(err, "report: open shard %s", shardPath)
	}
	defer in.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "report: copy shard %s", shardPath)
	}
	return nil
}
