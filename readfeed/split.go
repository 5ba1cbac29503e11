package readfeed

import (
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/blainsmith/seahash"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/seqio"
)

// CountResult is the output of the streaming counting pre-pass over the
// original input files, feeding Refstats-compatible length extrema into
// the shard distribution math of spec.md section 4.7.
type CountResult struct {
	NumReads     int
	MinReadLen   int
	MaxReadLen   int
	TotalReadLen int64
}

// CountPass streams every record in paths once, without retaining any of
// them, to learn the read count and length extrema Split needs before it
// can compute the per-shard distribution. When two paths are given (paired
// input) only the first file's counts are authoritative; spec.md section
// 4.7 requires equal record counts across mates and does not define a
// recovery path when they disagree, so CountPass reports a mismatch as an
// error instead of guessing which side is truncated.
func CountPass(paths []string) (*CountResult, []FileMeta, error) {
	metas := make([]FileMeta, len(paths))
	var primary *CountResult

	for i, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "readfeed: stat %s", p)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "readfeed: open %s", p)
		}
		digest, format, isZip, err := digestAndDetect(f)
		f.Close()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "readfeed: detect %s", p)
		}

		f2, err := os.Open(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "readfeed: reopen %s", p)
		}
		r, _, _, err := seqio.Detect(f2)
		if err != nil {
			f2.Close()
			return nil, nil, errors.Wrapf(err, "readfeed: detect %s", p)
		}
		sc := seqio.NewScanner(r, format)
		var rec seqio.Record
		res := &CountResult{}
		for sc.Scan(&rec) {
			n := len(rec.Sequence)
			res.NumReads++
			res.TotalReadLen += int64(n)
			if res.MinReadLen == 0 || n < res.MinReadLen {
				res.MinReadLen = n
			}
			if n > res.MaxReadLen {
				res.MaxReadLen = n
			}
		}
		err = sc.Err()
		f2.Close()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "readfeed: scan %s", p)
		}

		metas[i] = FileMeta{
			Path:      p,
			SizeBytes: fi.Size(),
			NumReads:  res.NumReads,
			IsZip:     isZip,
			Format:    format,
			Digest:    digest,
		}
		if i == 0 {
			primary = res
		} else if res.NumReads != primary.NumReads {
			return nil, nil, errors.Errorf("readfeed: mate read count mismatch: %s has %d, %s has %d",
				paths[0], primary.NumReads, p, res.NumReads)
		}
	}
	return primary, metas, nil
}

// digestAndDetect computes a seahash digest of the raw (still possibly
// gzip-compressed) file contents and separately sniffs its format, so the
// digest reflects exactly the bytes IsReady will re-hash later.
func digestAndDetect(f *os.File) (uint64, seqio.Format, bool, error) {
	h := seahash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, 0, false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, false, err
	}
	_, format, isZip, err := seqio.Detect(f)
	if err != nil {
		return 0, 0, false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, false, err
	}
	return h.Sum64(), format, isZip, nil
}

func fileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "readfeed: open %s", path)
	}
	defer f.Close()
	h := seahash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, errors.Wrapf(err, "readfeed: hash %s", path)
	}
	return h.Sum64(), nil
}

// shardCounts implements spec.md section 4.7's distribution math: minr =
// Nr/S, surplus = Nr - minr*S, and the first `surplus` shards each take one
// extra read.
func shardCounts(nr, s int) []int {
	minr := nr / s
	surplus := nr - minr*s
	counts := make([]int, s)
	for k := range counts {
		counts[k] = minr
		if k < surplus {
			counts[k]++
		}
	}
	return counts
}

// shardDir is the fixed working-directory name spec.md section 4.7 mandates
// for split shard and descriptor files.
const shardDir = "readb"

func shardPath(workdir string, sense int, idx int, format seqio.Format, gz bool) string {
	prefix := "fwd"
	if sense == 1 {
		prefix = "rev"
	}
	ext := "fa"
	if format == seqio.FASTQ {
		ext = "fq"
	}
	name := fmt.Sprintf("%s_%d.%s", prefix, idx, ext)
	if gz {
		name += ".gz"
	}
	return filepath.Join(workdir, shardDir, name)
}

// shardWriter wraps a shard output file with an optional gzip layer and a
// seahash digest of the uncompressed record bytes it has written, so Split
// can record both SizeBytes and Digest in the descriptor without a second
// pass.
type shardWriter struct {
	f   *os.File
	gz  *gzip.Writer
	h   hash.Hash64
	out io.Writer
}

func newShardWriter(path string, gz bool) (*shardWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "readfeed: create %s", path)
	}
	sw := &shardWriter{f: f, h: seahash.New()}
	if gz {
		sw.gz = gzip.NewWriter(f)
		sw.out = io.MultiWriter(sw.gz, sw.h)
	} else {
		sw.out = io.MultiWriter(f, sw.h)
	}
	return sw, nil
}

func (sw *shardWriter) writeRecord(rec *seqio.Record, format seqio.Format) error {
	var err error
	if format == seqio.FASTQ {
		_, err = fmt.Fprintf(sw.out, "@%s\n%s\n+\n%s\n", rec.Header, rec.Sequence, rec.Quality)
	} else {
		_, err = fmt.Fprintf(sw.out, ">%s\n%s\n", rec.Header, rec.Sequence)
	}
	return err
}

func (sw *shardWriter) close() error {
	if sw.gz != nil {
		if err := sw.gz.Close(); err != nil {
			sw.f.Close()
			return err
		}
	}
	return sw.f.Close()
}

// Split partitions the one or two files in paths into numSplits shards per
// sense under workdir/readb/, writing fwd_<i> and, for paired input,
// rev_<i> shard files, then writes the text descriptor. It is the entry
// point of spec.md section 4.7's SPLIT_READS mode.
func Split(paths []string, workdir string, numSplits int) (*Descriptor, error) {
	if len(paths) == 0 || len(paths) > 2 {
		return nil, errors.Errorf("readfeed: Split takes one or two paths, got %d", len(paths))
	}
	if numSplits <= 0 {
		return nil, errors.New("readfeed: numSplits must be positive")
	}
	count, origMetas, err := CountPass(paths)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(workdir, shardDir), 0o755); err != nil {
		return nil, errors.Wrap(err, "readfeed: mkdir readb")
	}

	numSenses := len(paths)
	counts := shardCounts(count.NumReads, numSplits)

	readers := make([]*seqio.Scanner, numSenses)
	files := make([]*os.File, numSenses)
	for s, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, errors.Wrapf(err, "readfeed: reopen %s", p)
		}
		r, format, _, err := seqio.Detect(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "readfeed: detect %s", p)
		}
		files[s] = f
		readers[s] = seqio.NewScanner(r, format)
		origMetas[s].Format = format
	}
	defer func() {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
	}()

	shardMetas := make([]FileMeta, 0, numSplits*numSenses)
	for k := 0; k < numSplits; k++ {
		writers := make([]*shardWriter, numSenses)
		for s := 0; s < numSenses; s++ {
			path := shardPath(workdir, s, k, origMetas[s].Format, origMetas[s].IsZip)
			w, err := newShardWriter(path, origMetas[s].IsZip)
			if err != nil {
				return nil, err
			}
			writers[s] = w
		}

		var rec seqio.Record
		n := 0
		for ; n < counts[k]; n++ {
			for s := 0; s < numSenses; s++ {
				if !readers[s].Scan(&rec) {
					if err := readers[s].Err(); err != nil {
						return nil, errors.Wrapf(err, "readfeed: scan sense %d", s)
					}
					return nil, errors.Errorf("readfeed: unexpected end of input in sense %d shard %d", s, k)
				}
				if err := writers[s].writeRecord(&rec, origMetas[s].Format); err != nil {
					return nil, errors.Wrapf(err, "readfeed: write shard %d sense %d", k, s)
				}
			}
		}

		for s := 0; s < numSenses; s++ {
			if err := writers[s].close(); err != nil {
				return nil, errors.Wrapf(err, "readfeed: close shard %d sense %d", k, s)
			}
			path := shardPath(workdir, s, k, origMetas[s].Format, origMetas[s].IsZip)
			fi, err := os.Stat(path)
			if err != nil {
				return nil, errors.Wrap(err, "readfeed: stat shard")
			}
			shardMetas = append(shardMetas, FileMeta{
				Path:      path,
				SizeBytes: fi.Size(),
				NumReads:  n,
				IsZip:     origMetas[s].IsZip,
				Format:    origMetas[s].Format,
				Digest:    writers[s].h.Sum64(),
			})
		}
	}

	d := &Descriptor{
		Timestamp:     nowTimestamp(),
		NumOrigFiles:  len(paths),
		NumSenses:     numSenses,
		NumSplits:     numSplits,
		NumReadsTotal: count.NumReads,
		OrigFiles:     origMetas,
		ShardFiles:    shardMetas,
	}
	descPath := filepath.Join(workdir, shardDir, "descriptor.txt")
	df, err := os.Create(descPath)
	if err != nil {
		return nil, errors.Wrap(err, "readfeed: create descriptor")
	}
	if err := WriteDescriptor(df, d); err != nil {
		df.Close()
		return nil, err
	}
	return d, df.Close()
}

// IsReady reports whether workdir/readb/ already holds a split matching
// origPaths: the descriptor exists, every original file's path/size/format
// and content digest still match, every shard file it lists still exists
// with matching metadata, and the shard file count equals
// num_splits*num_senses+num_orig_files, per spec.md section 4.7.
func IsReady(workdir string, origPaths []string) (bool, *Descriptor, error) {
	descPath := filepath.Join(workdir, shardDir, "descriptor.txt")
	df, err := os.Open(descPath)
	if os.IsNotExist(err) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, errors.Wrap(err, "readfeed: open descriptor")
	}
	d, err := ReadDescriptor(df)
	df.Close()
	if err != nil {
		return false, nil, errors.Wrap(err, "readfeed: parse descriptor")
	}

	if d.NumOrigFiles != len(origPaths) {
		return false, d, nil
	}
	if len(d.OrigFiles)+len(d.ShardFiles) != d.NumSplits*d.NumSenses+d.NumOrigFiles {
		return false, d, nil
	}
	for i, p := range origPaths {
		fi, err := os.Stat(p)
		if err != nil {
			return false, d, nil
		}
		rec := d.OrigFiles[i]
		if rec.Path != p || rec.SizeBytes != fi.Size() {
			return false, d, nil
		}
		digest, err := fileDigest(p)
		if err != nil {
			return false, d, errors.Wrapf(err, "readfeed: digest %s", p)
		}
		if digest != rec.Digest {
			return false, d, nil
		}
	}
	for _, sm := range d.ShardFiles {
		fi, err := os.Stat(sm.Path)
		if err != nil || fi.Size() != sm.SizeBytes {
			return false, d, nil
		}
	}
	return true, d, nil
}

// Clean removes every shard and descriptor file under workdir/readb/,
// called whenever IsReady finds a stale or partial split.
func Clean(workdir string) error {
	dir := filepath.Join(workdir, shardDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "readfeed: read readb dir")
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrapf(err, "readfeed: remove %s", e.Name())
		}
	}
	return nil
}
