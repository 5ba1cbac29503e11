package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/read"
)

// fastxBucketNames gives the stable per-bucket-count filename suffixes
// used by the aligned-side writer (ap/as for sout, af/ar for out2,
// apf/apr/asf/asr when both are set), matching report_fastx.cpp's naming.
var fastxBucketNames = map[int][]string{
	1: {""},
	2: {"f", "r"}, // bucketNamesFor uses soutBucketNames instead when sout alone is active
	4: {"pf", "pr", "sf", "sr"},
}

func soutBucketNames() []string { return []string{"p", "s"} }

// FastxWriter writes one shard's worth of aligned and/or other output
// files for the FASTA/FASTQ reporter.
type FastxWriter struct {
	opts       FastxOptions
	aligned    []*bufio.Writer
	alignedF   []*os.File
	other      []*bufio.Writer
	otherF     []*os.File
	alignedPfx string
	otherPfx   string
	shardIdx   int
}

// NewFastxWriter opens the shard's aligned/other output files under dir,
// named "<pfx><bucket>_<shardIdx>.<ext>".
func NewFastxWriter(dir, alignedPfx, otherPfx string, ext string, o FastxOptions, shardIdx int) (*FastxWriter, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	fw := &FastxWriter{opts: o, alignedPfx: alignedPfx, otherPfx: otherPfx, shardIdx: shardIdx}

	numAligned := NumAlignedFiles(o)
	names := bucketNamesFor(o, numAligned)
	for _, n := range names {
		f, w, err := openBucket(dir, alignedPfx, n, ext, shardIdx)
		if err != nil {
			fw.closeAll()
			return nil, err
		}
		fw.alignedF = append(fw.alignedF, f)
		fw.aligned = append(fw.aligned, w)
	}

	if o.Other {
		for _, n := range names {
			f, w, err := openBucket(dir, otherPfx, n, ext, shardIdx)
			if err != nil {
				fw.closeAll()
				return nil, err
			}
			fw.otherF = append(fw.otherF, f)
			fw.other = append(fw.other, w)
		}
	}
	return fw, nil
}

// bucketNamesFor picks the filename suffix set matching num_out, per
// report_fx_base.cpp: ap/as when sout drives the 2-file case, af/ar when
// out2 drives it, apf/apr/asf/asr for the combined 4-file case.
func bucketNamesFor(o FastxOptions, numAligned int) []string {
	switch numAligned {
	case 2:
		if o.SOut && !o.Out2 {
			return soutBucketNames()
		}
		return fastxBucketNames[2]
	default:
		return fastxBucketNames[numAligned]
	}
}

func openBucket(dir, pfx, bucket, ext string, shardIdx int) (*os.File, *bufio.Writer, error) {
	name := fmt.Sprintf("%s%s_%d.%s", pfx, bucket, shardIdx, ext)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "report: create %s", path)
	}
	return f, bufio.NewWriter(f), nil
}

// WritePair writes both mates of a pair (or a single read when
// !opts.Paired, with rev==nil) to whichever aligned/other buckets apply.
func (fw *FastxWriter) WritePair(fwd, rev *read.Read) error {
	hit := [2]bool{fwd.IsHit}
	if fw.opts.Paired && rev != nil {
		hit[1] = rev.IsHit
	}
	mates := [2]*read.Read{fwd, rev}
	n := 1
	if fw.opts.Paired && rev != nil {
		n = 2
	}
	for sense := 0; sense < n; sense++ {
		rd := mates[sense]
		if rd == nil {
			continue
		}
		if b := AlignedBucket(fw.opts, hit, sense); b != noBucket {
			if err := writeRecord(fw.aligned[b], rd); err != nil {
				return err
			}
		}
		if b := OtherBucket(fw.opts, hit, sense); b != noBucket {
			if err := writeRecord(fw.other[b], rd); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRecord(w *bufio.Writer, rd *read.Read) error {
	_, err := w.WriteString(FormatRecord(rd))
	return errors.Wrap(err, "report: write record")
}

// Close flushes and closes every open output file.
func (fw *FastxWriter) Close() error {
	for _, w := range fw.aligned {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	for _, w := range fw.other {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	fw.closeAll()
	return nil
}

func (fw *FastxWriter) closeAll() {
	for _, f := range fw.alignedF {
		f.Close()
	}
	for _, f := range fw.otherF {
		f.Close()
	}
}
