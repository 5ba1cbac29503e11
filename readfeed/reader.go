package readfeed

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/seqio"
)

// Reader addresses reads in one shard file by the wire form of spec.md
// section 4.7: "<filenum>_<readnum>\n<header>\n<sequence>\n[+\n<quality>\n]".
// filenum is the shard's index among its sense's shard files; readnum is
// the 0-based position of the record within that shard, assigned as the
// shard is scanned. The underlying file on disk is plain FASTA/FASTQ;
// Reader builds the wire form in memory rather than persisting it, so
// shard files stay directly usable by any other FASTA/FASTQ-aware tool.
type Reader struct {
	f       *os.File
	sc      *seqio.Scanner
	filenum int
	readnum int
	format  seqio.Format
}

// NewReader opens the shard file at path, whose records it will address
// using filenum as the <filenum> field of the wire form.
func NewReader(path string, filenum int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "readfeed: open shard %s", path)
	}
	r, format, _, err := seqio.Detect(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "readfeed: detect shard %s", path)
	}
	return &Reader{
		f:       f,
		sc:      seqio.NewScanner(r, format),
		filenum: filenum,
		format:  format,
	}, nil
}

// Next returns the next record's wire form and its (filenum, readnum) id,
// or ok=false at clean EOF. Callers must check Err() after a false return.
func (r *Reader) Next() (wire string, filenum, readnum int, ok bool) {
	var rec seqio.Record
	if !r.sc.Scan(&rec) {
		return "", 0, 0, false
	}
	id := fmt.Sprintf("%d_%d", r.filenum, r.readnum)
	var body string
	if r.format == seqio.FASTQ {
		body = fmt.Sprintf("%s\n%s\n+\n%s\n", rec.Header, rec.Sequence, rec.Quality)
	} else {
		body = fmt.Sprintf("%s\n%s\n", rec.Header, rec.Sequence)
	}
	wire = id + "\n" + body
	filenum, readnum = r.filenum, r.readnum
	r.readnum++
	return wire, filenum, readnum, true
}

// NextRecord is Next's structured counterpart: it returns the parsed
// record alongside its (filenum, readnum) id, for callers (the
// orchestrator's align phase) that build a read.Read directly instead of
// re-parsing the wire form.
func (r *Reader) NextRecord() (filenum, readnum int, rec seqio.Record, ok bool) {
	if !r.sc.Scan(&rec) {
		return 0, 0, seqio.Record{}, false
	}
	filenum, readnum = r.filenum, r.readnum
	r.readnum++
	return filenum, readnum, rec, true
}

// Format reports the shard file's detected framing.
func (r *Reader) Format() seqio.Format {
	return r.format
}

// Err returns the underlying scan error, if any.
func (r *Reader) Err() error {
	return r.sc.Err()
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}
