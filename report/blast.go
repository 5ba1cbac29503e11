package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/align"
	"github.com/biotools/rnafilter/read"
)

// BlastOptions configures the BLAST reporter of spec.md section 4.9.
// Exactly one of Format0/Format1 must be set; the optional tabular
// columns only apply to Format1.
type BlastOptions struct {
	Format0 bool
	Format1 bool
	Cigar   bool
	QCov    bool
	QStrand bool
}

// Validate rejects the illegal combinations spec.md section 4.9 names:
// format 0 and format 1 together (or neither), and any optional tabular
// column requested alongside format 0.
func (o BlastOptions) Validate() error {
	if o.Format0 == o.Format1 {
		return errors.New("report: exactly one of blast format 0 or format 1 must be selected")
	}
	if o.Format0 && (o.Cigar || o.QCov || o.QStrand) {
		return errors.New("report: blast format 0 does not support cigar/qcov/qstrand columns")
	}
	return nil
}

// BlastRecord bundles the fields one alignment contributes to a BLAST
// report, independent of the output format.
type BlastRecord struct {
	QueryID   string
	SubjectID string
	Align     read.Align
	Cigar     align.CigarStats
	Identity  float64 // already rounded fraction in 0..1; the writers print it times 100
	Coverage  float64
	EValue    float64
	BitScore  float64
}

// WriteBlastRecord emits one BlastRecord in the configured format.
func WriteBlastRecord(w io.Writer, o BlastOptions, r BlastRecord) error {
	if o.Format0 {
		return writePairwise(w, r)
	}
	return writeTabular(w, o, r)
}

// writeTabular emits one m8-style row: qid, sid, %id, aln_len, mismatches,
// gaps, qstart, qend, sstart, send, evalue, bitscore, then the optional
// cigar/qcov/qstrand columns in that order, per spec.md section 4.9.
func writeTabular(w io.Writer, o BlastOptions, r BlastRecord) error {
	alnLen := r.Cigar.Matches + r.Cigar.Mismatches + r.Cigar.Gaps
	cols := []string{
		r.QueryID,
		r.SubjectID,
		fmt.Sprintf("%.3f", r.Identity*100),
		fmt.Sprintf("%d", alnLen),
		fmt.Sprintf("%d", r.Cigar.Mismatches),
		fmt.Sprintf("%d", r.Cigar.Gaps),
		fmt.Sprintf("%d", r.Align.ReadBegin1+1),
		fmt.Sprintf("%d", r.Align.ReadEnd1+1),
		fmt.Sprintf("%d", r.Align.RefBegin1+1),
		fmt.Sprintf("%d", r.Align.RefEnd1+1),
		fmt.Sprintf("%.2e", r.EValue),
		fmt.Sprintf("%.1f", r.BitScore),
	}
	if o.Cigar {
		cols = append(cols, cigarString(r.Align.Cigar))
	}
	if o.QCov {
		cols = append(cols, fmt.Sprintf("%.3f", r.Coverage*100))
	}
	if o.QStrand {
		cols = append(cols, strandString(r.Align.Strand))
	}
	_, err := fmt.Fprintln(w, strings.Join(cols, "\t"))
	return errors.Wrap(err, "report: write blast tabular row")
}

// writePairwise emits a human-readable BLAST-style pairwise block (format
// 0): a header line and the three-line alignment summary.
func writePairwise(w io.Writer, r BlastRecord) error {
	alnLen := r.Cigar.Matches + r.Cigar.Mismatches + r.Cigar.Gaps
	_, err := fmt.Fprintf(w,
		"Query= %s\nSubject= %s\n Score = %.1f bits, Expect = %.2e\n Identities = %d/%d (%.1f%%), Gaps = %d\n Strand = %s\n\n",
		r.QueryID, r.SubjectID, r.BitScore, r.EValue,
		r.Cigar.Matches, alnLen, r.Identity*100, r.Cigar.Gaps, strandString(r.Align.Strand))
	return errors.Wrap(err, "report: write blast pairwise block")
}

func cigarString(cigar []uint32) string {
	var b strings.Builder
	for _, c := range cigar {
		op, length := read.UnpackCigar(c)
		var ch byte
		switch op {
		case read.CigarMatch:
			ch = 'M'
		case read.CigarIns:
			ch = 'I'
		case read.CigarDel:
			ch = 'D'
		}
		fmt.Fprintf(&b, "%d%c", length, ch)
	}
	return b.String()
}

func strandString(fwd bool) string {
	if fwd {
		return "+"
	}
	return "-"
}
