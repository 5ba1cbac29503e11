package report

import (
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/refindex"
)

// NewSAMHeader builds the optional @SQ header lines of spec.md section 4.9
// from a shard's Refstats SQ records.
func NewSAMHeader(sq []refindex.SQEntry) (*sam.Header, error) {
	refs := make([]*sam.Reference, len(sq))
	for i, e := range sq {
		r, err := sam.NewReference(e.ID, "", "", int(e.Len), nil, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "report: sam reference %s", e.ID)
		}
		refs[i] = r
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		return nil, errors.Wrap(err, "report: sam header")
	}
	return h, nil
}

// WriteSAMHeader writes h's textual @HD/@SQ block.
func WriteSAMHeader(w io.Writer, h *sam.Header) error {
	_, err := fmt.Fprint(w, h.String())
	return errors.Wrap(err, "report: write sam header")
}

// samCigarOp converts one packed cigar element to a sam.CigarOp.
func samCigarOp(c uint32) sam.CigarOp {
	op, length := read.UnpackCigar(c)
	switch op {
	case read.CigarIns:
		return sam.NewCigarOp(sam.CigarInsertion, int(length))
	case read.CigarDel:
		return sam.NewCigarOp(sam.CigarDeletion, int(length))
	default:
		return sam.NewCigarOp(sam.CigarMatch, int(length))
	}
}

// BuildSAMRecord converts one accepted alignment into a sam.Record,
// soft-clipping the unaligned read prefix/suffix per spec.md section 4.9.
func BuildSAMRecord(h *sam.Header, rd *read.Read, a read.Align, refIdx int) (*sam.Record, error) {
	refs := h.Refs()
	if refIdx < 0 || refIdx >= len(refs) {
		return nil, errors.Errorf("report: sam ref index %d out of range", refIdx)
	}

	cigar := make([]sam.CigarOp, 0, len(a.Cigar)+2)
	if a.ReadBegin1 > 0 {
		cigar = append(cigar, sam.NewCigarOp(sam.CigarSoftClipped, int(a.ReadBegin1)))
	}
	for _, c := range a.Cigar {
		cigar = append(cigar, samCigarOp(c))
	}
	if tail := int(a.ReadLen) - int(a.ReadEnd1) - 1; tail > 0 {
		cigar = append(cigar, sam.NewCigarOp(sam.CigarSoftClipped, tail))
	}

	flags := sam.Flags(0)
	if !a.Strand {
		flags |= sam.Reverse
	}

	rec, err := sam.NewRecord(rd.Header, refs[refIdx], nil, int(a.RefBegin1), -1, 0, 255, cigar, []byte(rd.Sequence), []byte(rd.Quality), nil)
	if err != nil {
		return nil, errors.Wrap(err, "report: build sam record")
	}
	rec.Flags = flags
	return rec, nil
}

// WriteSAMRecord writes rec's textual SAM line.
func WriteSAMRecord(w io.Writer, rec *sam.Record) error {
	_, err := fmt.Fprintln(w, rec.String())
	return errors.Wrap(err, "report: write sam record")
}
