// Package report implements C11: the FASTA/FASTQ partition, BLAST, SAM,
// OTU-map and summary reporters, plus the shard-concatenating merge() of
// spec.md section 4.9.
package report

import (
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/read"
)

// FastxOptions configures the FASTA/FASTQ partition reporter's bucketing
// rules, spec.md section 4.9.
type FastxOptions struct {
	// Paired is true when reads are processed as fwd/rev pairs (two input
	// files). Out2/SOut/PairedIn/PairedOut only apply in this mode.
	Paired bool

	PairedIn  bool
	PairedOut bool
	Out2      bool
	SOut      bool
	// Other enables the non-aligned-reads output file(s).
	Other bool
}

// Validate rejects the illegal flag combinations of spec.md section 4.9,
// following options.cpp's own config-time checks.
func (o FastxOptions) Validate() error {
	if o.PairedIn && o.PairedOut {
		return errors.New("report: --paired_in and --paired_out are mutually exclusive")
	}
	if o.SOut && (o.PairedIn || o.PairedOut) {
		return errors.New("report: --sout cannot be combined with --paired_in or --paired_out")
	}
	return nil
}

// NumAlignedFiles returns the aligned-side output file count, per
// report_fx_base.cpp's set_num_out: 4 when both Out2 and SOut are set, 2
// when exactly one is set, 1 otherwise.
func NumAlignedFiles(o FastxOptions) int {
	switch {
	case o.Out2 && o.SOut:
		return 4
	case o.Out2 || o.SOut:
		return 2
	default:
		return 1
	}
}

// noBucket marks a read that this reporter does not write.
const noBucket = -1

// AlignedBucket returns the aligned-side output file index for one mate of
// a pair (sense 0 = fwd, 1 = rev), given both mates' hit flags, or
// noBucket if this mate is not written to the aligned set. It mirrors
// ReportFastx::append's branch structure in report_fastx.cpp.
func AlignedBucket(o FastxOptions, hit [2]bool, sense int) int {
	if !o.Paired {
		if hit[0] {
			return 0
		}
		return noBucket
	}
	switch NumAlignedFiles(o) {
	case 1:
		if o.PairedOut {
			if hit[0] && hit[1] {
				return 0
			}
			return noBucket
		}
		if (o.PairedIn && (hit[0] || hit[1])) || hit[sense] {
			return 0
		}
		return noBucket
	case 2:
		if o.Out2 {
			if o.PairedOut {
				if hit[0] && hit[1] {
					return sense
				}
				return noBucket
			}
			if (o.PairedIn && (hit[0] || hit[1])) || hit[sense] {
				return sense
			}
			return noBucket
		}
		// sout
		if hit[0] && hit[1] {
			return 0
		}
		if hit[sense] {
			return 1
		}
		return noBucket
	case 4:
		if hit[0] && hit[1] {
			return sense
		}
		if hit[sense] {
			return sense + 2
		}
		return noBucket
	}
	return noBucket
}

// OtherBucket is AlignedBucket's dual for the non-aligned output: it
// returns the bucket index for a mate that belongs in the "other" file(s),
// mirroring ReportFxOther::append in report_fx_other.cpp (same file-count
// scheme, hit flags inverted).
func OtherBucket(o FastxOptions, hit [2]bool, sense int) int {
	if !o.Other {
		return noBucket
	}
	if !o.Paired {
		if !hit[0] {
			return 0
		}
		return noBucket
	}
	if hit[0] && hit[1] {
		return noBucket
	}
	switch NumAlignedFiles(o) {
	case 1:
		if o.PairedIn {
			if hit[0] || hit[1] {
				return noBucket
			}
			return 0
		}
		if o.PairedOut || !hit[sense] {
			return 0
		}
		return noBucket
	case 2:
		if o.Out2 {
			if o.PairedIn {
				if hit[0] || hit[1] {
					return noBucket
				}
				return sense
			}
			if o.PairedOut || !hit[sense] {
				return sense
			}
			return noBucket
		}
		if !hit[0] && !hit[1] {
			return 0
		}
		if !hit[sense] {
			return 1
		}
		return noBucket
	case 4:
		if !hit[0] && !hit[1] {
			return sense
		}
		if !hit[sense] {
			return sense + 2
		}
		return noBucket
	}
	return noBucket
}

// FormatRecord renders rd in its originating FASTA/FASTQ framing.
func FormatRecord(rd *read.Read) string {
	if rd.Format == read.FASTQ {
		return "@" + rd.Header + "\n" + rd.Sequence + "\n+\n" + rd.Quality + "\n"
	}
	return ">" + rd.Header + "\n" + rd.Sequence + "\n"
}
