package align

import (
	"math"

	"github.com/biotools/rnafilter/read"
)

// CigarStats is the (mismatches, gaps, matches) triple of spec.md section
// 4.6.
type CigarStats struct {
	Matches    int
	Mismatches int
	Gaps       int
}

// WalkCigar computes CigarStats by replaying cigar over the given reference
// and read slices, starting at the respective begin offsets already
// supplied (refSlice/readSlice must start exactly at ref_begin1/read_begin1).
// It implements spec.md section 4.6's per-op loop.
func WalkCigar(cigar []uint32, refSlice, readSlice []byte) CigarStats {
	var st CigarStats
	ri, qi := 0, 0
	for _, c := range cigar {
		op, length := read.UnpackCigar(c)
		switch op {
		case read.CigarMatch:
			for i := 0; i < int(length); i++ {
				if ri+i < len(refSlice) && qi+i < len(readSlice) && refSlice[ri+i] == readSlice[qi+i] {
					st.Matches++
				} else {
					st.Mismatches++
				}
			}
			ri += int(length)
			qi += int(length)
		case read.CigarIns:
			st.Gaps += int(length)
			qi += int(length)
		case read.CigarDel:
			st.Gaps += int(length)
			ri += int(length)
		}
	}
	return st
}

// Identity returns matches / (matches + mismatches + gaps), per spec.md
// section 4.6.
func (s CigarStats) Identity() float64 {
	denom := s.Matches + s.Mismatches + s.Gaps
	if denom == 0 {
		return 0
	}
	return float64(s.Matches) / float64(denom)
}

// Coverage returns (read_end - read_begin + 1) / readlen, spec.md section
// 4.6.
func Coverage(readBegin, readEnd int32, readlen uint32) float64 {
	if readlen == 0 {
		return 0
	}
	span := readEnd - readBegin + 1
	if span < 0 {
		span = -span
	}
	return float64(span) / float64(readlen)
}

// RoundHalfUp3 rounds x to 3 decimal places using round-half-up, per
// spec.md section 4.4's identity/coverage rounding rule.
func RoundHalfUp3(x float64) float64 {
	return math.Floor(x*1000+0.5) / 1000
}

// CigarStatsFromAlign reconstructs CigarStats from an already-accepted
// Align without needing the reference bytes again: matches-run length and
// gaps are derivable from the cigar's op lengths alone (read.CigarMatch
// covers both matches and mismatches together), so only Mismatches must
// have been carried on the Align itself (see read.Align.Mismatches). Used
// by the report phase, which runs after reference shards have been
// unloaded.
func CigarStatsFromAlign(a read.Align) CigarStats {
	var matchRun, gaps int
	for _, c := range a.Cigar {
		op, length := read.UnpackCigar(c)
		switch op {
		case read.CigarMatch:
			matchRun += int(length)
		case read.CigarIns, read.CigarDel:
			gaps += int(length)
		}
	}
	mismatches := int(a.Mismatches)
	matches := matchRun - mismatches
	if matches < 0 {
		matches = 0
	}
	return CigarStats{Matches: matches, Mismatches: mismatches, Gaps: gaps}
}

// RefSpan returns ref_end1 - ref_begin1 + 1, derivable from M+D counts per
// spec.md testable property 8.
func RefSpan(cigar []uint32) int {
	span := 0
	for _, c := range cigar {
		op, length := read.UnpackCigar(c)
		if op == read.CigarMatch || op == read.CigarDel {
			span += int(length)
		}
	}
	return span
}

// ReadSpan returns read_end1 - read_begin1 + 1, derivable from M+I counts
// per spec.md testable property 8.
func ReadSpan(cigar []uint32) int {
	span := 0
	for _, c := range cigar {
		op, length := read.UnpackCigar(c)
		if op == read.CigarMatch || op == read.CigarIns {
			span += int(length)
		}
	}
	return span
}

// BitScore computes S' = (lambda*S - ln(K)) / ln(2), spec.md section 4.6.
func BitScore(score float64, lambda, k float64) float64 {
	return (lambda*score - math.Log(k)) / math.Ln2
}

// EValue computes E = K * m * n * exp(-lambda*S), spec.md section 4.6,
// where m and n are the full read and reference lengths for the database.
func EValue(score float64, lambda, k float64, m, n uint64) float64 {
	return k * float64(m) * float64(n) * math.Exp(-lambda*score)
}
