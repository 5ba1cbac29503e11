package report

import (
	"fmt"
	"io"

	"github.com/biotools/rnafilter/refindex"
	"github.com/biotools/rnafilter/stats"
)

// SummaryInfo bundles the values summary.cpp's Summary::to_string renders,
// in the same field order: command line, per-database parameters, read
// files, totals, then coverage-by-database.
type SummaryInfo struct {
	CommandLine string
	Pid         int

	ReadFiles []string

	// DBNames/DBRefstats are parallel slices, one entry per reference
	// database, in the order they were given on the command line.
	DBNames    []string
	DBRefstats []*refindex.Refstats

	IsDenovo   bool
	IsOTUMap   bool
	IsSQ       bool
	NumProc    int
	NumSeeds   int
	Edges      int
	Match      int8
	Mismatch   int8
	GapOpen    int
	GapExt     int
	ScoreN     int8

	TotalOTUs int

	Timestamp string
}

// WriteSummary renders the human-readable log of spec.md section 4.9's
// summary reporter, matching summary.cpp's field order.
func WriteSummary(w io.Writer, info SummaryInfo, rs *stats.Readstats) error {
	fmt.Fprintf(w, " Command:\n    %s\n\n", info.CommandLine)
	fmt.Fprintf(w, " Process pid = %d\n\n", info.Pid)
	fmt.Fprintln(w, " Parameters summary: ")

	for i, name := range info.DBNames {
		fmt.Fprintf(w, "    Reference file: %s\n", name)
		if i < len(info.DBRefstats) && info.DBRefstats[i] != nil {
			rrs := info.DBRefstats[i]
			fmt.Fprintf(w, "        Seed length = %d\n", rrs.SeedL)
			fmt.Fprintf(w, "        Gumbel lambda = %v\n", rrs.Lambda)
			fmt.Fprintf(w, "        Gumbel K = %v\n", rrs.K)
			fmt.Fprintf(w, "        Minimal SW score based on E-value = %d\n",
				MinimalScoreFor(rrs))
		}
	}
	fmt.Fprintf(w, "    Number of seeds = %d\n", info.NumSeeds)
	fmt.Fprintf(w, "    Edges = %d\n", info.Edges)
	fmt.Fprintf(w, "    SW match = %d\n", info.Match)
	fmt.Fprintf(w, "    SW mismatch = %d\n", info.Mismatch)
	fmt.Fprintf(w, "    SW gap open penalty = %d\n", info.GapOpen)
	fmt.Fprintf(w, "    SW gap extend penalty = %d\n", info.GapExt)
	fmt.Fprintf(w, "    SW ambiguous nucleotide = %d\n", info.ScoreN)
	sq := "not "
	if info.IsSQ {
		sq = ""
	}
	fmt.Fprintf(w, "    SQ tags are %soutput\n", sq)
	fmt.Fprintf(w, "    Number of alignment processing threads = %d\n", info.NumProc)
	for _, rf := range info.ReadFiles {
		fmt.Fprintf(w, "    Reads file: %s\n", rf)
	}
	totalReads := rs.NReads
	fmt.Fprintf(w, "    Total reads = %d\n\n", totalReads)

	fmt.Fprintln(w, " Results:")
	if info.IsDenovo {
		fmt.Fprintf(w, "    Total reads for de novo clustering = %d\n", rs.NumDenovo())
	}
	totalMapped := rs.NumAligned()
	var evPassRatio float64
	if totalReads > 0 {
		evPassRatio = float64(totalMapped) / float64(totalReads)
	}
	fmt.Fprintf(w, "    Total reads passing E-value threshold = %d (%.2f)\n", totalMapped, evPassRatio*100)
	fmt.Fprintf(w, "    Total reads failing E-value threshold = %d (%.2f)\n", totalReads-totalMapped, (1-evPassRatio)*100)

	if info.IsOTUMap {
		totalIDCov := rs.NYidYcov()
		var idCovRatio float64
		if totalReads > 0 {
			idCovRatio = float64(totalIDCov) / float64(totalReads)
		}
		fmt.Fprintf(w, "    Total reads passing %%id and %%coverage thresholds = %d (%.2f)\n", totalIDCov, idCovRatio*100)
		fmt.Fprintf(w, "    Total OTUs = %d\n", info.TotalOTUs)
	}

	minLen, maxLen, total := rs.MinReadLen(), rs.MaxReadLen(), rs.TotalReadLen()
	var mean uint64
	if totalReads > 0 {
		mean = total / totalReads
	}
	fmt.Fprintf(w, "    Minimum read length = %d\n", minLen)
	fmt.Fprintf(w, "    Maximum read length = %d\n", maxLen)
	fmt.Fprintf(w, "    Mean read length    = %d\n\n", mean)

	fmt.Fprintln(w, " Coverage by database:")
	for i, name := range info.DBNames {
		fmt.Fprintf(w, "    %s\t\t%d\n", name, rs.MatchedPerDB(i))
	}

	fmt.Fprintf(w, "\n %s\n", info.Timestamp)
	return nil
}

// MinimalScoreFor recomputes the minimal E-value-driven SW score for a
// database's Refstats, for the summary's per-database parameter block.
func MinimalScoreFor(rs *refindex.Refstats) int {
	return refindex.MinimalScoreForEvalue(1e-5, rs.Lambda, rs.K, rs.TotalRefLen, rs.TotalRefLen)
}
