package orchestrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotools/rnafilter/report"
	"github.com/biotools/rnafilter/stats"
)

func TestRunReportWritesBlastAndSummary(t *testing.T) {
	db := buildTestDatabase(t, 0)
	descriptor := splitTestReads(t, []string{"ACGTACGTACGTACGTAC"}, 1)

	store := openTestStore(t)
	rs := stats.New(1)

	alignOpts := AlignOptions{
		Databases:     []*Database{db},
		Descriptor:    descriptor,
		Store:         store,
		Stats:         rs,
		SeedHits:      2,
		MinLis:        2,
		NumBestHits:   1,
		NumAlignments: -1,
		Match:         2,
		Mismatch:      -3,
		GapOpen:       5,
		GapExt:        2,
		MinID:         0.9,
		MinCov:        0.9,
	}
	require.NoError(t, RunAlign(alignOpts))

	postprocResult, err := RunPostproc(PostprocOptions{Store: store, Stats: rs, DeNovoEnabled: true, OtuMapEnabled: true})
	require.NoError(t, err)

	outDir := t.TempDir()
	reportOpts := ReportOptions{
		Descriptor: descriptor,
		Store:      store,
		Databases:  []*Database{db},
		Stats:      rs,
		Postproc:   postprocResult,

		OutDir:       outDir,
		ReportPrefix: "out_",

		Blast:     true,
		BlastOpts: report.BlastOptions{Format1: true},

		OtuMap: true,

		Summary:     true,
		CommandLine: "rnafilter -ref ref.fasta,idx -reads reads.fasta",
		Timestamp:   "2026-08-01T00:00:00Z",
	}
	require.NoError(t, RunReport(reportOpts))

	blastBytes, err := os.ReadFile(filepath.Join(outDir, "out_blast"))
	require.NoError(t, err)
	require.NotEmpty(t, blastBytes)

	otuBytes, err := os.ReadFile(filepath.Join(outDir, "out_otu_map"))
	require.NoError(t, err)
	require.NotEmpty(t, otuBytes)

	logBytes, err := os.ReadFile(filepath.Join(outDir, "out_log"))
	require.NoError(t, err)
	require.Contains(t, string(logBytes), "rnafilter -ref")
}

func TestRunReportFastxSplitsAlignedFromOther(t *testing.T) {
	db := buildTestDatabase(t, 0)
	descriptor := splitTestReads(t, []string{"ACGTACGTACGTACGTAC", "GGGGGGGGGGGGGGGGGG"}, 1)

	store := openTestStore(t)
	rs := stats.New(1)

	alignOpts := AlignOptions{
		Databases:   []*Database{db},
		Descriptor:  descriptor,
		Store:       store,
		Stats:       rs,
		SeedHits:    2,
		MinLis:      2,
		NumBestHits: 1,
		Match:       2,
		Mismatch:    -3,
		GapOpen:     5,
		GapExt:      2,
		MinID:       0.9,
		MinCov:      0.9,
	}
	require.NoError(t, RunAlign(alignOpts))

	outDir := t.TempDir()
	reportOpts := ReportOptions{
		Descriptor: descriptor,
		Store:      store,
		Databases:  []*Database{db},
		Stats:      rs,
		OutDir:     outDir,

		Fastx:     true,
		FastxOpts: report.FastxOptions{Other: true},
	}
	require.NoError(t, RunReport(reportOpts))

	alignedBytes, err := os.ReadFile(filepath.Join(outDir, "aligned_.fasta"))
	require.NoError(t, err)
	require.Contains(t, string(alignedBytes), "ACGTACGTACGTACGTAC")

	otherBytes, err := os.ReadFile(filepath.Join(outDir, "other_.fasta"))
	require.NoError(t, err)
	require.Contains(t, string(otherBytes), "GGGGGGGGGGGGGGGGGG")
}
