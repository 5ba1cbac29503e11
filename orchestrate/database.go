package orchestrate

import (
	"os"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/align"
	"github.com/biotools/rnafilter/refindex"
)

// Database bundles one `-ref <fasta,idx>` pair's loaded statistics with the
// alignment-control parameters derived from it, per spec.md section 6: each
// tuple is searched in sequence, in the order given on the command line.
type Database struct {
	Name        string // reference fasta path, for report's DBNames
	FastaPath   string
	IndexPrefix string
	IndexNum    uint16

	Refstats *refindex.Refstats

	// MinimalScore is minimal_score[idx_num]: the smallest SW score whose
	// E-value does not exceed EValueThreshold, per spec.md section 4.4
	// step 7 and section 4.9's summary field.
	MinimalScore int
}

// LoadDatabase opens name's Refstats and derives MinimalScore for the
// given target E-value, per spec.md section 4.1's loader contract feeding
// section 4.4's acceptance threshold.
func LoadDatabase(fastaPath, indexPrefix string, indexNum uint16, statsPath string, evalueThreshold float64) (*Database, error) {
	f, err := os.Open(statsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "orchestrate: open refstats for %s", fastaPath)
	}
	defer f.Close()
	rs, err := refindex.ReadStats(f)
	if err != nil {
		return nil, errors.Wrapf(err, "orchestrate: load refstats for %s", fastaPath)
	}
	score := refindex.MinimalScoreForEvalue(evalueThreshold, rs.Lambda, rs.K, rs.TotalRefLen, rs.TotalRefLen)
	return &Database{
		Name:         fastaPath,
		FastaPath:    fastaPath,
		IndexPrefix:  indexPrefix,
		IndexNum:     indexNum,
		Refstats:     rs,
		MinimalScore: score,
	}, nil
}

// alignParams builds the align.Params common to every shard/read of this
// database for one idx_part, folding in the run-wide knobs from opts.
func (db *Database) alignParams(opts AlignOptions, part int) align.Params {
	return align.Params{
		SeedHits:      opts.SeedHits,
		MinLis:        opts.MinLis,
		NumBestHits:   opts.NumBestHits,
		NumAlignments: opts.NumAlignments,
		Edges:         opts.Edges,
		EdgesPercent:  opts.EdgesPercent,
		MinID:         opts.MinID,
		MinCov:        opts.MinCov,
		Match:         opts.Match,
		Mismatch:      opts.Mismatch,
		GapOpen:       opts.GapOpen,
		GapExt:        opts.GapExt,
		MinimalScore:  db.MinimalScore,
		IndexNum:      db.IndexNum,
		Part:          uint16(part),
		FullReadLen:   opts.FullReadLen,
		FullRefLen:    db.Refstats.TotalRefLen,
		Lambda:        db.Refstats.Lambda,
		K:             db.Refstats.K,
		SeedK:         int(db.Refstats.SeedL) + 1,
	}
}
