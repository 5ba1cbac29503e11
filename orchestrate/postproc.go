package orchestrate

import (
	"github.com/biotools/rnafilter/kvstore"
	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/report"
	"github.com/biotools/rnafilter/stats"
)

// PostprocOptions configures the post-alignment pass of spec.md section
// 4.9/4.10, run once after every database and idx_part has finished
// aligning against every read.
type PostprocOptions struct {
	Store *kvstore.DB
	Stats *stats.Readstats

	DeNovoEnabled bool
	OtuMapEnabled bool
}

// PostprocResult carries what the report phase consumes from post-process:
// the completed OTU map, or nil when -otu_map was not requested.
type PostprocResult struct {
	OtuMap *report.OtuMap
}

type pendingWrite struct {
	id uint64
	r  *read.Read
}

// RunPostproc walks every read accumulated in the KVDB exactly once,
// classifying de-novo candidates and grouping reads into the OTU map. A
// read is de-novo when de-novo clustering is enabled and it never passed
// the identity+coverage gate against any database (original_source's
// alignment.cpp/summary.cpp default hit_denovo true and clear it on a
// passing id+cov alignment; IsIDCov already records exactly that "passed
// at least once" condition, so the classification needs no extra state).
//
// Reads whose IsDenovo flag changes are written back to the KVDB after the
// walk completes, not during it: kvstore.DB.ForEach holds its store lock
// for the whole walk, and DB.Put takes the same (non-reentrant) lock, so
// calling Put from inside the ForEach callback would deadlock.
func RunPostproc(o PostprocOptions) (*PostprocResult, error) {
	otu := report.NewOtuMap()
	var toWrite []pendingWrite

	err := o.Store.ForEach(func(id uint64, r *read.Read) error {
		if o.DeNovoEnabled {
			denovo := !r.IsIDCov
			if denovo {
				o.Stats.IncDenovo()
			}
			if denovo != r.IsDenovo {
				r.IsDenovo = denovo
				toWrite = append(toWrite, pendingWrite{id, r})
			}
		}
		if o.OtuMapEnabled {
			otu.Add(id, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range toWrite {
		if err := o.Store.Put(p.id, p.r); err != nil {
			return nil, err
		}
	}

	result := &PostprocResult{}
	if o.OtuMapEnabled {
		result.OtuMap = otu
	}
	return result, nil
}
