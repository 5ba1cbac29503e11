// Package stats implements C10 Readstats: the global counters shared by
// every aligner thread (spec.md section 3, section 5, section 9).
package stats

import "sync/atomic"

// Readstats holds the run-wide counters. All fields are accessed through
// atomic operations except NumAligned's increment, which is additionally
// guarded by the per-read IsHit transition (spec.md section 9: "num_aligned
// ... incremented exactly once per read").
type Readstats struct {
	NReads   uint64
	numAligned      uint64
	numDenovo       uint64
	nYidYcov        uint64
	minReadLen      uint64
	maxReadLen      uint64
	totalReadLen    uint64
	matchedPerDB    []int64 // per reference database (index_num)
}

// New allocates a Readstats sized for numDBs reference databases.
func New(numDBs int) *Readstats {
	return &Readstats{matchedPerDB: make([]int64, numDBs)}
}

// IncAligned bumps the aligned-read counter. Callers must only invoke this
// on a read's first successful alignment (the IsHit false->true edge), per
// spec.md section 4.4 step 8.
func (r *Readstats) IncAligned() { atomic.AddUint64(&r.numAligned, 1) }

// NumAligned returns the current aligned-read count.
func (r *Readstats) NumAligned() uint64 { return atomic.LoadUint64(&r.numAligned) }

// IncDenovo bumps the de-novo counter.
func (r *Readstats) IncDenovo() { atomic.AddUint64(&r.numDenovo, 1) }

// NumDenovo returns the current de-novo count.
func (r *Readstats) NumDenovo() uint64 { return atomic.LoadUint64(&r.numDenovo) }

// IncYidYcov bumps the reads-passing-id-and-coverage counter
// (readstats.n_yid_ycov in spec.md section 4.4).
func (r *Readstats) IncYidYcov() { atomic.AddUint64(&r.nYidYcov, 1) }

// NYidYcov returns the current count of reads passing identity+coverage.
func (r *Readstats) NYidYcov() uint64 { return atomic.LoadUint64(&r.nYidYcov) }

// IncMatchedPerDB bumps reads_matched_per_db[idx].
func (r *Readstats) IncMatchedPerDB(idx int) {
	if idx < 0 || idx >= len(r.matchedPerDB) {
		return
	}
	atomic.AddInt64(&r.matchedPerDB[idx], 1)
}

// DecMatchedPerDB decrements reads_matched_per_db[idx], used when a
// best-hits slot is displaced (spec.md section 4.4).
func (r *Readstats) DecMatchedPerDB(idx int) {
	if idx < 0 || idx >= len(r.matchedPerDB) {
		return
	}
	atomic.AddInt64(&r.matchedPerDB[idx], -1)
}

// MatchedPerDB returns the current per-database matched-read count.
func (r *Readstats) MatchedPerDB(idx int) int64 {
	if idx < 0 || idx >= len(r.matchedPerDB) {
		return 0
	}
	return atomic.LoadInt64(&r.matchedPerDB[idx])
}

// ObserveLength folds a read's length into the min/max/total extrema
// counters, per spec.md section 4.7's counting pre-pass and section 3's
// "length extrema" field.
func (r *Readstats) ObserveLength(n uint64) {
	atomic.AddUint64(&r.NReads, 1)
	atomic.AddUint64(&r.totalReadLen, n)
	for {
		cur := atomic.LoadUint64(&r.minReadLen)
		if cur != 0 && cur <= n {
			break
		}
		if atomic.CompareAndSwapUint64(&r.minReadLen, cur, n) {
			break
		}
	}
	for {
		cur := atomic.LoadUint64(&r.maxReadLen)
		if cur >= n {
			break
		}
		if atomic.CompareAndSwapUint64(&r.maxReadLen, cur, n) {
			break
		}
	}
}

// MinReadLen, MaxReadLen, TotalReadLen return the observed length extrema.
func (r *Readstats) MinReadLen() uint64   { return atomic.LoadUint64(&r.minReadLen) }
func (r *Readstats) MaxReadLen() uint64   { return atomic.LoadUint64(&r.maxReadLen) }
func (r *Readstats) TotalReadLen() uint64 { return atomic.LoadUint64(&r.totalReadLen) }
