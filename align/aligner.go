package align

import (
	"sort"

	"github.com/biotools/rnafilter/postable"
	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/stats"
)

// Candidate is one seed hit produced by the read searcher: a kmer id found
// in the index at a given position on the read (spec.md section 4.3).
type Candidate struct {
	ID  uint32
	Pos int
}

// Reference gives the aligner read-only access to one shard's reference
// sequences: their lengths and 0-4 numeric-encoded bytes, so the SW step
// can slice out the windowed region of spec.md section 4.4 step 6.
type Reference interface {
	Len(seq uint32) int
	Slice(seq uint32, start, length int) []byte
}

// Params bundles the alignment-control options of spec.md section 6 that
// compute_lis_alignment consults.
type Params struct {
	SeedHits      int // default 2
	MinLis        int // -min_lis; <0 disables the decrement rule
	NumBestHits   int // -best; 0 = unbounded
	NumAlignments int // -num_alignments; <0 = policy disabled
	Edges         int
	EdgesPercent  bool
	MinID         float64
	MinCov        float64
	Match         int8
	Mismatch      int8
	GapOpen       int
	GapExt        int
	MinimalScore  int // minimal_score[idx_num]
	IndexNum      uint16
	Part          uint16
	FullReadLen   uint64 // full_read[idx_num], for E-value
	FullRefLen    uint64 // full_ref[idx_num]
	Lambda        float64
	K             float64

	// SeedK is the index's full kmer window length (L+1), used by the
	// sliding-window deque bound of spec.md section 4.4 step 5.
	SeedK int
}

// readerState tracks the mutable counters compute_lis_alignment threads
// through a single read's processing, mirroring the C++ Read fields of
// spec.md section 4.4 (read.best, num_alignments_remaining).
type readerState struct {
	best                    int
	numAlignmentsRemaining  int
}

// ComputeLISAlignment executes spec.md section 4.4 for one (shard, read,
// strand) combination: it requires at least SeedHits candidates, builds the
// reference-frequency map, and for each candidate reference in sorted
// order runs the sliding-window LIS filter and Smith-Waterman, storing
// accepted alignments on r per the best-hits or first-N policy. strand is
// true for forward orientation.
func ComputeLISAlignment(
	r *read.Read,
	candidates []Candidate,
	pos *postable.Table,
	ref Reference,
	p Params,
	strand bool,
	rs *stats.Readstats,
) {
	if len(candidates) < p.SeedHits {
		return
	}

	freq := buildRefFrequencyMap(candidates, pos, p.SeedHits)
	if len(freq) == 0 {
		return
	}

	st := &readerState{best: p.MinLis, numAlignmentsRemaining: p.NumAlignments - len(r.Alignv)}

	for k, cand := range freq {
		if p.NumBestHits != 0 && r.MaxSWScore == p.NumBestHits {
			break
		}
		if cand.count < p.SeedHits {
			break
		}
		if p.MinLis > 0 && k > 0 && cand.count < freq[k-1].count {
			st.best--
			if st.best < 1 {
				break
			}
		}
		if p.NumAlignments > 0 && st.numAlignmentsRemaining <= 0 {
			break
		}

		hits := collectHitsOnGenome(candidates, pos, cand.refSeq)
		SortHitsByRefPos(hits)

		before := len(r.Alignv)
		alignCandidateReference(r, hits, cand.refSeq, ref, p, strand, rs)
		st.numAlignmentsRemaining -= len(r.Alignv) - before
	}
}

type refCount struct {
	refSeq uint32
	count  int
}

// buildRefFrequencyMap implements spec.md section 4.4 step 2: tally, per
// reference sequence, how many candidate (id, pos) entries expand into a
// position on that reference; drop entries below seedHits; sort by
// descending count, ties broken by ascending ref_seq.
func buildRefFrequencyMap(candidates []Candidate, pos *postable.Table, seedHits int) []refCount {
	counts := map[uint32]int{}
	for _, c := range candidates {
		for _, occ := range pos.Get(c.ID) {
			counts[occ.Seq]++
		}
	}
	var out []refCount
	for seq, n := range counts {
		if n >= seedHits {
			out = append(out, refCount{refSeq: seq, count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].refSeq < out[j].refSeq
	})
	return out
}

// collectHitsOnGenome implements spec.md section 4.4 step 4: for every
// candidate hit whose position-table entry names refSeq, emit (ref_pos,
// read_pos).
func collectHitsOnGenome(candidates []Candidate, pos *postable.Table, refSeq uint32) []Hit {
	var hits []Hit
	for _, c := range candidates {
		for _, occ := range pos.Get(c.ID) {
			if occ.Seq == refSeq {
				hits = append(hits, Hit{RefPos: int(occ.Pos), ReadPos: c.Pos})
			}
		}
	}
	return hits
}

// windowEnd implements spec.md section 4.4 step 5's sliding window: scanning
// the sorted hits from index 0, it returns the exclusive end index hi of the
// hits whose RefPos is at most begin+readlen-l+1.
func windowEnd(hits []Hit, begin, readlen, l int) int {
	limit := begin + readlen - l + 1
	hi := 0
	for hi < len(hits) && hits[hi].RefPos <= limit {
		hi++
	}
	return hi
}

// alignCandidateReference implements spec.md section 4.4 steps 5-9 for one
// candidate reference: the sliding deque over sorted hits, LIS extraction,
// SW window computation, SW invocation, and alignment acceptance/storage.
// It reports whether at least one alignment was accepted against this
// candidate. After a window yields an alignment the scan resumes past that
// window (Heuristic-1) instead of trying its sub-LIS variants; it stops once
// a positive -num_alignments count is reached.
func alignCandidateReference(
	r *read.Read,
	hits []Hit,
	refSeq uint32,
	ref Reference,
	p Params,
	strand bool,
	rs *stats.Readstats,
) bool {
	readlen := len(r.Isequence)
	seedK := p.SeedK
	if seedK == 0 {
		seedK = 19
	}
	lo := 0
	accepted := false
	for lo < len(hits) {
		if p.NumAlignments > 0 && len(r.Alignv) >= p.NumAlignments {
			break
		}
		hi := windowEnd(hits, hits[lo].RefPos, readlen, seedK)
		window := hits[lo:hi]
		if len(window) < p.SeedHits {
			lo++
			continue
		}
		idx := LIS(window)
		if len(idx) < p.SeedHits {
			lo++
			continue
		}
		lcs := window[idx[0]]
		ok := runSWAndAccept(r, lcs, refSeq, ref, p, strand, readlen, rs)
		if ok {
			accepted = true
			// Heuristic-1: one window already produced an alignment; advance
			// rather than enumerating every sub-LIS variant.
			lo = hi
			continue
		}
		lo++
	}
	return accepted
}

// computeSWWindow implements spec.md section 4.4 step 6.
func computeSWWindow(lcsRefStart, lcsQueStart, reflen, readlen, edges int) (alignRefStart, alignQueStart, alignLength, head int) {
	if lcsRefStart < lcsQueStart {
		alignRefStart = 0
		alignQueStart = lcsQueStart - lcsRefStart
		head = 0
		if reflen < readlen {
			alignLength = reflen
		} else {
			tail := edges
			if maxTail := reflen - alignRefStart - readlen; tail > maxTail {
				tail = maxTail
			}
			if tail < 0 {
				tail = 0
			}
			alignLength = readlen + tail - alignQueStart
		}
		return
	}
	alignRefStart = lcsRefStart - lcsQueStart
	alignQueStart = 0
	head = edges
	if head > alignRefStart {
		head = alignRefStart
	}
	if reflen < alignRefStart+readlen {
		alignLength = reflen - alignRefStart + head
	} else {
		tail := edges
		if maxTail := reflen - alignRefStart - readlen; tail > maxTail {
			tail = maxTail
		}
		if tail < 0 {
			tail = 0
		}
		alignLength = readlen + head + tail
	}
	return
}

// EdgesFor resolves the -edges option (literal count or percentage of
// readlen) to an absolute base count, per spec.md section 4.4 step 6.
func EdgesFor(p Params, readlen int) int {
	if p.EdgesPercent {
		return (p.Edges * readlen) / 100
	}
	return p.Edges
}

func runSWAndAccept(r *read.Read, lcs Hit, refSeq uint32, ref Reference, p Params, strand bool, readlen int, rs *stats.Readstats) bool {
	reflen := ref.Len(refSeq)
	edges := EdgesFor(p, readlen)
	alignRefStart, alignQueStart, alignLength, head := computeSWWindow(lcs.RefPos, lcs.ReadPos, reflen, readlen, edges)
	sliceStart := alignRefStart - head
	if alignLength <= 0 || sliceStart < 0 || sliceStart >= reflen {
		return false
	}
	if sliceStart+alignLength > reflen {
		alignLength = reflen - sliceStart
	}
	refSlice := ref.Slice(refSeq, sliceStart, alignLength)

	matrix := read.NewScoringMatrix(p.Match, p.Mismatch, p.Mismatch)
	res := SmithWaterman(r.Isequence[alignQueStart:], refSlice, matrix, p.GapOpen, p.GapExt)
	if res.Score <= p.MinimalScore {
		return false
	}

	a := read.Align{
		RefNum:     refSeq,
		IndexNum:   p.IndexNum,
		Part:       p.Part,
		Strand:     strand,
		RefBegin1:  int32(res.RefBegin + alignRefStart - head),
		RefEnd1:    int32(res.RefEnd + alignRefStart - head),
		ReadBegin1: int32(res.ReadBegin + alignQueStart),
		ReadEnd1:   int32(res.ReadEnd + alignQueStart),
		Score1:     uint16(res.Score),
		Cigar:      res.Cigar,
		ReadLen:    uint32(readlen),
	}

	firstHit := !r.IsHit
	if firstHit {
		r.IsHit = true
		rs.IncAligned()
		rs.IncMatchedPerDB(int(p.IndexNum))
	}

	walkRef := refSlice[res.RefBegin:]
	walkRead := r.Isequence[alignQueStart+res.ReadBegin:]
	cigarStats := WalkCigar(res.Cigar, walkRef, walkRead)
	a.Mismatches = uint32(cigarStats.Mismatches)
	AcceptIDCov(r, a, cigarStats, p, rs)

	storeAlignment(r, a, p, rs)

	maxSWScore := int(p.Match) * readlen
	if res.Score == maxSWScore {
		r.MaxSWScore++
	}
	return true
}

// storeAlignment implements spec.md section 4.4's two mutually-exclusive
// storage policies: first-N takes priority when -num_alignments is set, the
// same way the original only runs one branch of its own if/else here.
func storeAlignment(r *read.Read, a read.Align, p Params, rs *stats.Readstats) {
	if p.NumAlignments >= 0 {
		storeFirstN(r, a, p, rs)
		return
	}
	if p.MinLis >= 0 {
		storeBestHits(r, a, p, rs)
	}
}

func storeBestHits(r *read.Read, a read.Align, p Params, rs *stats.Readstats) {
	if p.NumBestHits == 0 {
		r.Alignv = append(r.Alignv, a)
		r.UpdateMaxIndex(len(r.Alignv) - 1)
		return
	}
	if len(r.Alignv) < p.NumBestHits {
		r.Alignv = append(r.Alignv, a)
		r.UpdateMaxIndex(len(r.Alignv) - 1)
		if len(r.Alignv) == p.NumBestHits {
			r.RecomputeMinIndex()
		}
		return
	}
	if a.Score1 > r.Alignv[r.MinIndex].Score1 {
		displaced := r.Alignv[r.MinIndex]
		rs.DecMatchedPerDB(int(displaced.IndexNum))
		rs.IncMatchedPerDB(int(a.IndexNum))
		r.Alignv[r.MinIndex] = a
		r.UpdateMaxIndex(r.MinIndex)
		r.RecomputeMinIndex()
	}
}

// storeFirstN implements the "always push" half of the first-N policy of
// spec.md section 4.4; the id/cov pass/fail gate itself needs the full
// reference and read bytes (not just the Align bounds), so it is computed
// separately by AcceptIDCov once the CIGAR has been walked.
func storeFirstN(r *read.Read, a read.Align, p Params, rs *stats.Readstats) {
	r.Alignv = append(r.Alignv, a)
	r.UpdateMaxIndex(len(r.Alignv) - 1)
}

// AcceptIDCov implements the identity+coverage gate of spec.md section
// 4.4's first-N policy: given the CIGAR stats already computed against the
// full reference/read bytes, decide pass/fail, round to 3 decimals
// half-up, and count the pass: r.CYidYcov grows with every passing
// alignment, the run-wide counter only on the read's first pass.
func AcceptIDCov(r *read.Read, a read.Align, cigarStats CigarStats, p Params, rs *stats.Readstats) (id, cov float64, pass bool) {
	id = RoundHalfUp3(cigarStats.Identity())
	cov = RoundHalfUp3(Coverage(a.ReadBegin1, a.ReadEnd1, a.ReadLen))
	pass = id >= p.MinID && cov >= p.MinCov
	if pass {
		r.CYidYcov++
		if !r.IsIDCov {
			r.IsIDCov = true
			rs.IncYidYcov()
		}
	}
	return
}
