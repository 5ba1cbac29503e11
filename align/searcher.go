package align

import (
	"github.com/biotools/rnafilter/refindex"
	"github.com/biotools/rnafilter/trie"
)

// SearchParams configures the per-(read, shard) candidate search of
// spec.md section 4.3.
type SearchParams struct {
	// SkipLengths holds the up-to-three window steps tried in order
	// (typically {L, L/2, 3}) until SeedHits candidates are collected.
	SkipLengths [3]int
	SeedHits    int
	// SearchReverse enables probing the reverse-complement orientation
	// against trie_rev (-R).
	SearchReverse bool
	// FullSearch disables the early-exit heuristic that stops a pass as
	// soon as SeedHits candidates have been seen.
	FullSearch bool
}

// Search produces the candidate (kmer_id, window_pos) hit list for one
// read's numeric sequence against one loaded shard, per spec.md section
// 4.3. isequence must be in the 5-letter encoding (N=4, is_03 false); the
// caller has not yet called flip34.
func Search(isequence []byte, shard *refindex.Shard, sp SearchParams) []Candidate {
	var candidates []Candidate
	for _, step := range sp.SkipLengths {
		if step <= 0 {
			continue
		}
		scanPass(isequence, shard, step, sp, &candidates)
		if len(candidates) >= sp.SeedHits {
			break
		}
	}
	return candidates
}

func scanPass(isequence []byte, shard *refindex.Shard, step int, sp SearchParams, candidates *[]Candidate) {
	p := shard.Params
	for i := 0; i+p.K <= len(isequence); i += step {
		window := isequence[i : i+p.K]
		if !allDefiniteNumeric(window) {
			continue
		}
		kf := packNumeric32(window[:p.P])
		if id, ok := trie.Lookup(&shard.Lookup.Slots[kf].TrieFwd, packNumeric64(window[p.P:]), p.K-p.P); ok {
			*candidates = append(*candidates, Candidate{ID: id, Pos: i})
		}
		if sp.SearchReverse {
			rev := revCompNumeric(window)
			kr := packNumeric32(rev[:p.P])
			if id, ok := trie.Lookup(&shard.Lookup.Slots[kr].TrieRev, packNumeric64(rev[p.P:]), p.K-p.P); ok {
				*candidates = append(*candidates, Candidate{ID: id, Pos: i})
			}
		}
		if !sp.FullSearch && len(*candidates) >= sp.SeedHits {
			return
		}
	}
}

func allDefiniteNumeric(window []byte) bool {
	for _, b := range window {
		if b > 3 {
			return false
		}
	}
	return true
}

func packNumeric32(vals []byte) uint32 {
	var v uint32
	for _, b := range vals {
		v = v<<2 | uint32(b)
	}
	return v
}

func packNumeric64(vals []byte) uint64 {
	var v uint64
	for _, b := range vals {
		v = v<<2 | uint64(b)
	}
	return v
}

func revCompNumeric(vals []byte) []byte {
	out := make([]byte, len(vals))
	n := len(vals)
	for i, b := range vals {
		out[n-1-i] = 3 - b
	}
	return out
}
