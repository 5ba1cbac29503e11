// Package align implements C9: the seed-and-extend aligner, its
// Longest-Increasing-Subsequence colinearity filter (section 4.5), CIGAR
// arithmetic (section 4.6), and the compute_lis_alignment pipeline
// (section 4.4) of spec.md.
package align

import "sort"

// Hit is one seed hit located on the reference genome: a (ref_pos,
// read_pos) pair, per spec.md section 4.4 step 4.
type Hit struct {
	RefPos  int
	ReadPos int
}

// LIS returns the indices, in increasing index order, of the longest
// strictly-increasing-by-ReadPos subsequence of hits. It implements the
// classic patience-sort algorithm of spec.md section 4.5: O(n log n),
// deterministic, ties broken by strict-less comparison. An empty input
// yields nil.
func LIS(hits []Hit) []int {
	n := len(hits)
	if n == 0 {
		return nil
	}
	tails := make([]int, 0, n)  // indices into hits; tails[i] = index of smallest tail of an increasing run of length i+1
	pred := make([]int, n)      // predecessor index for hits[i] in its run
	for i := range pred {
		pred[i] = -1
	}
	for i, h := range hits {
		pos := sort.Search(len(tails), func(k int) bool {
			return hits[tails[k]].ReadPos >= h.ReadPos
		})
		if pos > 0 {
			pred[i] = tails[pos-1]
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	out := make([]int, len(tails))
	cur := tails[len(tails)-1]
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = cur
		cur = pred[cur]
	}
	return out
}

// SortHitsByRefPos sorts hits ascending by RefPos, ties broken by ascending
// ReadPos, per spec.md section 4.4 step 4.
func SortHitsByRefPos(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].RefPos != hits[j].RefPos {
			return hits[i].RefPos < hits[j].RefPos
		}
		return hits[i].ReadPos < hits[j].ReadPos
	})
}
