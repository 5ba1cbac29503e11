package align

import "github.com/biotools/rnafilter/read"

// SWResult is the outcome of a Smith-Waterman call: the local alignment's
// score and 0-based inclusive bounds on each sequence, plus its CIGAR, the
// shape of the "(profile, ref_slice, gap_open, gap_extension, flag=2) ->
// (score, begin/end, cigar)" contract of spec.md section 4.4 step 7.
type SWResult struct {
	Score      int
	RefBegin   int
	RefEnd     int
	ReadBegin  int
	ReadEnd    int
	Cigar      []uint32
}

const negInf = -1 << 30

// SmithWaterman runs banded-by-construction (the caller has already
// windowed refSlice per spec.md section 4.4 step 6) affine-gap local
// alignment of readSeq against refSlice, using Gotoh's three-matrix
// recurrence. Both sequences must be in the same five-symbol numeric
// encoding (A=0, C=1, G=2, T=3, N=4) that matrix is laid out for, so matrix
// indexes them directly. gapOpen is the total cost of a length-1 gap; each additional
// base costs gapExtend.
func SmithWaterman(readSeq, refSlice []byte, matrix [5][5]int8, gapOpen, gapExtend int) SWResult {
	n := len(readSeq) // rows
	m := len(refSlice) // cols
	if n == 0 || m == 0 {
		return SWResult{}
	}

	h := make([][]int, n+1)
	e := make([][]int, n+1)
	f := make([][]int, n+1)
	// traceback: 0 = stop/diag-from-zero, 1 = diag, 2 = up (F, insertion), 3 = left (E, deletion)
	tb := make([][]byte, n+1)
	for i := range h {
		h[i] = make([]int, m+1)
		e[i] = make([]int, m+1)
		f[i] = make([]int, m+1)
		tb[i] = make([]byte, m+1)
		e[i][0] = negInf
		f[i][0] = negInf
	}
	for j := 0; j <= m; j++ {
		e[0][j] = negInf
		f[0][j] = negInf
	}

	best, bi, bj := 0, 0, 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			// E: advances j only (ref cursor) -> ref base consumed without a
			// read base: deletion (D).
			eOpen := h[i][j-1] - gapOpen
			eExt := e[i][j-1] - gapExtend
			if eOpen >= eExt {
				e[i][j] = eOpen
			} else {
				e[i][j] = eExt
			}
			// F: advances i only (read cursor) -> read base consumed without
			// a ref base: insertion (I).
			fOpen := h[i-1][j] - gapOpen
			fExt := f[i-1][j] - gapExtend
			if fOpen >= fExt {
				f[i][j] = fOpen
			} else {
				f[i][j] = fExt
			}

			sub := int(matrix[readSeq[i-1]][refSlice[j-1]])
			diag := h[i-1][j-1] + sub

			val := 0
			var dir byte = 0
			if diag > val {
				val = diag
				dir = 1
			}
			if e[i][j] > val {
				val = e[i][j]
				dir = 3
			}
			if f[i][j] > val {
				val = f[i][j]
				dir = 2
			}
			h[i][j] = val
			tb[i][j] = dir

			if val > best {
				best = val
				bi, bj = i, j
			}
		}
	}

	if best == 0 {
		return SWResult{}
	}

	var ops []uint32
	i, j := bi, bj
	appendOp := func(op read.CigarOp) {
		if len(ops) > 0 {
			lastOp, lastLen := read.UnpackCigar(ops[len(ops)-1])
			if lastOp == op {
				ops[len(ops)-1] = read.PackCigar(op, lastLen+1)
				return
			}
		}
		ops = append(ops, read.PackCigar(op, 1))
	}
	for i > 0 && j > 0 && h[i][j] > 0 {
		switch tb[i][j] {
		case 1:
			appendOp(read.CigarMatch)
			i--
			j--
		case 2:
			appendOp(read.CigarIns)
			i--
		case 3:
			appendOp(read.CigarDel)
			j--
		default:
			i, j = 0, 0
		}
	}
	// reverse ops (traceback walked backwards)
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}

	return SWResult{
		Score:     best,
		RefBegin:  j,
		RefEnd:    bj - 1,
		ReadBegin: i,
		ReadEnd:   bi - 1,
		Cigar:     ops,
	}
}
