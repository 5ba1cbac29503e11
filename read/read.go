// Package read implements C8: the in-memory Read and Align records, the
// 5x5 scoring matrix, and the flip34 phase marker of spec.md section 3 and
// section 9.
package read

// Format identifies the originating file framing.
type Format int

const (
	FASTA Format = iota
	FASTQ
)

// N5 is the numeric code for an ambiguous base in the 5-letter indexing
// alphabet (A=0,C=1,G=2,T=3,N=4), used while is_03 is false.
const N5 = 4

// Align is one stored alignment, spec.md section 3.
type Align struct {
	RefNum    uint32
	IndexNum  uint16
	Part      uint16
	Strand    bool // true = forward
	RefBegin1 int32
	RefEnd1   int32
	ReadBegin1 int32
	ReadEnd1  int32
	Score1    uint16
	Cigar     []uint32 // low 4 bits op (0=M,1=I,2=D); high 28 bits run length
	ReadLen   uint32

	// Mismatches is the CigarMatch-run base-mismatch count computed against
	// the reference at accept time. Matches and gaps are derivable from
	// Cigar alone (RefSpan/ReadSpan); mismatches are not, since a single
	// CigarMatch run covers both matching and mismatching bases. Carrying
	// it here lets the report phase render BLAST/identity columns without
	// re-loading the reference shard once alignment has finished.
	Mismatches uint32
}

// CigarOp identifies an alignment operation.
type CigarOp uint32

const (
	CigarMatch CigarOp = 0
	CigarIns   CigarOp = 1
	CigarDel   CigarOp = 2
)

// PackCigar packs an (op, length) pair the way spec.md section 3 mandates:
// low 4 bits op, high 28 bits run length.
func PackCigar(op CigarOp, length uint32) uint32 {
	return uint32(op) | (length << 4)
}

// UnpackCigar extracts the op and run length of a packed cigar element.
func UnpackCigar(c uint32) (CigarOp, uint32) {
	return CigarOp(c & 0xf), c >> 4
}

// Read is the in-memory record of spec.md section 3 (C8).
type Read struct {
	ID           uint64
	ReadNum      uint32
	ReadfileIdx  uint8 // 0 = forward, 1 = reverse

	Header   string
	Sequence string
	Quality  string
	Format   Format

	Isequence []byte // numeric-encoded copy, 5-letter alphabet while Is03==false
	Is03      bool   // true once flip34 has folded N (4) onto 3's slot pairing

	Alignv    []Align
	MaxIndex  int
	MinIndex  int

	IsHit     bool
	IsDenovo  bool
	IsIDCov   bool
	CYidYcov  int

	MaxSWScore int // counter, bumped each time an alignment hits match*readlen

	ScoringMatrix [5][5]int8
}

// NewScoringMatrix builds the 5x5 row-major matrix of spec.md section 3:
// match/mismatch on the ACGT block, with the N row and column set to
// scoreN (defaulting to the mismatch score).
func NewScoringMatrix(match, mismatch, scoreN int8) [5][5]int8 {
	var m [5][5]int8
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			switch {
			case i == 4 || j == 4:
				m[i][j] = scoreN
			case i == j:
				m[i][j] = match
			default:
				m[i][j] = mismatch
			}
		}
	}
	return m
}

// Flip34 swaps the encodings of N (4) and T (3) in Isequence, toggling
// Is03, which records which form the buffer currently holds. In the
// five-symbol form (Is03==false) N is 4; Smith-Waterman and the scoring
// matrix of NewScoringMatrix use that form.
func (r *Read) Flip34() {
	for i, b := range r.Isequence {
		switch b {
		case 3:
			r.Isequence[i] = 4
		case 4:
			r.Isequence[i] = 3
		}
	}
	r.Is03 = !r.Is03
}

// RecomputeMinIndex scans Alignv for the lowest-scoring entry and updates
// MinIndex, used by the best-hits storage policy of spec.md section 4.4.
func (r *Read) RecomputeMinIndex() {
	if len(r.Alignv) == 0 {
		r.MinIndex = -1
		return
	}
	min := 0
	for i, a := range r.Alignv {
		if a.Score1 < r.Alignv[min].Score1 {
			min = i
		}
	}
	r.MinIndex = min
}

// UpdateMaxIndex records i as MaxIndex if it is the first occurrence of the
// highest score seen so far.
func (r *Read) UpdateMaxIndex(i int) {
	if len(r.Alignv) == 0 {
		r.MaxIndex = i
		return
	}
	if r.Alignv[i].Score1 > r.Alignv[r.MaxIndex].Score1 {
		r.MaxIndex = i
	}
}
