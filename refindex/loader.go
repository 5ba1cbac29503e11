package refindex

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/lookup"
	"github.com/biotools/rnafilter/postable"
	"github.com/biotools/rnafilter/seqio"
)

// LoadShard implements the §4.2 IndexLoader contract: read one shard's
// kmer.dat into a Lookup9mer, rebuild its tries, read pos.dat into a
// PositionTable, and pull the shard's own sequences back out of the
// original reference FASTA (shard artifacts never carry raw sequence bytes;
// Refstats.Shards records how many sequences belong to each shard, in
// order, which is enough to re-slice the original scan).
func LoadShard(fastaPath, prefix string, idx int, rs *Refstats, maxPos int) (*Shard, error) {
	if idx < 0 || idx >= len(rs.Shards) {
		return nil, errors.Errorf("refindex: shard %d out of range (have %d)", idx, len(rs.Shards))
	}
	params, err := kmer.NewParams(int(rs.SeedL))
	if err != nil {
		return nil, err
	}

	lut := lookup.New(params.L)
	kf, err := os.Open(fmt.Sprintf("%s.kmer_%d.dat", prefix, idx))
	if err != nil {
		return nil, errors.Wrap(err, "refindex: open kmer artifact")
	}
	defer kf.Close()
	if err := lut.ReadCounts(kf); err != nil {
		return nil, err
	}

	tf, err := os.Open(fmt.Sprintf("%s.bursttrie_%d.dat", prefix, idx))
	if err != nil {
		return nil, errors.Wrap(err, "refindex: open bursttrie artifact")
	}
	defer tf.Close()
	if err := lut.ReadTries(tf); err != nil {
		return nil, err
	}

	pf, err := os.Open(fmt.Sprintf("%s.pos_%d.dat", prefix, idx))
	if err != nil {
		return nil, errors.Wrap(err, "refindex: open pos artifact")
	}
	defer pf.Close()
	pos, err := postable.Read(pf, maxPos)
	if err != nil {
		return nil, err
	}

	seqs, sq, err := loadShardSequences(fastaPath, rs, idx)
	if err != nil {
		return nil, err
	}

	return &Shard{Params: params, Lookup: lut, Pos: pos, Seqs: seqs, SQ: sq}, nil
}

// loadShardSequences re-scans fastaPath and returns the 5-letter-encoded
// sequences belonging to shard idx, skipping the sequences of earlier
// shards by count (shards are contiguous, non-overlapping spans of the
// scan order, per spec.md section 3's shard boundary invariant).
func loadShardSequences(fastaPath string, rs *Refstats, idx int) ([][]byte, []string, error) {
	f, err := os.Open(fastaPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "refindex: open fasta for shard load")
	}
	defer f.Close()

	r, format, _, err := seqio.Detect(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, "refindex: detect fasta format")
	}
	if format != seqio.FASTA {
		return nil, nil, errors.New("refindex: reference database must be FASTA")
	}
	sc := seqio.NewScanner(r, format)

	var skip uint32
	for i := 0; i < idx; i++ {
		skip += rs.Shards[i].SeqCount
	}
	want := rs.Shards[idx].SeqCount

	var rec seqio.Record
	var n uint32
	for n < skip && sc.Scan(&rec) {
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "refindex: skip to shard")
	}

	seqs := make([][]byte, 0, want)
	sq := make([]string, 0, want)
	var got uint32
	for got < want && sc.Scan(&rec) {
		seqs = append(seqs, kmer.Encode5(upperACGTN([]byte(rec.Sequence))))
		sq = append(sq, rec.Header)
		got++
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "refindex: read shard sequences")
	}
	if got != want {
		return nil, nil, errors.Errorf("refindex: shard %d expected %d sequences, found %d", idx, want, got)
	}
	return seqs, sq, nil
}
