package refindex

import (
	"fmt"
	"io"
	"os"

	"github.com/opencoff/go-mph"
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/lookup"
	"github.com/biotools/rnafilter/postable"
	"github.com/biotools/rnafilter/seqio"
	"github.com/biotools/rnafilter/trie"
)

// BuildParams configures IndexBuilder (spec.md section 4.1): the seed window
// L, the scan step interval, the per-kmer position cap, and the per-shard
// memory budget in megabytes.
type BuildParams struct {
	L        int
	Interval int
	MaxPos   int
	ShardMB  float64
	MPHLoad  float64 // go-mph CHD load factor, (0,1]; 0 defaults to 0.85
}

// shardMemEstimate is the reference implementation's per-sequence memory
// cost used by the shard-boundary accumulator, in MB per (len-K+1) windows.
const shardMemEstimate = 9.5e-6

// ErrSequenceTooShort is returned when a reference sequence is shorter than
// K, per spec.md section 4.1's failure list.
var ErrSequenceTooShort = errors.New("refindex: sequence shorter than K")

// ErrSequenceExceedsBudget is returned when a single sequence alone exceeds
// the shard memory budget M.
var ErrSequenceExceedsBudget = errors.New("refindex: single sequence exceeds shard memory budget")

type rawSeq struct {
	header string
	seq    []byte // raw ASCII, uppercased
}

// Build produces the three per-shard artifacts and the one .stats file for
// fastaPath under prefix,
// per spec.md section 4.1. It is idempotent: if every expected artifact for
// every shard the .stats file already describes exists and is non-empty,
// Build returns immediately without rescanning.
func Build(fastaPath, prefix string, bp BuildParams) error {
	if bp.MPHLoad <= 0 || bp.MPHLoad > 1 {
		bp.MPHLoad = 0.85
	}
	params, err := kmer.NewParams(bp.L)
	if err != nil {
		return err
	}

	if complete, err := isBuildComplete(prefix); err != nil {
		return err
	} else if complete {
		return nil
	}

	f, err := os.Open(fastaPath)
	if err != nil {
		return errors.Wrap(err, "refindex: open fasta")
	}
	defer f.Close()

	srcSize, digest, err := DigestSource(fastaPath)
	if err != nil {
		return err
	}

	r, format, _, err := seqio.Detect(f)
	if err != nil {
		return errors.Wrap(err, "refindex: detect fasta format")
	}
	if format != seqio.FASTA {
		return errors.New("refindex: reference database must be FASTA")
	}
	sc := seqio.NewScanner(r, format)

	rs := &Refstats{
		SourceFileSize: srcSize,
		SourceDigest:   digest,
		SourcePath:     fastaPath,
		SeedL:          uint32(bp.L),
	}
	var acgt [4]uint64

	shardIdx := 0
	var shardSeqs []rawSeq
	var shardBudget float64
	var rec seqio.Record
	for sc.Scan(&rec) {
		seq := upperACGTN([]byte(rec.Sequence))
		if len(seq) < params.K {
			return errors.Wrapf(ErrSequenceTooShort, "sequence %q (len %d, K %d)", rec.Header, len(seq), params.K)
		}
		cost := float64(len(seq)-params.K+1) * shardMemEstimate
		if cost > bp.ShardMB {
			return errors.Wrapf(ErrSequenceExceedsBudget, "sequence %q needs %.3fMB, budget %.3fMB", rec.Header, cost, bp.ShardMB)
		}
		if len(shardSeqs) > 0 && shardBudget+cost > bp.ShardMB {
			if err := buildOneShard(prefix, shardIdx, shardSeqs, params, bp); err != nil {
				return err
			}
			rs.Shards = append(rs.Shards, shardLayoutOf(shardSeqs, rs.TotalRefLen))
			shardIdx++
			shardSeqs = nil
			shardBudget = 0
		}
		for _, b := range seq {
			switch b {
			case 'A':
				acgt[0]++
			case 'C':
				acgt[1]++
			case 'G':
				acgt[2]++
			case 'T':
				acgt[3]++
			}
		}
		rs.TotalRefLen += uint64(len(seq))
		rs.TotalSeqCount++
		rs.SQ = append(rs.SQ, SQEntry{ID: rec.Header, Len: uint32(len(seq))})
		shardSeqs = append(shardSeqs, rawSeq{header: rec.Header, seq: seq})
		shardBudget += cost
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "refindex: scan fasta")
	}
	if len(shardSeqs) > 0 {
		if err := buildOneShard(prefix, shardIdx, shardSeqs, params, bp); err != nil {
			return err
		}
		rs.Shards = append(rs.Shards, shardLayoutOf(shardSeqs, rs.TotalRefLen))
	}

	total := acgt[0] + acgt[1] + acgt[2] + acgt[3]
	if total > 0 {
		for i := range rs.BackgroundFreq {
			rs.BackgroundFreq[i] = float64(acgt[i]) / float64(total)
		}
	}

	statsPath := prefix + ".stats"
	tmp := statsPath + ".tmp"
	sf, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "refindex: create stats tmp")
	}
	if err := rs.WriteStats(sf); err != nil {
		sf.Close()
		return err
	}
	if err := sf.Close(); err != nil {
		return errors.Wrap(err, "refindex: close stats tmp")
	}
	return errors.Wrap(os.Rename(tmp, statsPath), "refindex: rename stats")
}

// shardLayoutOf reports a shard's (start_offset, byte_span, seq_count) in
// terms of cumulative sequence bytes rather than file offsets, since Build
// re-derives sequence bytes from the shard's own scan rather than an
// original-file byte range. end is the cumulative sequence byte count up to
// and including this shard.
func shardLayoutOf(seqs []rawSeq, end uint64) ShardLayout {
	var span uint64
	for _, s := range seqs {
		span += uint64(len(s.seq))
	}
	return ShardLayout{StartOffset: end - span, ByteSpan: span, SeqCount: uint32(len(seqs))}
}

func upperACGTN(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func isBuildComplete(prefix string) (bool, error) {
	statsPath := prefix + ".stats"
	info, err := os.Stat(statsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "refindex: stat stats")
	}
	if info.Size() == 0 {
		return false, nil
	}
	sf, err := os.Open(statsPath)
	if err != nil {
		return false, errors.Wrap(err, "refindex: open stats")
	}
	defer sf.Close()
	rs, err := ReadStats(sf)
	if err != nil {
		return false, nil
	}
	for p := range rs.Shards {
		for _, suffix := range []string{"kmer", "bursttrie", "pos"} {
			path := fmt.Sprintf("%s.%s_%d.dat", prefix, suffix, p)
			fi, err := os.Stat(path)
			if err != nil || fi.Size() == 0 {
				return false, nil
			}
		}
	}
	return true, nil
}

// buildOneShard runs the scan/MPH/position passes of spec.md section 4.1
// steps 1-3 over one shard's sequences and emits its three artifacts.
func buildOneShard(prefix string, idx int, seqs []rawSeq, p kmer.Params, bp BuildParams) error {
	lut := lookup.New(p.L)
	suffixBases := p.K - p.P
	depthLimit := suffixBases - 3

	var keys []uint64

	for seq := range seqs {
		window := seqs[seq].seq
		for i := 0; i+p.K <= len(window); i += bp.Interval {
			kmerWindow := window[i : i+p.K]
			if !allDefinite(kmerWindow) {
				continue
			}
			full := kmer.Encode64(kmerWindow)
			kf := kmer.Encode32(kmerWindow[:p.P])
			rev := kmer.ReverseComplementSeq(kmerWindow)
			kr := kmer.Encode32(rev[:p.P])

			lut.BeginRead(kf)
			if kr != kf {
				lut.BeginRead(kr)
			}
			lut.IncrementForward(kf)
			lut.IncrementReverse(kr)

			fwdSuffix := kmer.Encode64(kmerWindow[p.P:])
			if newPos := trie.Insert(&lut.Slots[kf].TrieFwd, fwdSuffix, suffixBases, depthLimit); newPos {
				keys = append(keys, full>>2)
			}
			revSuffix := kmer.Encode64(rev[p.P:])
			if newPos := trie.Insert(&lut.Slots[kr].TrieRev, revSuffix, suffixBases, depthLimit); newPos {
				revFull := kmer.Encode64(rev)
				keys = append(keys, revFull>>2)
			}
		}
	}

	var mphTable mph.MPH
	nIDs := 0
	if len(keys) > 0 {
		b, err := mph.NewChdBuilder(bp.MPHLoad)
		if err != nil {
			return errors.Wrap(err, "refindex: new chd builder")
		}
		for _, k := range keys {
			if err := b.Add(k); err != nil {
				return errors.Wrap(err, "refindex: chd add key")
			}
		}
		mphTable, err = b.Freeze()
		if err != nil {
			return errors.Wrap(err, "refindex: chd freeze")
		}
		nIDs = mphTable.Len()
	}
	pos := postable.New(nIDs, bp.MaxPos)

	if mphTable != nil {
		for seq := range seqs {
			window := seqs[seq].seq
			for i := 0; i+p.K <= len(window); i += bp.Interval {
				kmerWindow := window[i : i+p.K]
				if !allDefinite(kmerWindow) {
					continue
				}
				full := kmer.Encode64(kmerWindow)
				kf := kmer.Encode32(kmerWindow[:p.P])
				id, ok := mphTable.Find(full >> 2)
				if ok {
					trie.PatchID(&lut.Slots[kf].TrieFwd, kmer.Encode64(kmerWindow[p.P:]), suffixBases, 0, uint32(id))
					pos.Add(uint32(id), uint32(seq), uint32(i))
				}

				rev := kmer.ReverseComplementSeq(kmerWindow)
				kr := kmer.Encode32(rev[:p.P])
				revFull := kmer.Encode64(rev)
				ridx, ok := mphTable.Find(revFull >> 2)
				if ok {
					trie.PatchID(&lut.Slots[kr].TrieRev, kmer.Encode64(rev[p.P:]), suffixBases, 0, uint32(ridx))
					pos.Add(uint32(ridx), uint32(seq), uint32(i))
				}
			}
		}
	}

	kmerPath := fmt.Sprintf("%s.kmer_%d.dat", prefix, idx)
	triePath := fmt.Sprintf("%s.bursttrie_%d.dat", prefix, idx)
	posPath := fmt.Sprintf("%s.pos_%d.dat", prefix, idx)

	if err := writeArtifact(kmerPath, lut.WriteCounts); err != nil {
		return err
	}
	if err := writeArtifact(triePath, lut.WriteTries); err != nil {
		return err
	}
	if err := writeArtifact(posPath, pos.Write); err != nil {
		return err
	}
	return nil
}

func writeArtifact(path string, write func(w io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "refindex: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "refindex: close %s", path)
	}
	return errors.Wrapf(os.Rename(tmp, path), "refindex: rename %s", path)
}

func allDefinite(window []byte) bool {
	for _, b := range window {
		if !kmer.IsDefinite(b) {
			return false
		}
	}
	return true
}
