// Package refindex implements C4 IndexShard, C5 Refstats, and the §4.1/§4.2
// index builder and loader of spec.md.
package refindex

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// ShardLayout records one shard's span within the original reference
// sequence stream, per the .stats artifact of spec.md section 3.
type ShardLayout struct {
	StartOffset uint64
	ByteSpan    uint64
	SeqCount    uint32
}

// SQEntry is one SAM @SQ header line's worth of metadata.
type SQEntry struct {
	ID  string
	Len uint32
}

// Refstats holds the per-database statistics of spec.md section 3 (C5):
// background ACGT frequencies, database length, Gumbel parameters, and
// shard layout. The minimal SW score is not stored here; callers derive it
// with MinimalScoreForEvalue.
type Refstats struct {
	SourceFileSize int64
	SourceDigest   [highwayhash.Size]byte
	SourcePath     string

	BackgroundFreq [4]float64 // A, C, G, T
	TotalRefLen    uint64
	SeedL          uint32
	TotalSeqCount  uint64
	Shards         []ShardLayout
	SQ             []SQEntry

	Lambda float64
	K      float64
}

// highwayKey is a fixed 32-byte key used only for the tamper-detection
// digest; it need not be secret, only stable across runs so the same
// source bytes always produce the same digest.
var highwayKey = make([]byte, 32)

// DigestSource computes the HighwayHash digest of a reference FASTA file,
// strengthening spec.md section 3's "original source file size ... for
// tamper detection" with a keyed checksum of the full content.
func DigestSource(path string) (int64, [highwayhash.Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, [highwayhash.Size]byte{}, errors.Wrap(err, "refindex: open source")
	}
	defer f.Close()
	h, err := highwayhash.New(highwayKey)
	if err != nil {
		return 0, [highwayhash.Size]byte{}, errors.Wrap(err, "refindex: highwayhash init")
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, [highwayhash.Size]byte{}, errors.Wrap(err, "refindex: hash source")
	}
	var sum [highwayhash.Size]byte
	copy(sum[:], h.Sum(nil))
	return n, sum, nil
}

// MinimalScoreForEvalue inverts spec.md section 4.6's E-value formula
// (E = K*m*n*exp(-lambda*S)) to find the smallest integer score S whose
// E-value does not exceed target, given the database's effective search
// space (m*n).
func MinimalScoreForEvalue(target float64, lambda, k float64, m, n uint64) int {
	if lambda <= 0 || target <= 0 {
		return 0
	}
	mn := float64(m) * float64(n)
	// S >= ln(K*m*n/target) / lambda
	s := (logGumbelSpace(k, mn, target)) / lambda
	if s < 0 {
		s = 0
	}
	return int(s) + 1
}

// logGumbelSpace evaluates ln(K*m*n/target), the search-space term of the
// Karlin-Altschul E-value formula, with plain math.Log; neither this
// inversion nor the forward E-value in align/cigar.go uses distuv.
func logGumbelSpace(k, mn, target float64) float64 {
	if k <= 0 || mn <= 0 || target <= 0 {
		return 0
	}
	return math.Log(k * mn / target)
}

// GumbelSurvival returns P(X > score) under the extreme-value (Gumbel)
// distribution with location 0 and scale 1/lambda; k is not used. No other
// function in this module calls it.
func GumbelSurvival(score, lambda, k float64) float64 {
	g := distuv.Gumbel{Mu: 0, Beta: 1 / lambda}
	return 1 - g.CDF(score)
}

// WriteStats serializes Refstats as the per-database <ref>.stats artifact
// of spec.md section 3. All shards of one database share this single file.
func (rs *Refstats) WriteStats(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeI64(bw, rs.SourceFileSize); err != nil {
		return err
	}
	if err := writeString(bw, rs.SourcePath); err != nil {
		return err
	}
	if _, err := bw.Write(rs.SourceDigest[:]); err != nil {
		return errors.Wrap(err, "refindex: write digest")
	}
	for _, f := range rs.BackgroundFreq {
		if err := writeF64(bw, f); err != nil {
			return err
		}
	}
	if err := writeU64(bw, rs.TotalRefLen); err != nil {
		return err
	}
	if err := writeU32(bw, rs.SeedL); err != nil {
		return err
	}
	if err := writeU64(bw, rs.TotalSeqCount); err != nil {
		return err
	}
	if err := writeU16(bw, uint16(len(rs.Shards))); err != nil {
		return err
	}
	for _, sh := range rs.Shards {
		if err := writeU64(bw, sh.StartOffset); err != nil {
			return err
		}
		if err := writeU64(bw, sh.ByteSpan); err != nil {
			return err
		}
		if err := writeU32(bw, sh.SeqCount); err != nil {
			return err
		}
	}
	if err := writeU32(bw, uint32(len(rs.SQ))); err != nil {
		return err
	}
	for _, sq := range rs.SQ {
		if err := writeString(bw, sq.ID); err != nil {
			return err
		}
		if err := writeU32(bw, sq.Len); err != nil {
			return err
		}
	}
	return errors.Wrap(bw.Flush(), "refindex: flush stats")
}

// ReadStats deserializes Refstats from the format WriteStats produces.
func ReadStats(r io.Reader) (*Refstats, error) {
	br := bufio.NewReader(r)
	rs := &Refstats{}
	var err error
	if rs.SourceFileSize, err = readI64(br); err != nil {
		return nil, err
	}
	if rs.SourcePath, err = readString(br); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(br, rs.SourceDigest[:]); err != nil {
		return nil, errors.Wrap(err, "refindex: read digest")
	}
	for i := range rs.BackgroundFreq {
		if rs.BackgroundFreq[i], err = readF64(br); err != nil {
			return nil, err
		}
	}
	if rs.TotalRefLen, err = readU64(br); err != nil {
		return nil, err
	}
	if rs.SeedL, err = readU32(br); err != nil {
		return nil, err
	}
	if rs.TotalSeqCount, err = readU64(br); err != nil {
		return nil, err
	}
	nShards, err := readU16(br)
	if err != nil {
		return nil, err
	}
	rs.Shards = make([]ShardLayout, nShards)
	for i := range rs.Shards {
		if rs.Shards[i].StartOffset, err = readU64(br); err != nil {
			return nil, err
		}
		if rs.Shards[i].ByteSpan, err = readU64(br); err != nil {
			return nil, err
		}
		if rs.Shards[i].SeqCount, err = readU32(br); err != nil {
			return nil, err
		}
	}
	nSQ, err := readU32(br)
	if err != nil {
		return nil, err
	}
	rs.SQ = make([]SQEntry, nSQ)
	for i := range rs.SQ {
		if rs.SQ[i].ID, err = readString(br); err != nil {
			return nil, err
		}
		if rs.SQ[i].Len, err = readU32(br); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// TamperCheck reports whether path still matches the recorded size and
// digest, per spec.md section 3's tamper-detection field.
func (rs *Refstats) TamperCheck(path string) (bool, error) {
	size, digest, err := DigestSource(path)
	if err != nil {
		return false, err
	}
	return size == rs.SourceFileSize && digest == rs.SourceDigest, nil
}

func writeU16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "refindex: write u16")
}
func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "refindex: write u32")
}
func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return errors.Wrap(err, "refindex: write u64")
}
func writeI64(w io.Writer, v int64) error { return writeU64(w, uint64(v)) }
func writeF64(w io.Writer, v float64) error {
	return writeU64(w, math.Float64bits(v))
}
func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return errors.Wrap(err, "refindex: write string body")
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "refindex: read u16")
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}
func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "refindex: read u32")
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "refindex: read u64")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}
func readF64(r io.Reader) (float64, error) {
	v, err := readU64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}
func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "refindex: read string body")
	}
	return string(buf), nil
}
