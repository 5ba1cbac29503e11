package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/align"
	"github.com/biotools/rnafilter/kvstore"
	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/readfeed"
	"github.com/biotools/rnafilter/refindex"
	"github.com/biotools/rnafilter/report"
	"github.com/biotools/rnafilter/seqio"
	"github.com/biotools/rnafilter/stats"
)

// ReportOptions configures the report phase of spec.md section 4.9: it
// re-joins each read's Header/Sequence/Quality, which only ever lived in
// the Readfeed shard files (kvstore.DB's MarshalState carries alignment
// state only), with the state RunAlign/RunPostproc accumulated under its
// id, then drives whichever reporters are enabled.
type ReportOptions struct {
	Descriptor *readfeed.Descriptor
	Store      *kvstore.DB
	Databases  []*Database
	Stats      *stats.Readstats
	Postproc   *PostprocResult

	OutDir       string
	ReportPrefix string

	Fastx     bool
	FastxOpts report.FastxOptions

	Blast     bool
	BlastOpts report.BlastOptions

	Sam bool

	OtuMap bool

	Summary     bool
	CommandLine string
	Pid         int
	Timestamp   string
	NumSeeds    int
	NumProc     int
}

// samHeader bundles the run-wide SAM header (every database's @SQ entries
// concatenated, since the reporter emits one SAM stream regardless of how
// many reference databases were searched) with each database's offset into
// that combined reference list, so an Align's (IndexNum, RefNum) pair maps
// to the right sam.Reference.
type samHeader struct {
	header  *sam.Header
	offsets map[uint16]int
}

func newSAMHeader(dbs []*Database) (*samHeader, error) {
	var all []refindex.SQEntry
	offsets := make(map[uint16]int, len(dbs))
	for _, db := range dbs {
		offsets[db.IndexNum] = len(all)
		all = append(all, db.Refstats.SQ...)
	}
	h, err := report.NewSAMHeader(all)
	if err != nil {
		return nil, err
	}
	return &samHeader{header: h, offsets: offsets}, nil
}

// RunReport drives spec.md section 4.9's reporters to completion: per-shard
// output for the FASTA/FASTQ, BLAST, and SAM reporters (merged afterward
// via report.Merge), and single-shot output for the OTU map and summary,
// which already operate over the whole run's accumulated state.
func RunReport(o ReportOptions) error {
	dbByIndex := make(map[uint16]*Database, len(o.Databases))
	for _, db := range o.Databases {
		dbByIndex[db.IndexNum] = db
	}

	numSplits := o.Descriptor.NumSplits
	offsets := shardOffsets(o.Descriptor)
	ext := "fasta"
	if len(o.Descriptor.ShardFiles) > 0 && o.Descriptor.ShardFiles[0].Format == seqio.FASTQ {
		ext = "fastq"
	}

	var samHdr *samHeader
	if o.Sam {
		h, err := newSAMHeader(o.Databases)
		if err != nil {
			return err
		}
		samHdr = h
	}

	for k := 0; k < numSplits; k++ {
		if err := o.reportOneShard(k, ext, dbByIndex, samHdr, offsets); err != nil {
			return err
		}
	}

	if o.Fastx {
		if err := o.mergeFastx(ext, numSplits); err != nil {
			return err
		}
	}
	if o.Blast {
		if _, err := report.Merge(o.OutDir, o.ReportPrefix, "blast", "", numSplits); err != nil {
			return err
		}
	}
	if o.Sam {
		if _, err := report.Merge(o.OutDir, o.ReportPrefix, "sam", "", numSplits); err != nil {
			return err
		}
	}
	if o.OtuMap && o.Postproc != nil && o.Postproc.OtuMap != nil {
		if err := o.writeOtuMap(); err != nil {
			return err
		}
	}
	if o.Summary {
		if err := o.writeSummary(); err != nil {
			return err
		}
	}
	return nil
}

// reportOneShard streams one worker shard's Readfeed file(s) in lockstep
// (forward, and reverse when paired), joins each record with its KVDB
// state, and appends to every enabled reporter's per-shard output file.
func (o *ReportOptions) reportOneShard(k int, ext string, dbByIndex map[uint16]*Database, samHdr *samHeader, offsets []uint64) error {
	d := o.Descriptor

	var fw *report.FastxWriter
	if o.Fastx {
		var err error
		fw, err = report.NewFastxWriter(o.OutDir, o.ReportPrefix+"aligned_", o.ReportPrefix+"other_", ext, o.FastxOpts, k)
		if err != nil {
			return err
		}
		defer fw.Close()
	}

	var blastOut *os.File
	if o.Blast {
		f, err := os.Create(shardOutputPathFor(o.OutDir, o.ReportPrefix, "blast", "", k))
		if err != nil {
			return errors.Wrap(err, "orchestrate: create blast shard")
		}
		defer f.Close()
		blastOut = f
	}

	var samOut *os.File
	if o.Sam {
		f, err := os.Create(shardOutputPathFor(o.OutDir, o.ReportPrefix, "sam", "", k))
		if err != nil {
			return errors.Wrap(err, "orchestrate: create sam shard")
		}
		defer f.Close()
		samOut = f
		if k == 0 {
			if err := report.WriteSAMHeader(samOut, samHdr.header); err != nil {
				return err
			}
		}
	}

	senses := 1
	if d.NumSenses == 2 {
		senses = 2
	}
	readers := make([]*readfeed.Reader, senses)
	for s := 0; s < senses; s++ {
		fi := shardFileIndex(d, k, s)
		fm := d.ShardFiles[fi]
		r, err := readfeed.NewReader(fm.Path, k)
		if err != nil {
			return err
		}
		defer r.Close()
		readers[s] = r
	}

	for {
		joined := make([]*read.Read, senses)
		anyOK := false
		for s := 0; s < senses; s++ {
			fi := shardFileIndex(d, k, s)
			_, readnum, rec, ok := readers[s].NextRecord()
			if !ok {
				continue
			}
			anyOK = true
			id := offsets[fi] + uint64(readnum)
			jr, err := loadJoinedRead(o.Store, id, rec, readers[s].Format())
			if err != nil {
				return err
			}
			joined[s] = jr
		}
		if !anyOK {
			break
		}

		if fw != nil {
			var rev *read.Read
			if senses == 2 {
				rev = joined[1]
			}
			if err := fw.WritePair(joined[0], rev); err != nil {
				return err
			}
		}
		for _, jr := range joined {
			if jr == nil {
				continue
			}
			if blastOut != nil {
				if err := writeBlastForRead(blastOut, jr, o.BlastOpts, dbByIndex); err != nil {
					return err
				}
			}
			if samOut != nil {
				if err := writeSAMForRead(samOut, jr, samHdr, dbByIndex); err != nil {
					return err
				}
			}
		}
	}

	for _, r := range readers {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

func loadJoinedRead(store *kvstore.DB, id uint64, rec seqio.Record, format seqio.Format) (*read.Read, error) {
	r := &read.Read{}
	if _, err := store.Get(id, r); err != nil {
		return nil, errors.Wrapf(err, "orchestrate: load read %d for report", id)
	}
	r.ID = id
	r.Header = rec.Header
	r.Sequence = rec.Sequence
	r.Quality = rec.Quality
	if format == seqio.FASTQ {
		r.Format = read.FASTQ
	} else {
		r.Format = read.FASTA
	}
	return r, nil
}

func writeBlastForRead(w *os.File, rd *read.Read, opts report.BlastOptions, dbByIndex map[uint16]*Database) error {
	for _, a := range rd.Alignv {
		db, ok := dbByIndex[a.IndexNum]
		if !ok {
			continue
		}
		cs := align.CigarStatsFromAlign(a)
		id := align.RoundHalfUp3(cs.Identity())
		cov := align.RoundHalfUp3(align.Coverage(a.ReadBegin1, a.ReadEnd1, a.ReadLen))
		ev := align.EValue(float64(a.Score1), db.Refstats.Lambda, db.Refstats.K, uint64(a.ReadLen), db.Refstats.TotalRefLen)
		bs := align.BitScore(float64(a.Score1), db.Refstats.Lambda, db.Refstats.K)
		subjectID := "unknown"
		if int(a.RefNum) < len(db.Refstats.SQ) {
			subjectID = db.Refstats.SQ[a.RefNum].ID
		}
		rec := report.BlastRecord{
			QueryID:   rd.Header,
			SubjectID: subjectID,
			Align:     a,
			Cigar:     cs,
			Identity:  id,
			Coverage:  cov,
			EValue:    ev,
			BitScore:  bs,
		}
		if err := report.WriteBlastRecord(w, opts, rec); err != nil {
			return err
		}
	}
	return nil
}

func writeSAMForRead(w *os.File, rd *read.Read, hdr *samHeader, dbByIndex map[uint16]*Database) error {
	for _, a := range rd.Alignv {
		off, ok := hdr.offsets[a.IndexNum]
		if !ok {
			continue
		}
		rec, err := report.BuildSAMRecord(hdr.header, rd, a, off+int(a.RefNum))
		if err != nil {
			return err
		}
		if err := report.WriteSAMRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func (o *ReportOptions) mergeFastx(ext string, numSplits int) error {
	names := fastxBucketNamesFor(o.FastxOpts)
	for _, n := range names {
		if _, err := report.Merge(o.OutDir, o.ReportPrefix+"aligned_", n, ext, numSplits); err != nil {
			return err
		}
		if o.FastxOpts.Other {
			if _, err := report.Merge(o.OutDir, o.ReportPrefix+"other_", n, ext, numSplits); err != nil {
				return err
			}
		}
	}
	return nil
}

// fastxBucketNamesFor mirrors report package's own (unexported)
// bucketNamesFor selection so Merge here is told the same bucket suffixes
// NewFastxWriter opened per shard.
func fastxBucketNamesFor(o report.FastxOptions) []string {
	switch report.NumAlignedFiles(o) {
	case 2:
		if o.SOut && !o.Out2 {
			return []string{"p", "s"}
		}
		return []string{"f", "r"}
	case 4:
		return []string{"pf", "pr", "sf", "sr"}
	default:
		return []string{""}
	}
}

func shardOutputPathFor(dir, prefix, bucket, ext string, idx int) string {
	name := prefix + bucket + fmt.Sprintf("_%d", idx)
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

func (o *ReportOptions) writeOtuMap() error {
	path := filepath.Join(o.OutDir, o.ReportPrefix+"otu_map")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "orchestrate: create otu map")
	}
	defer f.Close()

	idFor := func(refNum uint32) string {
		if len(o.Databases) > 0 && int(refNum) < len(o.Databases[0].Refstats.SQ) {
			return o.Databases[0].Refstats.SQ[refNum].ID
		}
		return fmt.Sprintf("%d", refNum)
	}
	return o.Postproc.OtuMap.Write(f, idFor)
}

func (o *ReportOptions) writeSummary() error {
	path := filepath.Join(o.OutDir, o.ReportPrefix+"log")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "orchestrate: create summary log")
	}
	defer f.Close()

	names := make([]string, len(o.Databases))
	rsList := make([]*refindex.Refstats, len(o.Databases))
	for i, db := range o.Databases {
		names[i] = db.Name
		rsList[i] = db.Refstats
	}

	info := report.SummaryInfo{
		CommandLine: o.CommandLine,
		Pid:         o.Pid,
		DBNames:     names,
		DBRefstats:  rsList,
		IsDenovo:    o.Postproc != nil,
		IsOTUMap:    o.OtuMap,
		IsSQ:        o.Sam,
		NumProc:     o.NumProc,
		NumSeeds:    o.NumSeeds,
		Timestamp:   o.Timestamp,
	}
	if o.Postproc != nil && o.Postproc.OtuMap != nil {
		info.TotalOTUs = o.Postproc.OtuMap.NumGroups()
	}
	return report.WriteSummary(f, info, o.Stats)
}
