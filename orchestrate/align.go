package orchestrate

import (
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/align"
	"github.com/biotools/rnafilter/kmer"
	"github.com/biotools/rnafilter/kvstore"
	"github.com/biotools/rnafilter/read"
	"github.com/biotools/rnafilter/readfeed"
	"github.com/biotools/rnafilter/refindex"
	"github.com/biotools/rnafilter/seqio"
	"github.com/biotools/rnafilter/stats"
)

// AlignOptions bundles the alignment-control knobs of spec.md section 6
// that apply uniformly across every database and shard, plus the resources
// the align phase drives: the databases to search (in command-line order),
// the completed Readfeed split, the KVDB to persist into, and the worker
// count.
type AlignOptions struct {
	Databases  []*Database
	Descriptor *readfeed.Descriptor
	Store      *kvstore.DB
	Stats      *stats.Readstats

	Threads int // P worker threads, one per Readfeed shard

	SeedHits      int
	MinLis        int
	NumBestHits   int
	NumAlignments int
	Edges         int
	EdgesPercent  bool
	MinID         float64
	MinCov        float64
	Match         int8
	Mismatch      int8
	GapOpen       int
	GapExt        int
	FullReadLen   uint64

	FullSearch    bool
	SearchReverse bool
	MaxPos        int
}

// RunAlign drives C9's aligner over every shard x idx_part x read of spec.md
// section 4.10: for each database, for each of its index parts, the
// reference is loaded once and Threads workers each stream their own
// Readfeed shard against it, accumulating each read's alignment state in
// the KVDB across databases and parts via a get-modify-put cycle. A read's
// length is recorded into Stats exactly once, on the very first (database,
// idx_part) pass, since every later pass revisits the same reads.
func RunAlign(o AlignOptions) error {
	numSplits := o.Descriptor.NumSplits
	offsets := shardOffsets(o.Descriptor)

	for dbIdx, db := range o.Databases {
		for part := range db.Refstats.Shards {
			shard, err := refindex.LoadShard(db.FastaPath, db.IndexPrefix, part, db.Refstats, o.MaxPos)
			if err != nil {
				return errors.Wrapf(err, "orchestrate: load %s shard %d", db.Name, part)
			}
			log.Debug.Printf("aligning against %s shard %d/%d", db.Name, part+1, len(db.Refstats.Shards))

			firstPass := dbIdx == 0 && part == 0
			err = o.alignOneIndexPart(db, part, shard, numSplits, offsets, firstPass)
			shard.Unload()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// alignOneIndexPart fans out one worker goroutine per Readfeed shard,
// mirroring spec.md section 5's "parallel OS threads; one thread per read
// shard" with no synchronization between workers beyond the shared
// read-only IndexShard and the KVDB's own internal locking.
func (o *AlignOptions) alignOneIndexPart(db *Database, part int, shard *refindex.Shard, numSplits int, offsets []uint64, firstPass bool) error {
	params, err := kmer.NewParams(int(db.Refstats.SeedL))
	if err != nil {
		return err
	}
	sp := align.SearchParams{
		SkipLengths: [3]int{params.L, params.L / 2, 3},
		SeedHits:    o.SeedHits,
		FullSearch:  o.FullSearch,
	}
	ap := db.alignParams(*o, part)

	var wg sync.WaitGroup
	errs := make([]error, numSplits)
	for k := 0; k < numSplits; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			errs[k] = o.alignWorkerShard(k, shard, sp, ap, offsets, firstPass)
		}(k)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// alignWorkerShard is one worker's pass over its private Readfeed shard
// (forward sense, and reverse sense when paired) for the current (database,
// idx_part).
func (o *AlignOptions) alignWorkerShard(k int, shard *refindex.Shard, sp align.SearchParams, ap align.Params, offsets []uint64, firstPass bool) error {
	d := o.Descriptor
	for s := 0; s < d.NumSenses; s++ {
		fi := shardFileIndex(d, k, s)
		fm := d.ShardFiles[fi]
		if err := o.alignShardFile(fm.Path, k, offsets[fi], shard, sp, ap, firstPass); err != nil {
			return errors.Wrapf(err, "orchestrate: align shard file %s", fm.Path)
		}
	}
	return nil
}

func (o *AlignOptions) alignShardFile(path string, filenum int, base uint64, shard *refindex.Shard, sp align.SearchParams, ap align.Params, firstPass bool) error {
	r, err := readfeed.NewReader(path, filenum)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		_, readnum, rec, ok := r.NextRecord()
		if !ok {
			break
		}
		id := base + uint64(readnum)
		if err := o.alignOneRead(id, rec, r.Format(), ap, shard, sp, firstPass); err != nil {
			return err
		}
	}
	return r.Err()
}

// alignOneRead runs spec.md section 4.3-4.4 for one read against one loaded
// shard, for both strands when SearchReverse is set, loading any alignment
// state accumulated against earlier databases/idx_parts from the KVDB and
// writing the updated state back. The reverse-strand pass searches the
// read's reverse complement against the same forward trie rather than
// combining trie_rev hits into the forward candidate list, since Candidate
// carries no strand tag and the two orientations are not safely comparable
// within a single LIS pass.
func (o *AlignOptions) alignOneRead(id uint64, rec seqio.Record, format seqio.Format, ap align.Params, shard *refindex.Shard, sp align.SearchParams, firstPass bool) error {
	if firstPass {
		o.Stats.ObserveLength(uint64(len(rec.Sequence)))
	}

	r := &read.Read{}
	if _, err := o.Store.Get(id, r); err != nil {
		return errors.Wrapf(err, "orchestrate: load read %d state", id)
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

	r.Isequence = kmer.Encode5([]byte(rec.Sequence))
	r.Is03 = false
	candidates := align.Search(r.Isequence, shard, sp)
	align.ComputeLISAlignment(r, candidates, shard.Pos, shard, ap, true, o.Stats)

	if o.SearchReverse {
		revSeq := kmer.ReverseComplementSeq([]byte(rec.Sequence))
		r.Isequence = kmer.Encode5(revSeq)
		r.Is03 = false
		revCandidates := align.Search(r.Isequence, shard, sp)
		align.ComputeLISAlignment(r, revCandidates, shard.Pos, shard, ap, false, o.Stats)
	}

	if err := o.Store.Put(id, r); err != nil {
		return errors.Wrapf(err, "orchestrate: persist read %d state", id)
	}
	return nil
}
