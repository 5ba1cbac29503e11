package orchestrate

import "github.com/biotools/rnafilter/readfeed"

// shardOffsets computes, for each entry in d.ShardFiles, the global read id
// its first record receives: the running total of NumReads over every
// preceding entry, in descriptor order. spec.md section 3 calls read.id
// "monotone over the entire run"; deriving it from the shard file list
// already recorded in the descriptor keeps id assignment reproducible from
// a completed split without a separate bookkeeping pass.
func shardOffsets(d *readfeed.Descriptor) []uint64 {
	offsets := make([]uint64, len(d.ShardFiles))
	var running uint64
	for i, fm := range d.ShardFiles {
		offsets[i] = running
		running += uint64(fm.NumReads)
	}
	return offsets
}

// shardFileIndex returns d.ShardFiles' index for worker shard k's sense s,
// matching Split's shard-major/sense-minor write order (shard 0's senses,
// then shard 1's senses, ...).
func shardFileIndex(d *readfeed.Descriptor, k, s int) int {
	return k*d.NumSenses + s
}
