// Command rnaindex builds the burst-trie/minimal-perfect-hash index
// artifacts of spec.md section 4.1 for one or more reference FASTA files,
// standalone from the rnafilter binary's implicit -index 1 behavior.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/biotools/rnafilter/refindex"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -ref <fasta>,<index_prefix>[:<fasta>,<index_prefix>...] [options]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	refsFlag := flag.String("ref", "", "reference fasta,index_prefix pairs, colon-separated for multiple databases")
	l := flag.Int("L", 18, "seed length, even, 8..26")
	shardMB := flag.Float64("m", 3072, "reference shard memory budget, MB")
	maxPos := flag.Int("max_pos", 10000, "max positions retained per k-mer, 0 = unbounded")
	interval := flag.Int("interval", 1, "k-mer sampling interval")
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if *refsFlag == "" {
		log.Error.Printf("rnaindex: -ref is required")
		usage()
		os.Exit(1)
	}
	if *l < 8 || *l > 26 || *l%2 != 0 {
		log.Error.Printf("rnaindex: -L must be an even number in 8..26")
		os.Exit(1)
	}

	bp := refindex.BuildParams{L: *l, Interval: *interval, MaxPos: *maxPos, ShardMB: *shardMB}

	for _, tuple := range strings.Split(*refsFlag, ":") {
		parts := strings.SplitN(tuple, ",", 2)
		if len(parts) != 2 {
			log.Error.Printf("rnaindex: -ref %q must be <fasta>,<index_prefix>", tuple)
			os.Exit(1)
		}
		fastaPath, prefix := parts[0], parts[1]
		log.Print("rnaindex: building index for ", fastaPath, " -> ", prefix)
		if err := refindex.Build(fastaPath, prefix, bp); err != nil {
			log.Error.Printf("rnaindex: build %s: %v", fastaPath, err)
			os.Exit(1)
		}
	}
}
