// Command rnafilter is the primary entry point of spec.md section 6: it
// indexes references as needed, splits reads into worker shards, then
// drives whichever of align/postproc/report the -task flag selects.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/biotools/rnafilter/config"
	"github.com/biotools/rnafilter/kvstore"
	"github.com/biotools/rnafilter/orchestrate"
	"github.com/biotools/rnafilter/readfeed"
	"github.com/biotools/rnafilter/refindex"
	"github.com/biotools/rnafilter/report"
	"github.com/biotools/rnafilter/stats"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -ref <fasta,idx> -reads <path[,path]> [options]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	flag.Usage = usage
	o, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Error.Printf("rnafilter: %v", err)
		os.Exit(1)
	}
	if err := o.Validate(); err != nil {
		log.Error.Printf("rnafilter: %v", err)
		os.Exit(1)
	}
	for _, w := range o.Warnings() {
		log.Print("rnafilter: warning: ", w)
	}
	if o.Pid {
		o.WorkDir = filepath.Join(o.WorkDir, strconv.Itoa(os.Getpid()))
	}
	if err := os.MkdirAll(o.WorkDir, 0o755); err != nil {
		log.Error.Printf("rnafilter: create workdir: %v", err)
		os.Exit(1)
	}

	databases, err := loadDatabases(o)
	if err != nil {
		log.Error.Printf("rnafilter: %v", err)
		os.Exit(1)
	}

	descriptor, err := prepareReads(o)
	if err != nil {
		log.Error.Printf("rnafilter: %v", err)
		os.Exit(1)
	}

	kvdbDir := filepath.Join(o.WorkDir, "kvdb")
	if err := os.MkdirAll(kvdbDir, 0o755); err != nil {
		log.Error.Printf("rnafilter: create kvdb dir: %v", err)
		os.Exit(1)
	}
	store, err := kvstore.Open(filepath.Join(kvdbDir, "kvdb.db"))
	if err != nil {
		log.Error.Printf("rnafilter: open kvdb: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	rs := stats.New(len(databases))
	runOpts := buildRunOptions(o, databases, descriptor, store, rs)

	task := orchestrate.Task([]string{"align", "postproc", "report", "alipost", "all"}[o.Task])
	if err := orchestrate.Run(task, runOpts); err != nil {
		log.Error.Printf("rnafilter: %v", err)
		os.Exit(1)
	}
}

func loadDatabases(o *config.Options) ([]*orchestrate.Database, error) {
	bp := refindex.BuildParams{L: o.L, Interval: o.Interval, MaxPos: o.MaxPos, ShardMB: o.ShardMB}
	databases := make([]*orchestrate.Database, len(o.Refs))
	for i, ref := range o.Refs {
		statsPath := ref.IndexPrefix + ".stats"
		switch o.Index {
		case 0:
			if _, err := os.Stat(statsPath); err != nil {
				return nil, fmt.Errorf("-index 0 given but %s has no index: %w", ref.FastaPath, err)
			}
		case 2:
			os.Remove(statsPath)
			fallthrough
		default:
			if err := refindex.Build(ref.FastaPath, ref.IndexPrefix, bp); err != nil {
				return nil, fmt.Errorf("build index for %s: %w", ref.FastaPath, err)
			}
		}
		db, err := orchestrate.LoadDatabase(ref.FastaPath, ref.IndexPrefix, uint16(i), statsPath, o.EValue)
		if err != nil {
			return nil, err
		}
		databases[i] = db
	}
	return databases, nil
}

func prepareReads(o *config.Options) (*readfeed.Descriptor, error) {
	if ready, d, err := readfeed.IsReady(o.WorkDir, o.Reads); err != nil {
		return nil, err
	} else if ready {
		return d, nil
	}
	if err := readfeed.Clean(o.WorkDir); err != nil {
		return nil, err
	}
	return readfeed.Split(o.Reads, o.WorkDir, o.Threads)
}

func buildRunOptions(o *config.Options, databases []*orchestrate.Database, descriptor *readfeed.Descriptor, store *kvstore.DB, rs *stats.Readstats) orchestrate.RunOptions {
	alignOpts := orchestrate.AlignOptions{
		Databases:     databases,
		Descriptor:    descriptor,
		Store:         store,
		Stats:         rs,
		Threads:       o.Threads,
		SeedHits:      o.NumSeeds,
		MinLis:        o.MinLis,
		NumBestHits:   o.Best,
		NumAlignments: o.NumAlignments,
		Edges:         o.Edges,
		EdgesPercent:  o.EdgesPercent,
		MinID:         o.MinID,
		MinCov:        o.MinCov,
		Match:         int8(o.Match),
		Mismatch:      int8(o.Mismatch),
		GapOpen:       o.GapOpen,
		GapExt:        o.GapExt,
		FullSearch:    o.FullSearch,
		SearchReverse: o.ReverseOnly,
		MaxPos:        o.MaxPos,
	}
	if o.NoBest {
		alignOpts.NumBestHits = 0
	}

	postprocOpts := orchestrate.PostprocOptions{
		Store:         store,
		Stats:         rs,
		DeNovoEnabled: o.DeNovoOTU,
		OtuMapEnabled: o.OtuMap,
	}

	reportOpts := orchestrate.ReportOptions{
		Descriptor:   descriptor,
		Store:        store,
		Databases:    databases,
		Stats:        rs,
		OutDir:       o.WorkDir,
		ReportPrefix: "",
		Fastx:        o.Fastx,
		FastxOpts: report.FastxOptions{
			Paired:    o.Paired,
			PairedIn:  o.PairedIn,
			PairedOut: o.PairedOut,
			Out2:      o.Out2,
			SOut:      o.SOut,
			Other:     o.HasOther,
		},
		Blast:       o.HasBlast,
		BlastOpts:   parseBlastOpts(o.Blast),
		Sam:         o.Sam,
		OtuMap:      o.OtuMap,
		Summary:     o.Log,
		CommandLine: commandLine(),
		Pid:         os.Getpid(),
		NumSeeds:    o.NumSeeds,
		NumProc:     o.Threads,
	}

	return orchestrate.RunOptions{Align: alignOpts, Postproc: postprocOpts, Report: reportOpts}
}

// parseBlastOpts translates spec.md section 6's "-blast \"<spec>\"" string
// (a format number followed by optional column keywords) into
// report.BlastOptions.
func parseBlastOpts(spec string) report.BlastOptions {
	var o report.BlastOptions
	fields := splitFields(spec)
	for _, f := range fields {
		switch f {
		case "0":
			o.Format0 = true
		case "1":
			o.Format1 = true
		case "cigar":
			o.Cigar = true
		case "qcov":
			o.QCov = true
		case "qstrand":
			o.QStrand = true
		}
	}
	if !o.Format0 && !o.Format1 {
		o.Format1 = true
	}
	return o
}

func splitFields(s string) []string {
	var fields []string
	var cur []byte
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, s[i])
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}

func commandLine() string {
	line := os.Args[0]
	for _, a := range os.Args[1:] {
		line += " " + a
	}
	return line
}
