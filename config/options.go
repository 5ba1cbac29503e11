// Package config implements the CLI option surface of spec.md section 6:
// one Options struct populated from flag.FlagSet, validated the way
// options.cpp's Runopts rejects illegal combinations before any phase
// runs.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RefPair is one `-ref <fasta>,<index_prefix>` tuple.
type RefPair struct {
	FastaPath   string
	IndexPrefix string
}

// Options bundles every flag of spec.md section 6 into one struct passed
// down into orchestrate.RunOptions and refindex.BuildParams.
type Options struct {
	Refs    []RefPair
	Reads   []string
	WorkDir string

	Aligned    string // prefix; "" when -aligned not given
	HasAligned bool
	Other      string
	HasOther   bool
	Fastx      bool
	Sam        bool
	SQ         bool
	Blast      string
	HasBlast   bool
	OtuMap     bool
	DeNovoOTU  bool
	Log        bool

	EValue        float64
	NumAlignments int
	NoBest        bool
	Best          int
	MinLis        int
	NumSeeds      int
	Edges         int
	EdgesPercent  bool
	FullSearch    bool
	ForwardOnly   bool
	ReverseOnly   bool
	ScoreN        int
	Match         int
	Mismatch      int
	GapOpen       int
	GapExt        int
	MinID         float64
	MinCov        float64
	Passes        [3]int

	Paired    bool
	PairedIn  bool
	PairedOut bool
	Out2      bool
	SOut      bool

	L        int
	ShardMB  float64
	MaxPos   int
	Interval int
	TmpDir   string

	Threads  int
	Index    int
	Task     int
	ZipOut   string
	DbgLevel int
	MaxReadLen int
	Pid      bool
}

// defaultWorkDir mirrors spec.md section 6's "$HOME/sortmerna/run" default,
// falling back to USERPROFILE on platforms without HOME.
func defaultWorkDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	return filepath.Join(home, "sortmerna", "run")
}

// Parse builds an Options from args (normally os.Args[1:]), following the
// flag.FlagSet pattern cmd/bio-pileup/main.go uses: every option is a
// plain stdlib flag, long-form only (spec.md's CLI surface has no single-
// letter short forms besides -F/-R/-N/-L/-m, which still parse as ordinary
// flag.*Var entries).
func Parse(fs *flag.FlagSet, args []string) (*Options, error) {
	o := &Options{}
	var refsFlag, readsFlag, passesFlag, edgesFlag string

	fs.Func("ref", "reference <fasta>,<index_prefix> pair; repeat -ref or colon-separate pairs for multiple databases", func(v string) error {
		if refsFlag != "" {
			refsFlag += ":"
		}
		refsFlag += v
		return nil
	})
	fs.StringVar(&readsFlag, "reads", "", "one or two comma-separated read file paths")
	fs.StringVar(&o.WorkDir, "workdir", defaultWorkDir(), "working directory for kvdb/readb/out")

	fs.Func("aligned", "prefix for aligned-read output files (accepted but not used; aligned file names do not depend on it)", func(v string) error {
		o.Aligned, o.HasAligned = v, true
		return nil
	})
	fs.Func("other", "enable the non-aligned-read output files (the prefix value itself is not used)", func(v string) error {
		o.Other, o.HasOther = v, true
		return nil
	})
	fs.BoolVar(&o.Fastx, "fastx", false, "emit FASTA/FASTQ aligned/other reports")
	fs.BoolVar(&o.Sam, "sam", false, "emit a SAM report")
	fs.BoolVar(&o.SQ, "SQ", false, "include @SQ header lines in the SAM report (accepted but not used)")
	fs.Func("blast", "BLAST report column spec (e.g. \"1 cigar qcov qstrand\" or \"0\")", func(v string) error {
		o.Blast, o.HasBlast = v, true
		return nil
	})
	fs.BoolVar(&o.OtuMap, "otu_map", false, "emit an OTU map")
	fs.BoolVar(&o.DeNovoOTU, "de_novo_otu", false, "flag de-novo OTU candidates")
	fs.BoolVar(&o.Log, "log", false, "emit the run summary log")

	fs.Float64Var(&o.EValue, "e", 1.0, "E-value threshold")
	fs.IntVar(&o.NumAlignments, "num_alignments", -1, "max alignments kept per read, negative disables")
	fs.BoolVar(&o.NoBest, "no-best", false, "disable the best-hits policy")
	fs.IntVar(&o.Best, "best", 1, "number of best hits to keep per read")
	fs.IntVar(&o.MinLis, "min_lis", 2, "minimum LIS length, negative disables the decrement rule")
	fs.IntVar(&o.NumSeeds, "num_seeds", 2, "seed hits required before extension")
	fs.StringVar(&edgesFlag, "edges", "4", "edge region width, as an int or int%")
	fs.BoolVar(&o.FullSearch, "full_search", false, "keep scanning every seed position instead of stopping once -num_seeds candidates are found")
	fs.BoolVar(&o.ForwardOnly, "F", false, "search forward strand only")
	fs.BoolVar(&o.ReverseOnly, "R", false, "also search the reverse-complement strand")
	fs.IntVar(&o.ScoreN, "N", -1, "Smith-Waterman score for matches against N (accepted but not used; N is scored as a mismatch)")
	fs.IntVar(&o.Match, "match", 2, "Smith-Waterman match score")
	fs.IntVar(&o.Mismatch, "mismatch", -3, "Smith-Waterman mismatch penalty")
	fs.IntVar(&o.GapOpen, "gap_open", 5, "Smith-Waterman gap open penalty")
	fs.IntVar(&o.GapExt, "gap_ext", 2, "Smith-Waterman gap extend penalty")
	fs.Float64Var(&o.MinID, "id", 0.97, "minimum identity fraction for acceptance")
	fs.Float64Var(&o.MinCov, "coverage", 0.97, "minimum coverage fraction for acceptance")
	fs.StringVar(&passesFlag, "passes", "18,15,9", "comma-separated seed skip-length triple (checked but not used)")

	fs.BoolVar(&o.Paired, "paired", false, "treat input as a read pair")
	fs.BoolVar(&o.PairedIn, "paired_in", false, "write both mates to the aligned output when either mate aligns")
	fs.BoolVar(&o.PairedOut, "paired_out", false, "both mates must align to land in the aligned output")
	fs.BoolVar(&o.Out2, "out2", false, "write forward/reverse output files separately")
	fs.BoolVar(&o.SOut, "sout", false, "split aligned output into paired (both mates hit) and singleton files")

	fs.IntVar(&o.L, "L", 18, "seed length, even, 8..26")
	fs.Float64Var(&o.ShardMB, "m", 3072, "reference shard memory budget, MB")
	fs.IntVar(&o.MaxPos, "max_pos", 10000, "max positions retained per k-mer, 0 = unbounded")
	fs.IntVar(&o.Interval, "interval", 1, "k-mer sampling interval")
	fs.StringVar(&o.TmpDir, "tmpdir", os.TempDir(), "scratch directory for index construction (accepted but not used)")

	fs.IntVar(&o.Threads, "threads", 1, "number of worker threads")
	fs.IntVar(&o.Index, "index", 1, "0=skip indexing, 1=index if missing, 2=always rebuild")
	fs.IntVar(&o.Task, "task", 4, "0=align,1=postproc,2=report,3=alipost,4=all")
	fs.StringVar(&o.ZipOut, "zip-out", "-1", "compress shard output: -1=auto, 0=no, 1=yes (accepted but not used)")
	fs.IntVar(&o.DbgLevel, "dbg-level", 0, "log verbosity, 0..2 (range-checked but not used)")
	fs.IntVar(&o.MaxReadLen, "max_read_len", 0, "reject reads longer than this, 0 = unbounded (accepted but not used)")
	fs.BoolVar(&o.Pid, "pid", false, "append the process id to the workdir path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if refsFlag != "" {
		for _, tuple := range strings.Split(refsFlag, ":") {
			parts := strings.SplitN(tuple, ",", 2)
			if len(parts) != 2 {
				return nil, errors.Errorf("config: -ref %q must be <fasta>,<index_prefix>", tuple)
			}
			o.Refs = append(o.Refs, RefPair{FastaPath: parts[0], IndexPrefix: parts[1]})
		}
	}
	if readsFlag != "" {
		o.Reads = strings.Split(readsFlag, ",")
	}

	if err := parseEdges(edgesFlag, o); err != nil {
		return nil, err
	}
	if err := parsePasses(passesFlag, o); err != nil {
		return nil, err
	}
	return o, nil
}

func parseEdges(v string, o *Options) error {
	pct := strings.HasSuffix(v, "%")
	digits := strings.TrimSuffix(v, "%")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return errors.Wrapf(err, "config: -edges %q", v)
	}
	o.Edges, o.EdgesPercent = n, pct
	return nil
}

func parsePasses(v string, o *Options) error {
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return errors.Errorf("config: -passes %q must be three comma-separated integers", v)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return errors.Wrapf(err, "config: -passes %q", v)
		}
		o.Passes[i] = n
	}
	return nil
}

// Validate rejects the illegal option combinations spec.md section 6 and
// section 4 name, following options.cpp's own config-time checks: missing
// mandatory flags, out-of-range numeric flags, and conflicting paired-read
// output flags. -F and -R set together are not rejected here.
func (o *Options) Validate() error {
	if len(o.Refs) == 0 {
		return errors.New("config: at least one -ref <fasta,idx> is required")
	}
	if len(o.Reads) == 0 || len(o.Reads) > 2 {
		return errors.New("config: -reads requires one or two file paths")
	}
	if o.WorkDir == "" {
		return errors.New("config: -workdir must not be empty")
	}
	if o.L < 8 || o.L > 26 || o.L%2 != 0 {
		return errors.New("config: -L must be an even number in 8..26")
	}
	if o.MinID < 0 || o.MinID > 1 {
		return errors.New("config: -id must be in 0..1")
	}
	if o.MinCov < 0 || o.MinCov > 1 {
		return errors.New("config: -coverage must be in 0..1")
	}
	if o.Task < 0 || o.Task > 4 {
		return errors.New("config: -task must be in 0..4")
	}
	if o.Index < 0 || o.Index > 2 {
		return errors.New("config: -index must be in 0..2")
	}
	if o.DbgLevel < 0 || o.DbgLevel > 2 {
		return errors.New("config: -dbg-level must be in 0..2")
	}
	if (o.PairedIn || o.PairedOut || o.Out2 || o.SOut) && len(o.Reads) != 2 {
		return errors.New("config: -paired_in/-paired_out/-out2/-sout require two -reads paths")
	}
	if o.PairedIn && o.PairedOut {
		return errors.New("config: -paired_in and -paired_out are mutually exclusive")
	}
	if o.SOut && (o.PairedIn || o.PairedOut) {
		return errors.New("config: -sout cannot be combined with -paired_in or -paired_out")
	}
	if o.Threads <= 0 {
		return errors.New("config: -threads must be positive")
	}
	if o.NumAlignments >= 0 {
		o.MinLis = -1
	}
	return nil
}
