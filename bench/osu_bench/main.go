// Command osu_bench runs a non-blocking collective or
// point-to-point latency benchmark on a simulated group of
// ranks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/nbc-bench/bench"
	"github.com/unixpickle/nbc-bench/collcomm"
)

// options holds the command-line flags.
//
// Integer options left at -1 keep the value from
// bench.DefaultConfig for the selected test.
type options struct {
	test            string
	numRanks        int
	sizeRange       string
	iterations      int
	skip            int
	iterationsLarge int
	skipLarge       int
	validate        bool
	warmups         int
	fullStats       bool
	graph           bool
	numProbes       int
	memLimit        int
	blockSize       int
	strideSize      int

	netKind          string
	allreduceAlg     string
	reduceScatterAlg string
	latency          float64
	rate             float64
	format           string
	verbose          bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.test, "test", string(bench.TestIreduceScatter),
		"benchmark: ireduce_scatter, iallreduce, latency or multi_lat")
	fs.IntVar(&o.numRanks, "np", 4, "number of ranks")
	fs.StringVar(&o.sizeRange, "m", "", "message sizes in bytes as min:max")
	fs.IntVar(&o.iterations, "i", -1, "timed iterations per size (-1 for default)")
	fs.IntVar(&o.skip, "x", -1, "untimed iterations per size (-1 for default)")
	fs.IntVar(&o.iterationsLarge, "il", -1, "timed iterations for large sizes (-1 for default)")
	fs.IntVar(&o.skipLarge, "xl", -1, "untimed iterations for large sizes (-1 for default)")
	fs.BoolVar(&o.validate, "c", false, "validate the results")
	fs.IntVar(&o.warmups, "W", -1,
		"warm-up rounds before each validated iteration (-1 for default)")
	fs.BoolVar(&o.fullStats, "f", false, "report full statistics")
	fs.BoolVar(&o.graph, "G", false, "retain per-iteration samples")
	fs.IntVar(&o.numProbes, "probes", 0, "request tests during compute")
	fs.IntVar(&o.memLimit, "M", -1, "per-rank memory limit in bytes (-1 for default)")
	fs.IntVar(&o.blockSize, "block", -1, "datatype block size for point-to-point tests")
	fs.IntVar(&o.strideSize, "stride", -1, "datatype stride for point-to-point tests")
	fs.StringVar(&o.netKind, "net", string(collcomm.SwitchedNetwork),
		"network model: switched, fair, random or ordered")
	fs.StringVar(&o.allreduceAlg, "allreduce", "tree",
		"iallreduce algorithm: "+strings.Join(collcomm.AllreducerNames(), ", "))
	fs.StringVar(&o.reduceScatterAlg, "reduce-scatter", "ring",
		"ireduce_scatter algorithm: "+strings.Join(collcomm.ReduceScattererNames(), ", "))
	fs.Float64Var(&o.latency, "latency", 1e-6, "network latency in seconds")
	fs.Float64Var(&o.rate, "rate", 1e10, "link rate in bytes per second")
	fs.StringVar(&o.format, "format", string(bench.FormatOSU), "report format: osu or markdown")
	fs.BoolVar(&o.verbose, "v", false, "log progress to stderr")
}

// config builds the benchmark configuration on top of the
// defaults of the selected test.
func (o *options) config() (bench.Config, error) {
	cfg := bench.DefaultConfig(bench.Test(o.test))
	cfg.Validate = o.validate
	cfg.FullStats = o.fullStats
	cfg.Graph = o.graph
	cfg.NumProbes = o.numProbes
	if o.sizeRange != "" {
		lo, hi, err := parseRange(o.sizeRange)
		if err != nil {
			return cfg, err
		}
		cfg.MinSize, cfg.MaxSize = lo, hi
	}
	overrides := []struct {
		dst *int
		val int
	}{
		{&cfg.Iterations, o.iterations},
		{&cfg.Skip, o.skip},
		{&cfg.IterationsLarge, o.iterationsLarge},
		{&cfg.SkipLarge, o.skipLarge},
		{&cfg.WarmupValidation, o.warmups},
		{&cfg.MemLimit, o.memLimit},
		{&cfg.BlockSize, o.blockSize},
		{&cfg.StrideSize, o.strideSize},
	}
	for _, ov := range overrides {
		if ov.val >= 0 {
			*ov.dst = ov.val
		}
	}
	return cfg, nil
}

// world builds the simulated group.
func (o *options) world() (*collcomm.World, error) {
	world := collcomm.NewWorld(o.numRanks, collcomm.NetworkConfig{
		Kind:    collcomm.NetworkKind(o.netKind),
		Latency: o.latency,
		Rate:    o.rate,
	})
	var err error
	if world.Allreducer, err = collcomm.AllreducerNamed(o.allreduceAlg); err != nil {
		return nil, err
	}
	if world.ReduceScatterer, err = collcomm.ReduceScattererNamed(o.reduceScatterAlg); err != nil {
		return nil, err
	}
	return world, nil
}

func main() {
	var opts options
	opts.register(flag.CommandLine)
	flag.Parse()

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := opts.config()
	if err != nil {
		essentials.Die(err)
	}
	cfg.Logger = logger
	rep, err := bench.NewReporter(os.Stdout, bench.Format(opts.format))
	if err != nil {
		essentials.Die(err)
	}
	world, err := opts.world()
	if err != nil {
		essentials.Die(err)
	}

	err = bench.Run(world, cfg, bench.Test(opts.test), rep)
	var validationErr *bench.ValidationError
	if errors.As(err, &validationErr) {
		fmt.Printf("DATA VALIDATION ERROR: %s exited with status 1 on message size %d.\n",
			os.Args[0], validationErr.Size)
		os.Exit(1)
	} else if err != nil {
		essentials.Die(essentials.AddCtx("osu_bench", err))
	}
	if err := rep.Err(); err != nil {
		essentials.Die(essentials.AddCtx("write report", err))
	}
	logger.Debug("benchmark finished", "virtual_seconds", world.Elapsed())
}

func parseRange(s string) (lo, hi int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size range %q: expected min:max", s)
	}
	lo, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size range %q: %w", s, err)
	}
	hi, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size range %q: %w", s, err)
	}
	return lo, hi, nil
}
