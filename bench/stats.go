package bench

import (
	"math"
	"sort"

	"github.com/unixpickle/nbc-bench/collcomm"
	"golang.org/x/perf/benchmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Result is the group-wide outcome of one message size.
//
// Times are in microseconds. Only rank 0 has the timing
// fields set, while every rank has Errors.
type Result struct {
	// Size is the message size in bytes.
	Size int

	// Latency is the time of the operation without any
	// compute, measured on rank 0.
	Latency float64

	// Averages over iterations and ranks of the overlap
	// pass.
	Overall float64
	Compute float64
	Issue   float64
	Probe   float64
	Wait    float64

	// Overlap is the share of the latency hidden behind
	// compute, in percent.
	Overlap float64

	// Errors is the number of wrong elements across the
	// group, when validation is on.
	Errors int

	// Full is only set on rank 0 with full statistics on.
	Full *FullStats
}

// FullStats summarizes the per-iteration total times of
// rank 0, in microseconds.
type FullStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	P50    float64
	P99    float64

	// CILow and CIHigh bound a 95% confidence interval of
	// the median.
	CILow  float64
	CIHigh float64
}

// Aggregate combines the results of one message size
// across the group.
//
// Every rank must call Aggregate. latency is the rank's
// plain-pass time per iteration in seconds, sums holds the
// rank's overlap-pass sums over iters iterations, and
// totals holds the rank's retained totals in seconds.
func Aggregate(c *collcomm.Comm, cfg Config, size int, latency float64, sums Sample, iters int,
	localErrors int, totals []float64) Result {
	res := Result{Size: size}
	reduced := c.Reduce([]float64{sums.Total, sums.Compute, sums.Wait, sums.Issue, sums.Probe})
	if cfg.Validate {
		res.Errors = int(math.Round(c.Allreduce([]float64{float64(localErrors)})[0]))
	}
	if c.Rank() != 0 {
		return res
	}

	scale := 1e6 / float64(iters*c.Size())
	res.Overall = reduced[0] * scale
	res.Compute = reduced[1] * scale
	res.Wait = reduced[2] * scale
	res.Issue = reduced[3] * scale
	res.Probe = reduced[4] * scale
	res.Latency = latency * 1e6
	res.Overlap = OverlapPercent(res.Overall, res.Compute, res.Probe, res.Latency)

	if cfg.FullStats && len(totals) > 0 {
		micros := make([]float64, len(totals))
		floats.ScaleTo(micros, 1e6, totals)
		res.Full = Summarize(micros)
	}
	return res
}

// OverlapPercent computes how much of the pure
// communication latency was hidden behind compute.
//
// The result is clamped to [0, 100].
func OverlapPercent(overall, compute, probe, latency float64) float64 {
	if latency <= 0 {
		return 0
	}
	overlap := 100 - (overall-(compute-probe))/latency*100
	return math.Max(0, math.Min(100, overlap))
}

// Summarize computes statistics of a non-empty set of
// samples.
func Summarize(samples []float64) *FullStats {
	sorted := append([]float64{}, samples...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	res := &FullStats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   mean,
		StdDev: std,
		P50:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}

	// NewSample sorts its input in place.
	sample := benchmath.NewSample(append([]float64{}, sorted...), &benchmath.DefaultThresholds)
	summary := benchmath.AssumeNothing.Summary(sample, 0.95)
	res.CILow = summary.Lo
	res.CIHigh = summary.Hi

	// Too few samples for the requested confidence.
	if math.IsInf(res.CILow, 0) {
		res.CILow = res.Min
	}
	if math.IsInf(res.CIHigh, 0) {
		res.CIHigh = res.Max
	}
	return res
}
