package bench

import (
	"math"
	"testing"
)

func TestOverlapPercent(t *testing.T) {
	cases := []struct {
		overall, compute, probe, latency float64
		expected                         float64
	}{
		// Communication fully hidden behind compute.
		{10, 10, 0, 10, 100},
		// No overlap at all.
		{20, 10, 0, 10, 0},
		// Half of the latency hidden.
		{15, 10, 0, 10, 50},
		// Probing counts as communication.
		{15, 11, 1, 10, 50},
		// Clamped below.
		{40, 10, 0, 10, 0},
		// Clamped above.
		{5, 10, 0, 10, 100},
		{5, 10, 0, 0, 0},
	}
	for i, c := range cases {
		actual := OverlapPercent(c.overall, c.compute, c.probe, c.latency)
		if math.Abs(actual-c.expected) > 1e-9 {
			t.Errorf("case %d: expected %f but got %f", i, c.expected, actual)
		}
	}
}

func TestSummarize(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[len(samples)-i-1] = float64(i + 1)
	}
	stats := Summarize(samples)
	if stats.Min != 1 || stats.Max != 100 {
		t.Errorf("unexpected range %f-%f", stats.Min, stats.Max)
	}
	if math.Abs(stats.Mean-50.5) > 1e-9 {
		t.Errorf("unexpected mean %f", stats.Mean)
	}
	if math.Abs(stats.StdDev-29.011491975882016) > 1e-6 {
		t.Errorf("unexpected stddev %f", stats.StdDev)
	}
	if stats.P50 != 50 || stats.P99 < 99 || stats.P99 > 100 {
		t.Errorf("unexpected percentiles %f, %f", stats.P50, stats.P99)
	}
	if !(stats.CILow <= 50.5 && stats.CIHigh >= 50.5 && stats.CILow >= 1 && stats.CIHigh <= 100) {
		t.Errorf("unexpected confidence interval [%f, %f]", stats.CILow, stats.CIHigh)
	}
	if samples[0] != 100 {
		t.Error("samples were modified")
	}
}

func TestSummarizeSingle(t *testing.T) {
	stats := Summarize([]float64{3})
	if stats.Mean != 3 || stats.StdDev != 0 || stats.P50 != 3 || stats.P99 != 3 ||
		stats.CILow != 3 || stats.CIHigh != 3 {
		t.Errorf("unexpected statistics %+v", stats)
	}
}
