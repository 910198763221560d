package bench

import (
	"fmt"
	"io"
	"strings"
)

// A Format is a layout for report tables.
type Format string

const (
	// FormatOSU prints fixed-width columns under comment
	// header lines.
	FormatOSU Format = "osu"

	// FormatMarkdown prints a Markdown table.
	FormatMarkdown Format = "markdown"
)

const (
	sizeWidth      = 10
	fieldWidth     = 18
	floatPrecision = 2
)

// A Reporter prints result rows.
//
// Only rank 0 should use a Reporter. A nil *Reporter
// discards everything.
type Reporter struct {
	w      io.Writer
	format Format
	err    error
}

// NewReporter creates a Reporter that writes to w.
func NewReporter(w io.Writer, format Format) (*Reporter, error) {
	if format != FormatOSU && format != FormatMarkdown {
		return nil, configErrorf("unknown report format %q", format)
	}
	return &Reporter{w: w, format: format}, nil
}

// Err gets the first error encountered while writing.
func (r *Reporter) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// CollectiveHeader prints the title and column names of a
// collective benchmark.
func (r *Reporter) CollectiveHeader(op Operation, cfg Config) {
	if r == nil {
		return
	}
	notes := []string{"Overall = Coll. Init + Compute + Test + Wait"}
	r.header(op.Name()+" Latency Test", notes, []string{"Size"}, collectiveColumns(cfg))
}

// CollectiveRow prints the result of one message size.
func (r *Reporter) CollectiveRow(cfg Config, res Result) {
	if r == nil {
		return
	}
	vals := []float64{res.Overall, res.Compute, res.Latency, res.Overlap}
	if cfg.FullStats {
		vals = append(vals, res.Issue, res.Probe, res.Wait)
		if full := res.Full; full != nil {
			vals = append(vals, full.Min, full.Max, full.Mean, full.StdDev, full.P50, full.P99,
				full.CILow, full.CIHigh)
		} else {
			vals = append(vals, make([]float64, fullStatsColumns)...)
		}
	}
	var extra []string
	if cfg.Validate {
		if res.Errors == 0 {
			extra = append(extra, "Pass")
		} else {
			extra = append(extra, "Fail")
		}
	}
	r.row([]int{res.Size}, vals, extra)
}

// LatencyHeader prints the title and column names of a
// point-to-point benchmark.
func (r *Reporter) LatencyHeader(test Test) {
	if r == nil {
		return
	}
	title := "Latency Test"
	if test == TestMultiLatency {
		title = "Multi Latency Test"
	}
	r.header(title, nil, []string{"Size", "Block Size", "Stride"},
		[]string{"Avg Latency(us)"})
}

// LatencyRow prints the latency of one message size.
func (r *Reporter) LatencyRow(size, block, stride int, latency float64) {
	if r == nil {
		return
	}
	r.row([]int{size, block, stride}, []float64{latency}, nil)
}

// fullStatsColumns is the number of FullStats fields in a
// collective row.
const fullStatsColumns = 8

func collectiveColumns(cfg Config) []string {
	cols := []string{"Overall(us)", "Compute(us)", "Pure Comm.(us)", "Overlap(%)"}
	if cfg.FullStats {
		cols = append(cols, "Init(us)", "Test(us)", "Wait(us)", "Min Comm.(us)",
			"Max Comm.(us)", "Mean Comm.(us)", "StdDev(us)", "P50 Comm.(us)", "P99 Comm.(us)",
			"P50 CI Low(us)", "P50 CI High(us)")
	}
	if cfg.Validate {
		cols = append(cols, "Validation")
	}
	return cols
}

func (r *Reporter) header(title string, notes, leading, cols []string) {
	switch r.format {
	case FormatOSU:
		r.printf("# %s\n", title)
		for _, note := range notes {
			r.printf("# %s\n", note)
		}
		r.printf("\n")
		for i, name := range leading {
			if i == 0 {
				name = "# " + name
			}
			r.printf("%-*s", sizeWidth, name)
		}
		for _, name := range cols {
			r.printf("%*s", fieldWidth, name)
		}
		r.printf("\n")
	case FormatMarkdown:
		r.printf("### %s\n\n", title)
		all := append(append([]string{}, leading...), cols...)
		r.printf("| %s |\n", strings.Join(all, " | "))
		r.printf("%s|\n", strings.Repeat("|:--", len(all)))
	}
}

func (r *Reporter) row(leading []int, vals []float64, extra []string) {
	switch r.format {
	case FormatOSU:
		for _, x := range leading {
			r.printf("%-*d", sizeWidth, x)
		}
		for _, x := range vals {
			r.printf("%*.*f", fieldWidth, floatPrecision, x)
		}
		for _, s := range extra {
			r.printf("%*s", fieldWidth, s)
		}
		r.printf("\n")
	case FormatMarkdown:
		var fields []string
		for _, x := range leading {
			fields = append(fields, fmt.Sprint(x))
		}
		for _, x := range vals {
			fields = append(fields, fmt.Sprintf("%.*f", floatPrecision, x))
		}
		fields = append(fields, extra...)
		r.printf("| %s |\n", strings.Join(fields, " | "))
	}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}
