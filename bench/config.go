package bench

import (
	"fmt"
	"io"
	"log/slog"
)

// A Test names one of the benchmarks.
type Test string

const (
	TestIreduceScatter Test = "ireduce_scatter"
	TestIallreduce     Test = "iallreduce"
	TestLatency        Test = "latency"
	TestMultiLatency   Test = "multi_lat"
)

// Collective reports whether t measures a non-blocking
// collective, as opposed to point-to-point latency.
func (t Test) Collective() bool {
	return t == TestIreduceScatter || t == TestIallreduce
}

// An Accel names the memory that buffers live in.
type Accel string

// Host is the only supported accelerator.
const Host Accel = "host"

const (
	DefaultLargeSize = 8192
	MaxBlockSize     = 1024
	MaxStrideSize    = 4096
)

// Config holds every option of a benchmark run.
//
// The same Config must be passed to every rank.
type Config struct {
	// MinSize and MaxSize bound the message sizes, in
	// bytes.
	MinSize int
	MaxSize int

	// Iterations and Skip are the numbers of timed and
	// untimed iterations for each size.
	// Above LargeSize, IterationsLarge and SkipLarge are
	// used instead. LargeSize counts elements for the
	// collective tests and bytes for the point-to-point
	// tests.
	Iterations      int
	Skip            int
	IterationsLarge int
	SkipLarge       int
	LargeSize       int

	// Validate enables checking the result of every
	// iteration. WarmupValidation is the number of untimed
	// rounds of the operation before each timed one.
	Validate         bool
	WarmupValidation int

	// Pattern computes the value that every rank sends in
	// an iteration. If nil, DefaultPattern is used.
	Pattern func(iter int) float32

	// Graph retains the per-iteration samples, and
	// FullStats reports statistics of them.
	Graph     bool
	FullStats bool

	// NumProbes is the number of times the outstanding
	// request is tested during compute.
	NumProbes int

	// MemLimit is the number of bytes a rank may allocate
	// for buffers. If 0, there is no limit.
	MemLimit int

	Accel Accel

	// BlockSize and StrideSize describe the datatype used
	// by the point-to-point tests.
	BlockSize  int
	StrideSize int

	// Logger receives progress messages.
	// If nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultConfig creates the default options for a test.
func DefaultConfig(test Test) Config {
	c := Config{
		MinSize:          1,
		MaxSize:          1 << 20,
		Iterations:       1000,
		Skip:             200,
		IterationsLarge:  100,
		SkipLarge:        10,
		LargeSize:        DefaultLargeSize,
		WarmupValidation: 5,
		MemLimit:         1 << 29,
		Accel:            Host,
		BlockSize:        4,
		StrideSize:       8,
	}
	if !test.Collective() {
		c.MinSize = 0
		c.MaxSize = 1 << 22
		c.Iterations = 10000
		c.Skip = 100
		c.IterationsLarge = 1000
		c.SkipLarge = 10
	}
	return c
}

// Check makes sure the options are usable for a test on a
// group of the given size.
func (c *Config) Check(test Test, groupSize int) error {
	if c.MinSize < 0 || c.MaxSize < c.MinSize {
		return configErrorf("invalid message size range %d:%d", c.MinSize, c.MaxSize)
	}
	if c.Iterations < 1 || c.IterationsLarge < 1 {
		return configErrorf("iterations must be positive")
	}
	if c.Skip < 0 || c.SkipLarge < 0 || c.WarmupValidation < 0 || c.NumProbes < 0 {
		return configErrorf("skip, warm-up and probe counts must not be negative")
	}
	if c.Accel != "" && c.Accel != Host {
		return configErrorf("accelerator %q is not supported", c.Accel)
	}
	switch test {
	case TestIreduceScatter, TestIallreduce:
		if groupSize < 2 {
			return configErrorf("this test requires at least two processes")
		}
	case TestLatency, TestMultiLatency:
		if test == TestLatency && groupSize != 2 {
			return configErrorf("this test requires exactly two processes")
		}
		if test == TestMultiLatency && (groupSize < 2 || groupSize%2 != 0) {
			return configErrorf("this test requires an even number of processes, got %d", groupSize)
		}
		if c.BlockSize < 1 || c.BlockSize > c.StrideSize {
			return configErrorf("block size %d must be positive and at most the stride %d",
				c.BlockSize, c.StrideSize)
		}
		if c.BlockSize > MaxBlockSize || c.StrideSize > MaxStrideSize {
			return configErrorf("block size %d or stride %d above the limits %d and %d",
				c.BlockSize, c.StrideSize, MaxBlockSize, MaxStrideSize)
		}
	default:
		return configErrorf("unknown test %q", test)
	}
	return nil
}

// LimitMemory lowers MaxSize so that a collective on
// groupSize ranks fits in MemLimit.
// It reports whether MaxSize was lowered.
func (c *Config) LimitMemory(groupSize int) bool {
	if c.MemLimit <= 0 || c.MaxSize*groupSize <= c.MemLimit {
		return false
	}
	c.MaxSize = c.MemLimit / groupSize
	return true
}

// iterations gets the timed and untimed iteration counts
// for a message size in the unit of LargeSize.
func (c *Config) iterations(size int) (iters, skip int) {
	large := c.LargeSize
	if large == 0 {
		large = DefaultLargeSize
	}
	if size > large {
		return c.IterationsLarge, c.SkipLarge
	}
	return c.Iterations, c.Skip
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c *Config) pattern() func(iter int) float32 {
	if c.Pattern == nil {
		return DefaultPattern
	}
	return c.Pattern
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
