package bench

import (
	"errors"
	"testing"
)

func TestConfigCheck(t *testing.T) {
	cases := []struct {
		name   string
		test   Test
		ranks  int
		modify func(c *Config)
		ok     bool
	}{
		{"Defaults", TestIreduceScatter, 4, func(c *Config) {}, true},
		{"OneRank", TestIreduceScatter, 1, func(c *Config) {}, false},
		{"BadRange", TestIallreduce, 2, func(c *Config) { c.MinSize = 10; c.MaxSize = 5 }, false},
		{"NoIterations", TestIallreduce, 2, func(c *Config) { c.Iterations = 0 }, false},
		{"NegativeProbes", TestIallreduce, 2, func(c *Config) { c.NumProbes = -1 }, false},
		{"Device", TestIallreduce, 2, func(c *Config) { c.Accel = "cuda" }, false},
		{"Latency", TestLatency, 2, func(c *Config) {}, true},
		{"LatencyThreeRanks", TestLatency, 3, func(c *Config) {}, false},
		{"MultiLatency", TestMultiLatency, 6, func(c *Config) {}, true},
		{"MultiLatencyOdd", TestMultiLatency, 5, func(c *Config) {}, false},
		{"BlockAboveStride", TestLatency, 2, func(c *Config) { c.BlockSize = 16; c.StrideSize = 8 }, false},
		{"BlockTooLarge", TestLatency, 2, func(c *Config) {
			c.BlockSize = MaxBlockSize * 2
			c.StrideSize = MaxBlockSize * 2
		}, false},
		{"StrideTooLarge", TestLatency, 2, func(c *Config) { c.StrideSize = MaxStrideSize + 1 }, false},
		{"UnknownTest", Test("bcast"), 2, func(c *Config) {}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig(c.test)
			c.modify(&cfg)
			err := cfg.Check(c.test, c.ranks)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			} else if !c.ok {
				var configErr *ConfigError
				if !errors.As(err, &configErr) {
					t.Fatalf("expected a ConfigError but got %v", err)
				}
			}
		})
	}
}

func TestConfigIterations(t *testing.T) {
	cfg := DefaultConfig(TestIreduceScatter)
	cfg.Iterations, cfg.Skip = 10, 2
	cfg.IterationsLarge, cfg.SkipLarge = 3, 1
	if iters, skip := cfg.iterations(cfg.LargeSize); iters != 10 || skip != 2 {
		t.Errorf("unexpected counts at threshold: %d, %d", iters, skip)
	}
	if iters, skip := cfg.iterations(cfg.LargeSize + 1); iters != 3 || skip != 1 {
		t.Errorf("unexpected counts above threshold: %d, %d", iters, skip)
	}
}

func TestConfigDefaultLargeThreshold(t *testing.T) {
	cfg := DefaultConfig(TestIreduceScatter)
	for _, elems := range []int{4096, 8192} {
		if iters, skip := cfg.iterations(elems); iters != 1000 || skip != 200 {
			t.Errorf("%d elements: got %d iterations and %d skipped", elems, iters, skip)
		}
	}
	if iters, skip := cfg.iterations(8193); iters != 100 || skip != 10 {
		t.Errorf("8193 elements: got %d iterations and %d skipped", iters, skip)
	}
}

func TestConfigLimitMemory(t *testing.T) {
	cfg := DefaultConfig(TestIreduceScatter)
	cfg.MaxSize = 1 << 20
	cfg.MemLimit = 1 << 20
	if !cfg.LimitMemory(4) {
		t.Fatal("expected max size to be limited")
	}
	if cfg.MaxSize != 1<<18 {
		t.Errorf("unexpected max size %d", cfg.MaxSize)
	}
	if cfg.LimitMemory(4) {
		t.Error("limited twice")
	}
}
