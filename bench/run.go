package bench

import (
	"github.com/unixpickle/nbc-bench/collcomm"
)

// Run runs a test on every rank of a World.
//
// The options are checked before any rank starts. For
// collective tests, the maximum message size is lowered
// to fit in the memory limit.
func Run(w *collcomm.World, cfg Config, test Test, rep *Reporter) error {
	if err := cfg.Check(test, w.Size); err != nil {
		return err
	}
	op, collective := OperationForTest(test)
	if collective {
		oldMax := cfg.MaxSize
		if cfg.LimitMemory(w.Size) {
			cfg.logger().Warn("limiting max message size; raise the memory limit for larger sizes",
				"requested", oldMax, "max_size", cfg.MaxSize, "mem_limit", cfg.MemLimit)
		}
	}
	return w.Run(func(c *collcomm.Comm) error {
		switch {
		case collective:
			return RunCollective(c, cfg, op, rep)
		case test == TestLatency:
			return RunLatency(c, cfg, rep)
		default:
			return RunMultiLatency(c, cfg, rep)
		}
	})
}
