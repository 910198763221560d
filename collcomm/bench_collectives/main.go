// Command bench_collectives compares the virtual running
// time of the collective algorithms on a few simulated
// networks and prints the results as a Markdown table.
package main

import (
	"fmt"
	"strconv"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/nbc-bench/collcomm"
)

// RunInfo describes a specific network configuration.
type RunInfo struct {
	NumNodes int
	Latency  float64
	Rate     float64
}

// An Algorithm installs one collective implementation in
// a World and runs it once on every rank.
type Algorithm struct {
	Name  string
	Setup func(w *collcomm.World)
	Run   func(c *collcomm.Comm, vec []float32) error
}

// Time measures the virtual time of a single collective.
func (r *RunInfo) Time(alg Algorithm, size int) float64 {
	net := collcomm.NetworkConfig{
		Kind:    collcomm.SwitchedNetwork,
		Latency: r.Latency,
		Rate:    r.Rate,
	}
	world := collcomm.NewWorld(r.NumNodes, net)
	alg.Setup(world)
	err := world.Run(func(c *collcomm.Comm) error {
		return alg.Run(c, make([]float32, size))
	})
	essentials.Must(err)
	return world.Elapsed()
}

func main() {
	algorithms := []Algorithm{
		reduceScatter("NaiveRS", collcomm.NaiveReduceScatterer[float32]{}),
		reduceScatter("RingRS", collcomm.RingReduceScatterer[float32]{}),
		allreduce("NaiveAR", collcomm.NaiveAllreducer[float32]{}),
		allreduce("TreeAR", collcomm.TreeAllreducer[float32]{}),
		allreduce("StreamAR", collcomm.StreamAllreducer[float32]{}),
	}
	runs := []RunInfo{
		{NumNodes: 2, Latency: 1e-6, Rate: 1e10},
		{NumNodes: 8, Latency: 1e-6, Rate: 1e10},
		{NumNodes: 16, Latency: 1e-3, Rate: 1e9},
		{NumNodes: 32, Latency: 1e-4, Rate: 1e9},
	}
	vecSizes := []int{64, 65536, 4194304}

	// Markdown table header.
	fmt.Print("| Nodes | Latency | NIC rate | Size ")
	for _, alg := range algorithms {
		fmt.Printf("| %s ", alg.Name)
	}
	fmt.Println("|")
	for i := 0; i < 4+len(algorithms); i++ {
		fmt.Print("|:--")
	}
	fmt.Println("|")

	// Markdown table body.
	for _, runInfo := range runs {
		for _, size := range vecSizes {
			fmt.Printf(
				"| %d | %s | %s | %d ",
				runInfo.NumNodes,
				strconv.FormatFloat(runInfo.Latency, 'f', -1, 64),
				strconv.FormatFloat(runInfo.Rate, 'E', -1, 64),
				size,
			)
			for _, alg := range algorithms {
				fmt.Printf("| %f ", runInfo.Time(alg, size))
			}
			fmt.Println("|")
		}
	}
}

func reduceScatter(name string, rs collcomm.ReduceScatterer[float32]) Algorithm {
	return Algorithm{
		Name: name,
		Setup: func(w *collcomm.World) {
			w.ReduceScatterer = rs
		},
		Run: func(c *collcomm.Comm, vec []float32) error {
			counts := make([]int, c.Size())
			for i := range counts {
				counts[i] = len(vec) / c.Size()
			}
			counts[0] += len(vec) % c.Size()
			req, err := c.IreduceScatter(vec, make([]float32, counts[c.Rank()]), counts)
			if err != nil {
				return err
			}
			req.Wait()
			return nil
		},
	}
}

func allreduce(name string, ar collcomm.Allreducer[float32]) Algorithm {
	return Algorithm{
		Name: name,
		Setup: func(w *collcomm.World) {
			w.Allreducer = ar
		},
		Run: func(c *collcomm.Comm, vec []float32) error {
			req, err := c.Iallreduce(vec, make([]float32, len(vec)))
			if err != nil {
				return err
			}
			req.Wait()
			return nil
		},
	}
}
