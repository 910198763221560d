package simulator

import "math"

// A Switcher decides how fast data moves over each link
// when several links share the same network interfaces.
type Switcher interface {
	// SwitchedRates is called with a matrix that is 1
	// for every link carrying data and 0 elsewhere.
	// It overwrites the matrix with the rate of each
	// link.
	SwitchedRates(links *LinkMatrix)
}

// A GreedyDropSwitcher models a switch where each sender
// splits its egress rate evenly across its active links,
// and an oversubscribed receiver drops traffic uniformly
// until it fits its ingress rate.
type GreedyDropSwitcher struct {
	SendRates []float64
	RecvRates []float64
}

// NewGreedyDropSwitcher creates a GreedyDropSwitcher
// where every node has the same rate in both directions.
func NewGreedyDropSwitcher(numNodes int, rate float64) *GreedyDropSwitcher {
	rates := uniformRates(numNodes, rate)
	return &GreedyDropSwitcher{SendRates: rates, RecvRates: rates}
}

// SwitchedRates splits egress, then clips ingress.
func (g *GreedyDropSwitcher) SwitchedRates(links *LinkMatrix) {
	checkNodeCount(links, len(g.SendRates))
	for src, rate := range g.SendRates {
		if active := links.Egress(src); active > 0 {
			links.ScaleEgress(src, rate/active)
		}
	}
	for dst, rate := range g.RecvRates {
		if incoming := links.Ingress(dst); incoming > rate {
			links.ScaleIngress(dst, rate/incoming)
		}
	}
}

// A FairShareSwitcher gives every active link its
// max-min fair share of the sender and receiver rates.
//
// Unlike a GreedyDropSwitcher, capacity that a link
// cannot use because of a bottleneck at the other end is
// handed to the remaining links of the same interface.
type FairShareSwitcher struct {
	SendRates []float64
	RecvRates []float64
}

// NewFairShareSwitcher creates a FairShareSwitcher where
// every node has the same rate in both directions.
func NewFairShareSwitcher(numNodes int, rate float64) *FairShareSwitcher {
	rates := uniformRates(numNodes, rate)
	return &FairShareSwitcher{SendRates: rates, RecvRates: rates}
}

// SwitchedRates runs progressive filling: all unfrozen
// links grow at the same pace until some interface is
// saturated, at which point its links are frozen.
func (f *FairShareSwitcher) SwitchedRates(links *LinkMatrix) {
	n := links.NumNodes()
	checkNodeCount(links, len(f.SendRates))

	type link struct{ src, dst int }
	var active []link
	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if links.At(src, dst) != 0 {
				active = append(active, link{src, dst})
			}
			links.Set(src, dst, 0)
		}
	}

	sendLeft := append([]float64{}, f.SendRates...)
	recvLeft := append([]float64{}, f.RecvRates...)
	for len(active) > 0 {
		sendCount := make([]int, n)
		recvCount := make([]int, n)
		for _, l := range active {
			sendCount[l.src]++
			recvCount[l.dst]++
		}
		step := math.Inf(1)
		for i := 0; i < n; i++ {
			if sendCount[i] > 0 {
				step = math.Min(step, sendLeft[i]/float64(sendCount[i]))
			}
			if recvCount[i] > 0 {
				step = math.Min(step, recvLeft[i]/float64(recvCount[i]))
			}
		}
		for _, l := range active {
			links.Add(l.src, l.dst, step)
			sendLeft[l.src] -= step
			recvLeft[l.dst] -= step
		}

		// Freeze links touching a saturated interface.
		remaining := active[:0]
		for _, l := range active {
			if !saturated(sendLeft[l.src], f.SendRates[l.src]) &&
				!saturated(recvLeft[l.dst], f.RecvRates[l.dst]) {
				remaining = append(remaining, l)
			}
		}
		active = remaining
	}
}

func saturated(left, capacity float64) bool {
	return left <= capacity*1e-12
}

func uniformRates(n int, rate float64) []float64 {
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = rate
	}
	return rates
}

func checkNodeCount(links *LinkMatrix, expected int) {
	if links.NumNodes() != expected {
		panic("switcher: unexpected number of nodes")
	}
}
