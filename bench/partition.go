package bench

// RecvCounts splits n elements across g ranks.
//
// Every rank gets n/g elements, and the first n%g ranks
// get one more. The result matches the split that
// reduce-scatter uses, so it sizes the receive buffers.
func RecvCounts(n, g int) []int {
	if g < 1 {
		panic("group must have at least one rank")
	}
	counts := make([]int, g)
	base, rem := n/g, n%g
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}
