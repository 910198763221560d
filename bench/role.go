package bench

import "fmt"

// A Role is what a rank does in a benchmark.
type Role int

const (
	// Sender sends first in each round trip.
	Sender Role = iota

	// Receiver receives first in each round trip.
	Receiver

	// Symmetric ranks all do the same thing, as in a
	// collective.
	Symmetric
)

func (r Role) String() string {
	switch r {
	case Sender:
		return "sender"
	case Receiver:
		return "receiver"
	case Symmetric:
		return "symmetric"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ResolveRole gets the role of a rank in a test, along
// with its partner rank, which is -1 for symmetric roles.
//
// In the multi-latency test, the first half of the ranks
// send to the second half.
func ResolveRole(test Test, rank, size int) (Role, int) {
	switch test {
	case TestLatency, TestMultiLatency:
		pairs := size / 2
		if rank < pairs {
			return Sender, rank + pairs
		}
		return Receiver, rank - pairs
	}
	return Symmetric, -1
}
