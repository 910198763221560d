package collcomm

import (
	"fmt"
	"sort"
)

var allreducers = map[string]Allreducer[float32]{
	"naive":  NaiveAllreducer[float32]{},
	"tree":   TreeAllreducer[float32]{},
	"stream": StreamAllreducer[float32]{},
}

var reduceScatterers = map[string]ReduceScatterer[float32]{
	"naive": NaiveReduceScatterer[float32]{},
	"ring":  RingReduceScatterer[float32]{},
}

// AllreducerNamed looks up an allreduce algorithm by the
// name listed in AllreducerNames.
func AllreducerNamed(name string) (Allreducer[float32], error) {
	if a, ok := allreducers[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unknown allreduce algorithm %q (options: %v)", name, AllreducerNames())
}

// ReduceScattererNamed looks up a reduce-scatter algorithm
// by the name listed in ReduceScattererNames.
func ReduceScattererNamed(name string) (ReduceScatterer[float32], error) {
	if r, ok := reduceScatterers[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("unknown reduce-scatter algorithm %q (options: %v)", name,
		ReduceScattererNames())
}

// AllreducerNames returns the sorted allreduce algorithm
// names.
func AllreducerNames() []string {
	return sortedKeys(allreducers)
}

// ReduceScattererNames returns the sorted reduce-scatter
// algorithm names.
func ReduceScattererNames() []string {
	return sortedKeys(reduceScatterers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
