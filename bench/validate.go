package bench

import "math"

// Tolerance is the relative error allowed when checking a
// reduced element.
const Tolerance = 1e-5

// DefaultPattern cycles through the values 1 to 8.
func DefaultPattern(iter int) float32 {
	return float32(iter%8 + 1)
}

// A Validator fills buffers with a known pattern and
// checks the result of a sum reduction.
type Validator struct {
	Pattern func(iter int) float32
}

// NewValidator creates a Validator.
// If pattern is nil, DefaultPattern is used.
func NewValidator(pattern func(iter int) float32) *Validator {
	if pattern == nil {
		pattern = DefaultPattern
	}
	return &Validator{Pattern: pattern}
}

// Fill sets every element of send to the pattern of the
// iteration and zeroes recv.
func (v *Validator) Fill(send, recv []float32, iter int) {
	x := v.Pattern(iter)
	for i := range send {
		send[i] = x
	}
	for i := range recv {
		recv[i] = 0
	}
}

// Expected gets the sum of the pattern over groupSize
// ranks, added up in float32 like the reduction does.
func (v *Validator) Expected(groupSize, iter int) float32 {
	x := v.Pattern(iter)
	var sum float32
	for i := 0; i < groupSize; i++ {
		sum += x
	}
	return sum
}

// Check counts the elements of recv that differ from the
// expected sum by more than the tolerance.
func (v *Validator) Check(recv []float32, groupSize, iter int) int {
	expected := float64(v.Expected(groupSize, iter))
	limit := Tolerance * math.Max(1, math.Abs(expected))
	var errors int
	for _, x := range recv {
		if diff := math.Abs(float64(x) - expected); !(diff <= limit) {
			errors++
		}
	}
	return errors
}
