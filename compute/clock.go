package compute

// A Clock reports the current time in seconds.
//
// Only differences between readings are meaningful.
// A *simulator.Handle is a Clock that reads virtual time.
type Clock interface {
	Time() float64
}
