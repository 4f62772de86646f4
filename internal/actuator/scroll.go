package actuator

import "math"

// scrollAccumulator turns fractional wheel amounts into whole notches. The
// remainder carries over, so 0.25 per frame scrolls one notch every four frames.
// A change of direction drops the remainder.
type scrollAccumulator struct {
	pending float64
}

func (a *scrollAccumulator) add(amount float64) int {
	if amount == 0 {
		return 0
	}
	if (amount > 0) != (a.pending > 0) && a.pending != 0 {
		a.pending = 0
	}
	a.pending += amount

	notches := math.Trunc(a.pending)
	a.pending -= notches
	return int(notches)
}
