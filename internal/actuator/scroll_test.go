package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollAccumulator(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    []int
	}{
		{"quarter notches", []float64{0.25, 0.25, 0.25, 0.25, 0.25}, []int{0, 0, 0, 1, 0}},
		{"full notch at once", []float64{1.0, 1.0}, []int{1, 1}},
		{"downwards", []float64{-0.5, -0.5, -0.75}, []int{0, -1, 0}},
		{"direction change drops remainder", []float64{0.75, -0.5, -0.5}, []int{0, 0, -1}},
		{"zero keeps remainder", []float64{0.5, 0, 0.5}, []int{0, 0, 1}},
		{"large single", []float64{2.5, 0.5}, []int{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc scrollAccumulator
			got := make([]int, len(tt.amounts))
			for i, a := range tt.amounts {
				got[i] = acc.add(a)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
