package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	cases := []struct {
		name   string
		scores []int
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []int{7}, 7},
		{"odd", []int{9, 1, 5}, 5},
		{"even", []int{7, 9}, 8},
		{"even unsorted", []int{10, 2, 4, 8}, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Median(tc.scores))
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	scores := []int{3, 1, 2}
	Median(scores)
	require.Equal(t, []int{3, 1, 2}, scores)
}

func TestSampleStdDev(t *testing.T) {
	require.Equal(t, 0.0, SampleStdDev(nil))
	require.Equal(t, 0.0, SampleStdDev([]int{5}))
	require.InDelta(t, math.Sqrt2, SampleStdDev([]int{7, 9}), 1e-9)
	require.InDelta(t, 1.0, SampleStdDev([]int{4, 5, 6}), 1e-9)
}
