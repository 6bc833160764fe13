package model

import (
	"math"
	"sort"
)

// Median returns the middle score, or the mean of the two middle scores for
// an even count. Zero for an empty slice.
func Median(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]int, len(scores))
	copy(sorted, scores)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// SampleStdDev returns the sample standard deviation (n-1 divisor), or 0
// when fewer than two scores exist.
func SampleStdDev(scores []int) float64 {
	n := len(scores)
	if n < 2 {
		return 0
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	mean := float64(sum) / float64(n)

	var sq float64
	for _, s := range scores {
		d := float64(s) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}
