package stats

import (
	"math"
	"sort"
)

// NeutralPercentile is returned when there is no data to compare against.
const NeutralPercentile = 50

// EstimatePercentile estimates the rank of value within the bucketed
// distribution, as an integer in [0,100].
//
// This is a left-continuous step estimator, not a linear interpolation:
// it accumulates the counts of every bucket whose key is strictly less
// than value and stops at the first bucket whose key is >= value. A
// value that exactly equals a bucket boundary is not counted as below
// that bucket, so results are conservative at boundaries.
func EstimatePercentile(value float64, histogram map[int64]int64, total int64) int {
	if total <= 0 {
		return NeutralPercentile
	}

	keys := make([]int64, 0, len(histogram))
	for k := range histogram {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var below int64
	for _, k := range keys {
		if float64(k) >= value {
			break
		}
		below += histogram[k]
	}

	return int(math.Round(float64(below) / float64(total) * 100))
}

// ScorePercentile is the alternative estimation path for challenge
// types that produce no elapsed time: the quality score scaled straight
// to [0,100]. It bypasses the histogram entirely and is a known
// inconsistency with EstimatePercentile, kept because unifying the two
// paths would change observed percentiles for score-only types.
func ScorePercentile(qualityScore float64) int {
	return int(math.Round(qualityScore * 100))
}
