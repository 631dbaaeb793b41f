package models

import "time"

// ChallengeAggregate is the running statistical summary for one
// challenge across all submitters. Created lazily on the first
// submission, updated on every one after, never deleted.
//
// Invariant: TotalSubmissions is monotonically non-decreasing and, when
// time data is present, equals the sum of all TimeHistogram bucket
// counts.
type ChallengeAggregate struct {
	ChallengeID      string          `json:"challenge_id"`
	TotalSubmissions int64           `json:"total_submissions"`
	MeanQualityScore *float64        `json:"mean_quality_score,omitempty"`
	TimeHistogram    map[int64]int64 `json:"time_histogram"`
	SmoothedMedianMs *float64        `json:"smoothed_median_time_ms,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Version guards the read-modify-write cycle: the storage layer
	// refuses an upsert whose expected version no longer matches.
	Version int64 `json:"-"`
}

// NewChallengeAggregate returns the empty aggregate for a challenge.
func NewChallengeAggregate(challengeID string) *ChallengeAggregate {
	return &ChallengeAggregate{
		ChallengeID:   challengeID,
		TimeHistogram: make(map[int64]int64),
	}
}

// HistogramTotal returns the sum of all bucket counts.
func (a *ChallengeAggregate) HistogramTotal() int64 {
	var sum int64
	for _, n := range a.TimeHistogram {
		sum += n
	}
	return sum
}
