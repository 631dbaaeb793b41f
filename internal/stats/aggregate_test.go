package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluent-loop/feed-engine/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name      string
		elapsedMs int64
		want      int64
	}{
		{"zero", 0, 0},
		{"below first boundary", 4999, 0},
		{"exact boundary", 5000, 5000},
		{"mid bucket", 12000, 10000},
		{"just under boundary", 9999, 5000},
		{"large", 123456, 120000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketKey(tt.elapsedMs))
		})
	}
}

func TestUpdateAggregateFromEmpty(t *testing.T) {
	agg := UpdateAggregate(nil, "re-1", float64Ptr(1), int64Ptr(12000))

	assert.Equal(t, "re-1", agg.ChallengeID)
	assert.Equal(t, int64(1), agg.TotalSubmissions)
	assert.Equal(t, map[int64]int64{10000: 1}, agg.TimeHistogram)
	require.NotNil(t, agg.SmoothedMedianMs)
	assert.InDelta(t, 12000.0, *agg.SmoothedMedianMs, 1e-9)
	require.NotNil(t, agg.MeanQualityScore)
	assert.InDelta(t, 1.0, *agg.MeanQualityScore, 1e-9)
}

func TestUpdateAggregateSecondSubmission(t *testing.T) {
	first := UpdateAggregate(nil, "re-1", float64Ptr(1), int64Ptr(12000))
	second := UpdateAggregate(first, "re-1", float64Ptr(0), int64Ptr(22000))

	assert.Equal(t, int64(2), second.TotalSubmissions)
	assert.Equal(t, map[int64]int64{10000: 1, 20000: 1}, second.TimeHistogram)

	// EMA with alpha 0.1: 12000*0.9 + 22000*0.1
	require.NotNil(t, second.SmoothedMedianMs)
	assert.InDelta(t, 13000.0, *second.SmoothedMedianMs, 1e-6)

	require.NotNil(t, second.MeanQualityScore)
	assert.InDelta(t, 0.5, *second.MeanQualityScore, 1e-9)

	// The input aggregate must not be mutated.
	assert.Equal(t, int64(1), first.TotalSubmissions)
	assert.Equal(t, map[int64]int64{10000: 1}, first.TimeHistogram)
}

func TestUpdateAggregateNilFields(t *testing.T) {
	agg := UpdateAggregate(nil, "fp-1", nil, nil)

	assert.Equal(t, int64(1), agg.TotalSubmissions)
	assert.Empty(t, agg.TimeHistogram)
	assert.Nil(t, agg.MeanQualityScore)
	assert.Nil(t, agg.SmoothedMedianMs)
}

func TestUpdateAggregateCountMatchesHistogram(t *testing.T) {
	var agg *models.ChallengeAggregate
	times := []int64{3000, 7000, 12000, 12500, 60000, 4999, 5000}
	for _, ms := range times {
		agg = UpdateAggregate(agg, "dd-1", nil, int64Ptr(ms))
	}

	assert.Equal(t, int64(len(times)), agg.TotalSubmissions)
	assert.Equal(t, agg.TotalSubmissions, agg.HistogramTotal())
	assert.Equal(t, int64(2), agg.TimeHistogram[0])
	assert.Equal(t, int64(2), agg.TimeHistogram[5000])
	assert.Equal(t, int64(2), agg.TimeHistogram[10000])
	assert.Equal(t, int64(1), agg.TimeHistogram[60000])
}

func TestUpdateAggregateMeanOverStream(t *testing.T) {
	var agg *models.ChallengeAggregate
	for _, q := range []float64{1, 0, 1, 1} {
		agg = UpdateAggregate(agg, "trc-1", float64Ptr(q), nil)
	}

	require.NotNil(t, agg.MeanQualityScore)
	assert.InDelta(t, 0.75, *agg.MeanQualityScore, 1e-9)
}
