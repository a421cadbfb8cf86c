package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"waitline/models"
)

func sampleSet(n, queueLength, actualWait int) []models.WaitTimeSample {
	samples := make([]models.WaitTimeSample, n)
	for i := range samples {
		actual := actualWait
		samples[i] = models.WaitTimeSample{
			QueueEntryID: "entry",
			QueueLength:  queueLength,
			ActualWait:   &actual,
		}
	}
	return samples
}

func offPeak() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestEstimate_ColdStartUsesHeuristic(t *testing.T) {
	// round(3 * 15 * 1.2^0) = 45
	assert.Equal(t, 45, Estimate(2, 3, nil, offPeak()))
}

func TestEstimate_HeuristicScalesWithPartySize(t *testing.T) {
	// round(2 * 15 * 1.2^2) = round(43.2) = 43
	assert.Equal(t, 43, Estimate(4, 2, nil, offPeak()))

	// party of one divides the factor: round(1 * 15 / 1.2) = 13
	assert.Equal(t, 13, Estimate(1, 1, nil, offPeak()))
}

func TestEstimate_FewSamplesStillHeuristic(t *testing.T) {
	samples := sampleSet(9, 3, 120)
	assert.Equal(t, 45, Estimate(2, 3, samples, offPeak()))
}

func TestEstimate_NoProximityMatchFallsBack(t *testing.T) {
	// all samples recorded at queue length 10, position 3 is outside +-3
	samples := sampleSet(12, 10, 120)
	assert.Equal(t, Estimate(2, 3, nil, offPeak()), Estimate(2, 3, samples, offPeak()))
}

func TestEstimate_EmpiricalMeanOfNearbySamples(t *testing.T) {
	samples := sampleSet(10, 3, 20)
	// mean 20, off-peak factor 1.0, party of two factor 1.0
	assert.Equal(t, 20, Estimate(2, 3, samples, offPeak()))
}

func TestEstimate_EmpiricalAppliesTimeOfDayFactor(t *testing.T) {
	samples := sampleSet(10, 3, 20)

	dinner := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, Estimate(2, 3, samples, dinner))

	lunch := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, 28, Estimate(2, 3, samples, lunch))

	slow := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, 16, Estimate(2, 3, samples, slow))

	lateEvening := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, 18, Estimate(2, 3, samples, lateEvening))
}

func TestEstimate_EmpiricalAppliesPartySizeFactor(t *testing.T) {
	samples := sampleSet(10, 3, 20)

	// dinner rush, party of four: 20 * 1.5 * 1.15^2 = 39.675 -> 40
	dinner := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, 40, Estimate(4, 3, samples, dinner))
}

func TestEstimate_NeverBelowFiveMinutes(t *testing.T) {
	samples := sampleSet(10, 3, 2)
	assert.Equal(t, 5, Estimate(2, 3, samples, offPeak()))
}

func TestEstimate_IgnoresUnfilledSamplesInMean(t *testing.T) {
	samples := sampleSet(10, 3, 20)
	samples = append(samples, models.WaitTimeSample{QueueLength: 3, ActualWait: nil})
	samples = append(samples, models.WaitTimeSample{QueueLength: 3, ActualWait: nil})

	assert.Equal(t, 20, Estimate(2, 3, samples, offPeak()))
}

func TestTimeOfDayFactor_Boundaries(t *testing.T) {
	cases := map[int]float64{
		11: 1.0,
		12: 1.4,
		13: 1.4,
		14: 0.8,
		17: 0.8,
		18: 1.5,
		20: 1.5,
		21: 0.9,
		22: 0.9,
		23: 1.0,
		0:  1.0,
	}
	for hour, want := range cases {
		assert.Equal(t, want, timeOfDayFactor(hour), "hour %d", hour)
	}
}
