package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"waitline/models"
)

func sampleWithOutcome(predicted, actual int) models.WaitTimeSample {
	return models.WaitTimeSample{PredictedWait: predicted, ActualWait: &actual}
}

func TestAverageActualWait(t *testing.T) {
	samples := []models.WaitTimeSample{
		sampleWithOutcome(0, 10),
		sampleWithOutcome(0, 20),
		sampleWithOutcome(0, 30),
	}
	assert.Equal(t, 20, averageActualWait(samples))
}

func TestAverageActualWait_RoundsToWholeMinutes(t *testing.T) {
	samples := []models.WaitTimeSample{
		sampleWithOutcome(0, 10),
		sampleWithOutcome(0, 15),
	}
	// 12.5 rounds half away from zero
	assert.Equal(t, 13, averageActualWait(samples))
}

func TestAverageActualWait_SkipsUnfilled(t *testing.T) {
	samples := []models.WaitTimeSample{
		sampleWithOutcome(0, 40),
		{PredictedWait: 30, ActualWait: nil},
	}
	assert.Equal(t, 40, averageActualWait(samples))
}

func TestAverageActualWait_NoSamples(t *testing.T) {
	assert.Equal(t, 0, averageActualWait(nil))
	assert.Equal(t, 0, averageActualWait([]models.WaitTimeSample{{ActualWait: nil}}))
}

func TestPredictionAccuracy_PerfectPrediction(t *testing.T) {
	samples := []models.WaitTimeSample{sampleWithOutcome(20, 20)}
	assert.Equal(t, 100, predictionAccuracy(samples))
}

func TestPredictionAccuracy_RelativeError(t *testing.T) {
	// |30-20| / 20 = 50% error -> 50 accuracy
	samples := []models.WaitTimeSample{sampleWithOutcome(30, 20)}
	assert.Equal(t, 50, predictionAccuracy(samples))

	// averaged with a perfect sample: (50 + 100) / 2 = 75
	samples = append(samples, sampleWithOutcome(20, 20))
	assert.Equal(t, 75, predictionAccuracy(samples))
}

func TestPredictionAccuracy_FlooredAtZero(t *testing.T) {
	// 300% error would go negative without the floor
	samples := []models.WaitTimeSample{sampleWithOutcome(40, 10)}
	assert.Equal(t, 0, predictionAccuracy(samples))
}

func TestPredictionAccuracy_SkipsInstantSeatings(t *testing.T) {
	samples := []models.WaitTimeSample{
		sampleWithOutcome(15, 0),
		sampleWithOutcome(20, 20),
	}
	assert.Equal(t, 100, predictionAccuracy(samples))
}

func TestPredictionAccuracy_NoUsableSamples(t *testing.T) {
	assert.Equal(t, 0, predictionAccuracy(nil))
	assert.Equal(t, 0, predictionAccuracy([]models.WaitTimeSample{sampleWithOutcome(15, 0)}))
}
